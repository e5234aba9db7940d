package prompt

import (
	"embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
)

//go:embed template/*.txt
var templates embed.FS

var specialistFiles = map[contractx.SpecialistName]string{
	contractx.SpecialistSearch:          "search.txt",
	contractx.SpecialistKnowledge:       "knowledge.txt",
	contractx.SpecialistRecommendation:  "recommendation.txt",
	contractx.SpecialistComparison:      "comparison.txt",
	contractx.SpecialistPricing:         "pricing.txt",
	contractx.SpecialistDelivery:        "delivery.txt",
	contractx.SpecialistPayment:         "payment.txt",
	contractx.SpecialistCustomerService: "customer_service.txt",
	contractx.SpecialistCultural:        "cultural.txt",
	contractx.SpecialistInventory:       "inventory.txt",
}

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Router      string
	Specialists map[contractx.SpecialistName]string
}

// Specialist returns the instructions for name, or ErrPromptMissing.
func (p PromptSet) Specialist(name contractx.SpecialistName) (string, error) {
	text, ok := p.Specialists[name]
	if !ok || text == "" {
		return "", fmt.Errorf("%w: specialist=%s", contractx.ErrPromptMissing, name)
	}
	return text, nil
}

// LoadPromptSet reads every embedded template. All of them must be non-empty.
func LoadPromptSet() (PromptSet, error) {
	router, err := read("router.txt")
	if err != nil {
		return PromptSet{}, err
	}
	set := PromptSet{
		Router:      router,
		Specialists: make(map[contractx.SpecialistName]string, len(specialistFiles)),
	}
	for name, file := range specialistFiles {
		text, err := read(file)
		if err != nil {
			return PromptSet{}, fmt.Errorf("specialist=%s: %w", name, err)
		}
		set.Specialists[name] = text
	}
	return set, nil
}

// MustLoadPromptSet panics when a template is missing; templates are compiled in.
func MustLoadPromptSet() PromptSet {
	set, err := LoadPromptSet()
	if err != nil {
		panic(err)
	}
	return set
}

func read(file string) (string, error) {
	raw, err := templates.ReadFile("template/" + file)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", contractx.ErrPromptMissing, file, err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("%w: %s is empty", contractx.ErrPromptMissing, file)
	}
	return text, nil
}

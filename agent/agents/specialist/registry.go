package specialist

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
	promptx "github.com/tanpawarit/albaqer-concierge/agent/prompt"
	toolx "github.com/tanpawarit/albaqer-concierge/agent/tool"
)

// Specialist is one routable domain expert. Values are built once by
// NewRegistry and never mutated.
type Specialist struct {
	Name            contractx.SpecialistName
	Description     string
	Instructions    string
	Tools           []string
	Preferred       contractx.BackendID
	AlwaysReasoning bool

	infos   []*schema.ToolInfo
	execute toolx.Executor
}

func (s *Specialist) ToolInfos() []*schema.ToolInfo {
	return s.infos
}

type definition struct {
	name            contractx.SpecialistName
	description     string
	tools           []string
	preferred       contractx.BackendID
	alwaysReasoning bool
}

var definitions = []definition{
	{
		name:        contractx.SpecialistSearch,
		description: "finding or browsing products by price, stone, gender or category",
		tools:       []string{toolx.ToolSearchProducts, toolx.ToolCheckStock},
		preferred:   contractx.BackendReasoning,
	},
	{
		name:        contractx.SpecialistKnowledge,
		description: "learning about gemstones, their properties and Islamic significance",
		tools:       []string{toolx.ToolGetStoneInfo, toolx.ToolGetKnowledgeBase},
		preferred:   contractx.BackendReasoning,
	},
	{
		name:        contractx.SpecialistRecommendation,
		description: "what should I buy, gift ideas and personalised suggestions",
		tools:       []string{toolx.ToolSearchProducts, toolx.ToolGetStoneInfo, toolx.ToolGetProductReviews},
		preferred:   contractx.BackendReasoning,
	},
	{
		name:            contractx.SpecialistComparison,
		description:     "comparing products or asking which one is better",
		tools:           []string{toolx.ToolCompareProducts, toolx.ToolGetStoneInfo},
		preferred:       contractx.BackendFast,
		alwaysReasoning: true,
	},
	{
		name:        contractx.SpecialistPricing,
		description: "prices, currency conversion to LBP or EUR and totals",
		tools:       []string{toolx.ToolConvertCurrency, toolx.ToolSearchProducts, toolx.ToolCalculate},
		preferred:   contractx.BackendFast,
	},
	{
		name:        contractx.SpecialistDelivery,
		description: "shipping, delivery fees, delivery times and locations",
		tools:       []string{toolx.ToolDeliveryFee},
		preferred:   contractx.BackendFast,
	},
	{
		name:        contractx.SpecialistPayment,
		description: "payment methods and how to pay",
		tools:       []string{toolx.ToolGetPaymentMethods},
		preferred:   contractx.BackendFast,
	},
	{
		name:        contractx.SpecialistCustomerService,
		description: "general questions, orders, complaints and feedback",
		tools:       []string{toolx.ToolSearchProducts, toolx.ToolGetPaymentMethods, toolx.ToolDeliveryFee, toolx.ToolSubmitFeedback},
		preferred:   contractx.BackendFast,
	},
	{
		name:        contractx.SpecialistCultural,
		description: "Islamic jewelry traditions, rulings, occasions and cultural guidance",
		tools:       []string{toolx.ToolGetStoneInfo, toolx.ToolGetKnowledgeBase},
		preferred:   contractx.BackendFast,
	},
	{
		name:        contractx.SpecialistInventory,
		description: "stock availability, is this in stock",
		tools:       []string{toolx.ToolCheckStock, toolx.ToolSearchProducts},
		preferred:   contractx.BackendFast,
	},
}

// Registry is the closed set of specialists. It is read-only after
// construction.
type Registry struct {
	byName map[contractx.SpecialistName]*Specialist
	order  []contractx.SpecialistName
}

func NewRegistry(prompts promptx.PromptSet, toolbox *toolx.Toolbox) (*Registry, error) {
	if toolbox == nil {
		return nil, fmt.Errorf("%w: toolbox is required", contractx.ErrValidation)
	}

	r := &Registry{byName: make(map[contractx.SpecialistName]*Specialist, len(definitions))}
	for _, def := range definitions {
		instructions, err := prompts.Specialist(def.name)
		if err != nil {
			return nil, err
		}
		infos, err := toolbox.Infos(def.tools)
		if err != nil {
			return nil, fmt.Errorf("%w: specialist=%s: %v", contractx.ErrValidation, def.name, err)
		}
		r.byName[def.name] = &Specialist{
			Name:            def.name,
			Description:     def.description,
			Instructions:    instructions,
			Tools:           append([]string(nil), def.tools...),
			Preferred:       def.preferred,
			AlwaysReasoning: def.alwaysReasoning,
			infos:           infos,
			execute:         toolbox.Executor(string(def.name), def.tools),
		}
		r.order = append(r.order, def.name)
	}
	if _, ok := r.byName[contractx.DefaultSpecialist]; !ok {
		return nil, fmt.Errorf("%w: default specialist=%s is not registered", contractx.ErrValidation, contractx.DefaultSpecialist)
	}
	return r, nil
}

func (r *Registry) Lookup(name contractx.SpecialistName) (*Specialist, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Resolve never fails: an unknown name resolves to the default specialist.
func (r *Registry) Resolve(ctx context.Context, name contractx.SpecialistName) *Specialist {
	if s, ok := r.byName[name]; ok {
		return s
	}
	log.Ctx(ctx).Warn().
		Err(fmt.Errorf("%w: %q", contractx.ErrUnknownSpecialist, name)).
		Str("specialist", string(contractx.DefaultSpecialist)).
		Msg("resolving to default specialist")
	return r.byName[contractx.DefaultSpecialist]
}

// Names lists the specialists in roster order.
func (r *Registry) Names() []contractx.SpecialistName {
	return append([]contractx.SpecialistName(nil), r.order...)
}

// Roster renders one "NAME: when to choose" line per specialist.
func (r *Registry) Roster() string {
	var b strings.Builder
	for i, name := range r.order {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, name, r.byName[name].Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

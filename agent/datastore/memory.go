package datastore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryCatalog is an in-process Catalog with the same filter semantics as
// the Postgres implementation.
type MemoryCatalog struct {
	mu sync.RWMutex

	products []Product
	stones   []Stone
	zones    []DeliveryZone
	rates    []CurrencyRate
	methods  []PaymentMethod
	reviews  []Review
	feedback []Feedback

	now func() time.Time
}

var _ Catalog = (*MemoryCatalog)(nil)

type Seed struct {
	Products       []Product
	Stones         []Stone
	Zones          []DeliveryZone
	Rates          []CurrencyRate
	PaymentMethods []PaymentMethod
	Reviews        []Review
}

func NewMemoryCatalog(seed Seed) *MemoryCatalog {
	return &MemoryCatalog{
		products: append([]Product(nil), seed.Products...),
		stones:   append([]Stone(nil), seed.Stones...),
		zones:    append([]DeliveryZone(nil), seed.Zones...),
		rates:    append([]CurrencyRate(nil), seed.Rates...),
		methods:  append([]PaymentMethod(nil), seed.PaymentMethods...),
		reviews:  append([]Review(nil), seed.Reviews...),
		now:      time.Now,
	}
}

func (m *MemoryCatalog) SearchProducts(_ context.Context, f ProductFilter) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Product{}
	for _, p := range m.sortedProducts() {
		if !matchesFilter(p, f) {
			continue
		}
		out = append(out, p)
		if len(out) == f.limit() {
			break
		}
	}
	return out, nil
}

func matchesFilter(p Product, f ProductFilter) bool {
	if q := strings.TrimSpace(f.Query); q != "" && !containsFold(p.Name, q) && !containsFold(p.Description, q) {
		return false
	}
	if c := strings.TrimSpace(f.Category); c != "" && !containsFold(p.Category, c) {
		return false
	}
	if f.MinPrice != nil && p.PriceUSD.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.PriceUSD.GreaterThan(*f.MaxPrice) {
		return false
	}
	if g := strings.ToLower(strings.TrimSpace(f.Gender)); g != "" && p.Gender != g && p.Gender != "both" {
		return false
	}
	if s := strings.TrimSpace(f.StoneName); s != "" {
		found := false
		for _, name := range p.Stones {
			if containsFold(name, s) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *MemoryCatalog) sortedProducts() []Product {
	out := append([]Product(nil), m.products...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryCatalog) Product(_ context.Context, id int64) (Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("product: %w", ErrNotFound)
}

func (m *MemoryCatalog) ProductsByIDs(_ context.Context, ids []int64) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := []Product{}
	for _, p := range m.sortedProducts() {
		if _, ok := want[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryCatalog) Stone(_ context.Context, name string) (Stone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = strings.TrimSpace(name)
	var best *Stone
	for i := range m.stones {
		s := &m.stones[i]
		if !containsFold(s.Name, name) && !containsFold(s.ArabicName, name) {
			continue
		}
		if best == nil || len(s.Name) < len(best.Name) {
			best = s
		}
	}
	if best == nil {
		return Stone{}, fmt.Errorf("stone: %w", ErrNotFound)
	}
	return *best, nil
}

func (m *MemoryCatalog) DeliveryZone(_ context.Context, governorate string) (DeliveryZone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	governorate = strings.TrimSpace(governorate)
	for _, z := range m.zones {
		if containsFold(z.Governorate, governorate) || containsFold(z.ZoneName, governorate) {
			return z, nil
		}
	}
	return DeliveryZone{}, fmt.Errorf("delivery zone: %w", ErrNotFound)
}

func (m *MemoryCatalog) LatestRate(_ context.Context, currency string) (CurrencyRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	code := strings.ToUpper(strings.TrimSpace(currency))
	var latest *CurrencyRate
	for i := range m.rates {
		r := &m.rates[i]
		if r.CurrencyCode != code {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return CurrencyRate{}, fmt.Errorf("currency rate: %w", ErrNotFound)
	}
	return *latest, nil
}

func (m *MemoryCatalog) PaymentMethods(context.Context) ([]PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []PaymentMethod{}
	for _, pm := range m.methods {
		if pm.IsActive {
			out = append(out, pm)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryCatalog) ProductReviews(_ context.Context, productID int64, limit int) ([]Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}
	out := []Review{}
	for _, r := range m.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryCatalog) SaveFeedback(_ context.Context, fb Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = m.now().UTC()
	}
	m.feedback = append(m.feedback, fb)
	return nil
}

// Feedback returns a copy of the stored feedback rows.
func (m *MemoryCatalog) Feedback() []Feedback {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Feedback(nil), m.feedback...)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

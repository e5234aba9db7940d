package datastore

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultSearchLimit = 10

var ErrNotFound = errors.New("record not found")

type Product struct {
	ID             int64           `json:"product_id" bun:"product_id"`
	Name           string          `json:"name" bun:"name"`
	Description    string          `json:"description,omitempty" bun:"description"`
	PriceUSD       decimal.Decimal `json:"price_usd" bun:"price_usd"`
	Gender         string          `json:"gender,omitempty" bun:"gender"`
	Occasion       string          `json:"occasion,omitempty" bun:"occasion"`
	Stock          int             `json:"stock" bun:"stock"`
	IsSunnahDesign bool            `json:"is_sunnah_design" bun:"is_sunnah_design"`
	Category       string          `json:"category,omitempty" bun:"category"`
	Material       string          `json:"material,omitempty" bun:"material"`
	StoryBehind    string          `json:"story_behind,omitempty" bun:"story_behind"`
	Stones         []string        `json:"stones,omitempty" bun:"stones,array"`
}

type ProductFilter struct {
	Query     string
	Category  string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Gender    string
	StoneName string
	Limit     int
}

func (f ProductFilter) limit() int {
	if f.Limit <= 0 || f.Limit > DefaultSearchLimit {
		return DefaultSearchLimit
	}
	return f.Limit
}

type Stone struct {
	ID                   int64  `json:"stone_id" bun:"stone_id"`
	Name                 string `json:"name" bun:"name"`
	ArabicName           string `json:"arabic_name,omitempty" bun:"arabic_name"`
	Color                string `json:"color,omitempty" bun:"color"`
	IslamicSignificance  string `json:"islamic_significance,omitempty" bun:"islamic_significance"`
	CulturalSignificance string `json:"cultural_significance,omitempty" bun:"cultural_significance"`
	HealingProperties    string `json:"healing_properties,omitempty" bun:"healing_properties"`
	HistoricalFacts      string `json:"historical_facts,omitempty" bun:"historical_facts"`
	Hardness             string `json:"hardness,omitempty" bun:"hardness"`
	Meaning              string `json:"meaning,omitempty" bun:"meaning"`
	SunnahStone          bool   `json:"sunnah_stone" bun:"sunnah_stone"`
	RecommendedFor       string `json:"recommended_for,omitempty" bun:"recommended_for"`
}

type DeliveryZone struct {
	ZoneName            string          `json:"zone_name" bun:"zone_name"`
	Governorate         string          `json:"governorate" bun:"governorate"`
	DeliveryFeeUSD      decimal.Decimal `json:"delivery_fee_usd" bun:"delivery_fee_usd"`
	DeliveryDays        string          `json:"delivery_days,omitempty" bun:"delivery_days"`
	SecurityLevel       string          `json:"security_level,omitempty" bun:"security_level"`
	CurrentlyDelivering bool            `json:"currently_delivering" bun:"currently_delivering"`
}

type CurrencyRate struct {
	CurrencyCode string          `json:"currency_code" bun:"currency_code"`
	RateToUSD    decimal.Decimal `json:"rate_to_usd" bun:"rate_to_usd"`
	OfficialRate bool            `json:"official_rate" bun:"official_rate"`
	Source       string          `json:"source,omitempty" bun:"source"`
	CreatedAt    time.Time       `json:"created_at" bun:"created_at"`
}

type PaymentMethod struct {
	Name          string          `json:"method_name" bun:"method_name"`
	Type          string          `json:"method_type" bun:"method_type"`
	FeePercentage decimal.Decimal `json:"fee_percentage" bun:"fee_percentage"`
	Instructions  string          `json:"instructions,omitempty" bun:"instructions"`
	IsActive      bool            `json:"-" bun:"is_active"`
}

type Review struct {
	ProductID int64     `json:"product_id" bun:"product_id"`
	Rating    int       `json:"rating" bun:"rating"`
	Title     string    `json:"title,omitempty" bun:"title"`
	Comment   string    `json:"comment,omitempty" bun:"comment"`
	Reviewer  string    `json:"reviewer,omitempty" bun:"reviewer"`
	CreatedAt time.Time `json:"created_at" bun:"created_at"`
}

type Feedback struct {
	SessionID string    `json:"session_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Catalog is the data-store contract used by tools. Every user-influenced
// value arrives as a typed field; implementations never splice user text
// into SQL.
type Catalog interface {
	SearchProducts(ctx context.Context, f ProductFilter) ([]Product, error)
	Product(ctx context.Context, id int64) (Product, error)
	ProductsByIDs(ctx context.Context, ids []int64) ([]Product, error)
	Stone(ctx context.Context, name string) (Stone, error)
	DeliveryZone(ctx context.Context, governorate string) (DeliveryZone, error)
	LatestRate(ctx context.Context, currency string) (CurrencyRate, error)
	PaymentMethods(ctx context.Context) ([]PaymentMethod, error)
	ProductReviews(ctx context.Context, productID int64, limit int) ([]Review, error)
	SaveFeedback(ctx context.Context, fb Feedback) error
}

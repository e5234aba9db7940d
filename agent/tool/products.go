package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
	datastorex "github.com/tanpawarit/albaqer-concierge/agent/datastore"
)

const (
	ToolSearchProducts    = "search_products"
	ToolCheckStock        = "check_stock"
	ToolCompareProducts   = "compare_products"
	ToolGetProductReviews = "get_product_reviews"
)

const (
	minCompare         = 2
	maxCompare         = 5
	defaultReviewLimit = 5
)

type searchProductsArgs struct {
	Query     string   `json:"query" validate:"max=200"`
	Category  string   `json:"category" validate:"max=100"`
	MinPrice  *float64 `json:"min_price" validate:"omitempty,gte=0"`
	MaxPrice  *float64 `json:"max_price" validate:"omitempty,gte=0"`
	Gender    string   `json:"gender" validate:"omitempty,oneof=men women both"`
	StoneName string   `json:"stone_name" validate:"max=100"`
}

func (a *searchProductsArgs) normalize() {
	a.Query = strings.TrimSpace(a.Query)
	a.Category = strings.TrimSpace(a.Category)
	a.Gender = strings.ToLower(strings.TrimSpace(a.Gender))
	a.StoneName = strings.TrimSpace(a.StoneName)
}

func (a searchProductsArgs) filter() (datastorex.ProductFilter, error) {
	f := datastorex.ProductFilter{
		Query:     a.Query,
		Category:  a.Category,
		Gender:    a.Gender,
		StoneName: a.StoneName,
		Limit:     datastorex.DefaultSearchLimit,
	}
	if a.MinPrice != nil {
		d := decimal.NewFromFloat(*a.MinPrice)
		f.MinPrice = &d
	}
	if a.MaxPrice != nil {
		d := decimal.NewFromFloat(*a.MaxPrice)
		f.MaxPrice = &d
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return f, fmt.Errorf("%w: min_price %s exceeds max_price %s", contractx.ErrToolArgument, f.MinPrice, f.MaxPrice)
	}
	return f, nil
}

func searchProductsTool(catalog datastorex.Catalog) Tool {
	return define(ToolSearchProducts,
		"Search the product catalog. All filters are optional; at most 10 products are returned.",
		map[string]*schema.ParameterInfo{
			"query":      {Type: schema.String, Desc: "Free-text term matched against name and description"},
			"category":   {Type: schema.String, Desc: "Category name, e.g. Aqeeq Rings or Tasbih"},
			"min_price":  {Type: schema.Number, Desc: "Minimum price in USD"},
			"max_price":  {Type: schema.Number, Desc: "Maximum price in USD"},
			"gender":     {Type: schema.String, Desc: "Target wearer", Enum: []string{"men", "women", "both"}},
			"stone_name": {Type: schema.String, Desc: "Gemstone name, e.g. Aqeeq"},
		},
		func(ctx context.Context, args searchProductsArgs) (Output, error) {
			f, err := args.filter()
			if err != nil {
				return Output{}, err
			}
			products, err := catalog.SearchProducts(ctx, f)
			if err != nil {
				return Output{}, fmt.Errorf("search products: %w", err)
			}
			return Output{Result: products}, nil
		},
	)
}

// productID accepts a JSON number or a numeric string; models emit both.
type productID int64

func (p *productID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fmt.Errorf("product id %s is not an integer", string(b))
	}
	*p = productID(v)
	return nil
}

type checkStockArgs struct {
	ProductID productID `json:"product_id" validate:"gt=0"`
}

type StockStatus struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Stock     int             `json:"stock"`
	Status    string          `json:"status"`
	PriceUSD  decimal.Decimal `json:"price_usd"`
}

func stockStatus(stock int) string {
	switch {
	case stock > 5:
		return "In Stock"
	case stock > 0:
		return "Low Stock"
	default:
		return "Out of Stock"
	}
}

func checkStockTool(catalog datastorex.Catalog) Tool {
	return define(ToolCheckStock,
		"Check stock availability for one product.",
		map[string]*schema.ParameterInfo{
			"product_id": {Type: schema.Integer, Desc: "Product ID", Required: true},
		},
		func(ctx context.Context, args checkStockArgs) (Output, error) {
			p, err := catalog.Product(ctx, int64(args.ProductID))
			if errors.Is(err, datastorex.ErrNotFound) {
				return Output{Result: notFound("Product")}, nil
			}
			if err != nil {
				return Output{}, fmt.Errorf("check stock: %w", err)
			}
			return Output{Result: StockStatus{
				ProductID: p.ID,
				Name:      p.Name,
				Stock:     p.Stock,
				Status:    stockStatus(p.Stock),
				PriceUSD:  p.PriceUSD,
			}}, nil
		},
	)
}

// idList accepts "1,2,3" or [1,2,3].
type idList []int64

func (l *idList) UnmarshalJSON(b []byte) error {
	var nums []productID
	if err := json.Unmarshal(b, &nums); err == nil {
		out := make(idList, 0, len(nums))
		for _, n := range nums {
			out = append(out, int64(n))
		}
		*l = out
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("product_ids must be a list or a comma-separated string")
	}
	out := idList{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return fmt.Errorf("product id %q is not an integer", part)
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

type compareProductsArgs struct {
	ProductIDs idList `json:"product_ids" validate:"min=2,max=5,dive,gt=0"`
}

func compareProductsTool(catalog datastorex.Catalog) Tool {
	return define(ToolCompareProducts,
		fmt.Sprintf("Compare %d to %d products side by side.", minCompare, maxCompare),
		map[string]*schema.ParameterInfo{
			"product_ids": {Type: schema.String, Desc: "Comma-separated product IDs, e.g. 1,2,3", Required: true},
		},
		func(ctx context.Context, args compareProductsArgs) (Output, error) {
			products, err := catalog.ProductsByIDs(ctx, args.ProductIDs)
			if err != nil {
				return Output{}, fmt.Errorf("compare products: %w", err)
			}
			return Output{Result: products}, nil
		},
	)
}

type productReviewsArgs struct {
	ProductID productID `json:"product_id" validate:"gt=0"`
	Limit     int       `json:"limit" validate:"gte=0,lte=10"`
}

type ProductReviews struct {
	ProductID     int64               `json:"product_id"`
	ProductName   string              `json:"product_name"`
	OverallRating decimal.Decimal     `json:"overall_rating"`
	TotalReviews  int                 `json:"total_reviews"`
	Reviews       []datastorex.Review `json:"reviews"`
}

func productReviewsTool(catalog datastorex.Catalog) Tool {
	return define(ToolGetProductReviews,
		"Get the most recent customer reviews for a product with its average rating.",
		map[string]*schema.ParameterInfo{
			"product_id": {Type: schema.Integer, Desc: "Product ID", Required: true},
			"limit":      {Type: schema.Integer, Desc: "Maximum number of reviews, default 5"},
		},
		func(ctx context.Context, args productReviewsArgs) (Output, error) {
			id := int64(args.ProductID)
			p, err := catalog.Product(ctx, id)
			if errors.Is(err, datastorex.ErrNotFound) {
				return Output{Result: notFound("Product")}, nil
			}
			if err != nil {
				return Output{}, fmt.Errorf("product reviews: %w", err)
			}

			limit := args.Limit
			if limit == 0 {
				limit = defaultReviewLimit
			}
			reviews, err := catalog.ProductReviews(ctx, id, limit)
			if err != nil {
				return Output{}, fmt.Errorf("product reviews: %w", err)
			}

			out := ProductReviews{
				ProductID:     p.ID,
				ProductName:   p.Name,
				OverallRating: decimal.Zero,
				TotalReviews:  len(reviews),
				Reviews:       reviews,
			}
			if len(reviews) > 0 {
				sum := decimal.Zero
				for _, r := range reviews {
					sum = sum.Add(decimal.NewFromInt(int64(r.Rating)))
				}
				out.OverallRating = sum.Div(decimal.NewFromInt(int64(len(reviews)))).Round(1)
			}
			return Output{Result: out}, nil
		},
	)
}

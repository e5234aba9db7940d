package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"

	datastorex "github.com/tanpawarit/albaqer-concierge/agent/datastore"
)

const (
	ToolConvertCurrency   = "convert_currency"
	ToolDeliveryFee       = "calculate_delivery_fee"
	ToolGetPaymentMethods = "get_payment_methods"
)

// DefaultDeliveryFeeUSD is quoted when the governorate has no zone.
var DefaultDeliveryFeeUSD = decimal.RequireFromString("5.00")

type convertCurrencyArgs struct {
	AmountUSD      *float64 `json:"amount_usd" validate:"required,gte=0"`
	TargetCurrency string   `json:"target_currency" validate:"oneof=LBP EUR USD"`
}

func (a *convertCurrencyArgs) normalize() {
	a.TargetCurrency = strings.ToUpper(strings.TrimSpace(a.TargetCurrency))
	if a.TargetCurrency == "" {
		a.TargetCurrency = "LBP"
	}
}

type Conversion struct {
	AmountUSD       decimal.Decimal `json:"amount_usd"`
	TargetCurrency  string          `json:"target_currency"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	RateType        string          `json:"rate_type"`
}

func rateType(official bool) string {
	if official {
		return "official"
	}
	return "parallel market"
}

func convertCurrencyTool(catalog datastorex.Catalog) Tool {
	return define(ToolConvertCurrency,
		"Convert a USD amount to Lebanese Pound (LBP) or Euro (EUR) at the latest recorded rate.",
		map[string]*schema.ParameterInfo{
			"amount_usd":      {Type: schema.Number, Desc: "Amount in USD", Required: true},
			"target_currency": {Type: schema.String, Desc: "Target currency, default LBP", Enum: []string{"LBP", "EUR"}},
		},
		func(ctx context.Context, args convertCurrencyArgs) (Output, error) {
			amount := decimal.NewFromFloat(*args.AmountUSD)
			if args.TargetCurrency == "USD" {
				return Output{Result: Conversion{
					AmountUSD:       amount,
					TargetCurrency:  "USD",
					ConvertedAmount: amount.Round(2),
					ExchangeRate:    decimal.NewFromInt(1),
					RateType:        rateType(true),
				}}, nil
			}

			rate, err := catalog.LatestRate(ctx, args.TargetCurrency)
			if errors.Is(err, datastorex.ErrNotFound) {
				return Output{Result: notFound("Currency")}, nil
			}
			if err != nil {
				return Output{}, fmt.Errorf("convert currency: %w", err)
			}
			return Output{Result: Conversion{
				AmountUSD:       amount,
				TargetCurrency:  rate.CurrencyCode,
				ConvertedAmount: amount.Mul(rate.RateToUSD).Round(2),
				ExchangeRate:    rate.RateToUSD,
				RateType:        rateType(rate.OfficialRate),
			}}, nil
		},
	)
}

type deliveryFeeArgs struct {
	Governorate string `json:"governorate" validate:"required,max=100"`
}

func (a *deliveryFeeArgs) normalize() {
	a.Governorate = strings.TrimSpace(a.Governorate)
}

type ZoneMissing struct {
	Error      string  `json:"error"`
	DefaultFee float64 `json:"default_fee"`
}

func deliveryFeeTool(catalog datastorex.Catalog) Tool {
	return define(ToolDeliveryFee,
		"Look up the delivery fee and time for a Lebanese governorate or zone.",
		map[string]*schema.ParameterInfo{
			"governorate": {Type: schema.String, Desc: "Governorate or zone, e.g. Beirut or Mount Lebanon", Required: true},
		},
		func(ctx context.Context, args deliveryFeeArgs) (Output, error) {
			zone, err := catalog.DeliveryZone(ctx, args.Governorate)
			if errors.Is(err, datastorex.ErrNotFound) {
				return Output{Result: ZoneMissing{Error: "Zone not found", DefaultFee: DefaultDeliveryFeeUSD.InexactFloat64()}}, nil
			}
			if err != nil {
				return Output{}, fmt.Errorf("delivery fee: %w", err)
			}
			return Output{Result: zone}, nil
		},
	)
}

type noArgs struct{}

func paymentMethodsTool(catalog datastorex.Catalog) Tool {
	return define(ToolGetPaymentMethods,
		"List the payment methods currently accepted, with fees and instructions.",
		nil,
		func(ctx context.Context, _ noArgs) (Output, error) {
			methods, err := catalog.PaymentMethods(ctx)
			if err != nil {
				return Output{}, fmt.Errorf("payment methods: %w", err)
			}
			return Output{Result: methods}, nil
		},
	)
}

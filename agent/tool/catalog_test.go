package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
	datastorex "github.com/tanpawarit/albaqer-concierge/agent/datastore"
	retrievalx "github.com/tanpawarit/albaqer-concierge/agent/retrieval"
)

type stubSearcher struct {
	matches  []retrievalx.Match
	err      error
	lastK    int
	filtered bool
}

func (s *stubSearcher) Search(_ context.Context, _ string, k int, filter retrievalx.Filter) ([]retrievalx.Match, error) {
	s.lastK = k
	s.filtered = filter != nil
	return s.matches, s.err
}

type failingCatalog struct {
	datastorex.Catalog
}

func (failingCatalog) PaymentMethods(context.Context) ([]datastorex.PaymentMethod, error) {
	return nil, errors.New("connection refused")
}

func newTestToolbox(t *testing.T, searcher Searcher) (*Toolbox, *datastorex.MemoryCatalog) {
	t.Helper()
	catalog := datastorex.NewMemoryCatalog(datastorex.SampleSeed())
	box, err := NewToolbox(Deps{
		Catalog:   catalog,
		Knowledge: searcher,
		Now:       func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return box, catalog
}

func TestToolboxRegistersEveryTool(t *testing.T) {
	t.Parallel()

	box, _ := newTestToolbox(t, nil)
	assert.Equal(t, []string{
		ToolSearchProducts, ToolCheckStock, ToolGetStoneInfo, ToolGetKnowledgeBase,
		ToolCompareProducts, ToolConvertCurrency, ToolDeliveryFee, ToolGetPaymentMethods,
		ToolCalculate, ToolGetProductReviews, ToolSubmitFeedback,
	}, box.Names())

	infos, err := box.Infos([]string{ToolCheckStock, ToolCalculate})
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, ToolCheckStock, infos[0].Name)

	_, err = box.Infos([]string{"delete_everything"})
	assert.Error(t, err)
}

func TestSearchProductsPriceCeiling(t *testing.T) {
	t.Parallel()

	box, _ := newTestToolbox(t, nil)
	res := box.Invoke(context.Background(), ToolSearchProducts, `{"query":"ring","max_price":100}`)
	require.Empty(t, res.Error)

	products, ok := res.Result.([]datastorex.Product)
	require.True(t, ok, "unexpected result type %T", res.Result)
	require.NotEmpty(t, products)
	for _, p := range products {
		assert.True(t, p.PriceUSD.LessThanOrEqual(decimal.NewFromInt(100)), "product %d costs %s", p.ID, p.PriceUSD)
	}
}

func TestSearchProductsArgumentErrors(t *testing.T) {
	t.Parallel()

	box, _ := newTestToolbox(t, nil)
	tests := []struct {
		name string
		args string
	}{
		{name: "malformed json", args: `{"query":`},
		{name: "wrong type", args: `{"max_price":"cheap"}`},
		{name: "unknown gender", args: `{"gender":"kids"}`},
		{name: "negative price", args: `{"min_price":-3}`},
		{name: "inverted range", args: `{"min_price":200,"max_price":50}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := box.Invoke(context.Background(), ToolSearchProducts, tt.args)
			assert.Contains(t, res.Error, contractx.ErrToolArgument.Error())
			assert.Nil(t, res.Result)
		})
	}
}

func TestSearchProductsGenderIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	box, _ := newTestToolbox(t, nil)
	res := box.Invoke(context.Background(), ToolSearchProducts, `{"gender":"Women"}`)
	require.Empty(t, res.Error)
	assert.Len(t, res.Result, 3)
}

func TestCheckStockStatus(t *testing.T) {
	t.Parallel()

	box, _ := newTestToolbox(t, nil)
	tests := []struct {
		args string
		want string
	}{
		{args: `{"product_id":1}`, want: "In Stock"},
		{args: `{"product_id":"2"}`, want: "Low Stock"},
		{args: `{"product_id":3}`, want: "Out of Stock"},
	}
	for _, tt := range tests {
		res := box.Invoke(context.Background(), ToolCheckStock, tt.args)
		require.Empty(t, res.Error)
		status, ok := res.Result.(StockStatus)
		require.True(t, ok)
		assert.Equal(t, tt.want, status.Status, tt.args)
	}

	res := box.Invoke(context.Background(), ToolCheckStock, `{"product_id":404}`)
	require.Empty(t, res.Error)
	assert.Equal(t, map[string]any{"error": "Product not found"}, res.Result)
}

func TestStockStatusThresholds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "In Stock", stockStatus(6))
	assert.Equal(t, "Low Stock", stockStatus(5))
	assert.Equal(t, "Low Stock", stockStatus(1))
	assert.Equal(t, "Out of Stock", stockStatus(0))
	assert.Equal(t, "Out of Stock", stockStatus(-1))
}

func TestConvertCurrency(t *testing.T) {
	t.Parallel()

	box, _ := newTestToolbox(t, nil)

	res := box.Invoke(context.Background(), ToolConvertCurrency, `{"amount_usd":85}`)
	require.Empty(t, res.Error)
	conv, ok := res.Result.(Conversion)
	require.True(t, ok)
	assert.Equal(t, "LBP", conv.TargetCurrency)
	assert.True(t, conv.ConvertedAmount.Equal(decimal.NewFromInt(7607500)), conv.ConvertedAmount.String())
	assert.Equal(t, "parallel market", conv.RateType)

	res = box.Invoke(context.Background(), ToolConvertCurrency, `{"amount_usd":10.555,"target_currency":"eur"}`)
	require.Empty(t, res.Error)
	conv = res.Result.(Conversion)
	assert.True(t, conv.ConvertedAmount.Equal(decimal.RequireFromString("9.71")), conv.ConvertedAmount.String())
	assert.Equal(t, "official", conv.RateType)

	res = box.Invoke(context.Background(), ToolConvertCurrency, `{"amount_usd":10,"target_currency":"JPY"}`)
	assert.Contains(t, res.Error, contractx.ErrToolArgument.Error())

	res = box.Invoke(context.Background(), ToolConvertCurrency, `{"amount_usd":0,"target_currency":"EUR"}`)
	require.Empty(t, res.Error)
	conv = res.Result.(Conversion)
	assert.True(t, conv.ConvertedAmount.IsZero())
}

func TestConvertCurrencyRequiresAmount(t *testing.T) {
	t.Parallel()

	box, _ := newTestToolbox(t, nil)

	for _, raw := range []string{`{}`, `{"target_currency":"LBP"}`, `{"amount_usd":null}`, `{"amount_usd":-5}`} {
		res := box.Invoke(context.Background(), ToolConvertCurrency, raw)
		assert.Nil(t, res.Result, raw)
		assert.Contains(t, res.Error, contractx.ErrToolArgument.Error(), raw)
	}
	res := box.Invoke(context.Background(), ToolConvertCurrency, `{}`)
	assert.Contains(t, res.Error, "AmountUSD must satisfy required")
}

func TestDeliveryFeeDefaultsWhenZoneMissing(t *testing.T) {
	t.Parallel()

	box, _ := newTestToolbox(t, nil)

	res := box.Invoke(context.Background(), ToolDeliveryFee, `{"governorate":"beirut"}`)
	require.Empty(t, res.Error)
	zone, ok := res.Result.(datastorex.DeliveryZone)
	require.True(t, ok)
	assert.Equal(t, "Beirut Central", zone.ZoneName)

	res = box.Invoke(context.Background(), ToolDeliveryFee, `{"governorate":"Akkar"}`)
	require.Empty(t, res.Error)
	assert.Equal(t, ZoneMissing{Error: "Zone not found", DefaultFee: 5}, res.Result)
}

func TestKnowledgeBaseReturnsSources(t *testing.T) {
	t.Parallel()

	searcher := &stubSearcher{matches: []retrievalx.Match{
		{Entry: retrievalx.KnowledgeEntry{ID: "kb-1", Title: "Caring for Aqeeq", Body: "Wipe with a soft cloth.", Category: "care"}, Score: 0.91, Mode: retrievalx.ModeSemantic},
		{Entry: retrievalx.KnowledgeEntry{ID: "kb-2", Title: "Aqeeq in hadith", Body: "Narrations mention aqeeq.", Category: "islamic"}, Score: 0.55, Mode: retrievalx.ModeSemantic},
	}}
	box, _ := newTestToolbox(t, searcher)

	res := box.Invoke(context.Background(), ToolGetKnowledgeBase, `{"topic":"aqeeq care","category":"care"}`)
	require.Empty(t, res.Error)
	assert.Equal(t, retrievalx.DefaultTopK, searcher.lastK)
	assert.True(t, searcher.filtered)

	articles, ok := res.Result.([]KnowledgeArticle)
	require.True(t, ok)
	require.Len(t, articles, 2)
	assert.Equal(t, "Wipe with a soft cloth.", articles[0].Content)
	assert.Equal(t, []contractx.Source{
		{ID: "kb-1", Title: "Caring for Aqeeq", Category: "care", Score: 0.91},
		{ID: "kb-2", Title: "Aqeeq in hadith", Category: "islamic", Score: 0.55},
	}, res.Sources)
}

func TestKnowledgeBaseEmptyAndFailure(t *testing.T) {
	t.Parallel()

	box, _ := newTestToolbox(t, &stubSearcher{})
	res := box.Invoke(context.Background(), ToolGetKnowledgeBase, `{"topic":"diamonds"}`)
	require.Empty(t, res.Error)
	assert.Equal(t, map[string]any{"error": "No relevant information found"}, res.Result)
	assert.Empty(t, res.Sources)

	box, _ = newTestToolbox(t, &stubSearcher{err: retrievalx.ErrCorpusUnavailable})
	res = box.Invoke(context.Background(), ToolGetKnowledgeBase, `{"topic":"diamonds"}`)
	assert.Contains(t, res.Error, contractx.ErrToolExecution.Error())

	box, _ = newTestToolbox(t, nil)
	res = box.Invoke(context.Background(), ToolGetKnowledgeBase, `{"topic":"diamonds"}`)
	assert.Contains(t, res.Error, "not configured")
}

func TestCompareProducts(t *testing.T) {
	t.Parallel()

	box, _ := newTestToolbox(t, nil)

	for _, args := range []string{`{"product_ids":"1, 2,4"}`, `{"product_ids":[1,2,4]}`} {
		res := box.Invoke(context.Background(), ToolCompareProducts, args)
		require.Empty(t, res.Error, args)
		products := res.Result.([]datastorex.Product)
		require.Len(t, products, 3)
		assert.Equal(t, int64(4), products[2].ID)
	}

	res := box.Invoke(context.Background(), ToolCompareProducts, `{"product_ids":"1"}`)
	assert.Contains(t, res.Error, contractx.ErrToolArgument.Error())
	res = box.Invoke(context.Background(), ToolCompareProducts, `{"product_ids":"1,2,3,4,5,6"}`)
	assert.Contains(t, res.Error, contractx.ErrToolArgument.Error())
}

func TestProductReviews(t *testing.T) {
	t.Parallel()

	box, _ := newTestToolbox(t, nil)
	res := box.Invoke(context.Background(), ToolGetProductReviews, `{"product_id":1}`)
	require.Empty(t, res.Error)
	reviews := res.Result.(ProductReviews)
	assert.Equal(t, 2, reviews.TotalReviews)
	assert.True(t, reviews.OverallRating.Equal(decimal.RequireFromString("4.5")))
	assert.Equal(t, "Ali", reviews.Reviews[0].Reviewer)
}

func TestSubmitFeedbackUsesSession(t *testing.T) {
	t.Parallel()

	box, catalog := newTestToolbox(t, nil)
	ctx := ContextWithSession(context.Background(), "sess-42")

	res := box.Invoke(ctx, ToolSubmitFeedback, `{"rating":5,"comment":" lovely ring "}`)
	require.Empty(t, res.Error)

	rows := catalog.Feedback()
	require.Len(t, rows, 1)
	assert.Equal(t, "sess-42", rows[0].SessionID)
	assert.Equal(t, "lovely ring", rows[0].Comment)

	res = box.Invoke(ctx, ToolSubmitFeedback, `{"rating":9}`)
	assert.Contains(t, res.Error, contractx.ErrToolArgument.Error())
	assert.Len(t, catalog.Feedback(), 1)
}

func TestExecutionErrorIsWrapped(t *testing.T) {
	t.Parallel()

	box, err := NewToolbox(Deps{Catalog: failingCatalog{}})
	require.NoError(t, err)

	res := box.Invoke(context.Background(), ToolGetPaymentMethods, "")
	assert.Contains(t, res.Error, contractx.ErrToolExecution.Error())
	assert.Contains(t, res.Error, "connection refused")
}

func TestUnknownToolAndExecutorRestriction(t *testing.T) {
	t.Parallel()

	box, _ := newTestToolbox(t, nil)

	res := box.Invoke(context.Background(), "drop_tables", "{}")
	assert.Equal(t, "drop_tables", res.Tool)
	assert.NotEmpty(t, res.Error)

	exec := box.Executor("DELIVERY_AGENT", []string{ToolDeliveryFee})
	denied := exec(context.Background(), ToolSubmitFeedback, `{"rating":5}`)
	assert.Equal(t, "tool=submit_feedback is unavailable for specialist=DELIVERY_AGENT", denied.Error)

	allowed := exec(context.Background(), ToolDeliveryFee, `{"governorate":"Metn"}`)
	assert.Empty(t, allowed.Error)
}

func TestCalculateTool(t *testing.T) {
	t.Parallel()

	box, _ := newTestToolbox(t, nil)
	res := box.Invoke(context.Background(), ToolCalculate, `{"expression":"(85 + 3) * 0.9"}`)
	require.Empty(t, res.Error)
	out := res.Result.(CalculateOutput)
	assert.InDelta(t, 79.2, out.Result, 1e-9)
	assert.True(t, out.Rounded.Equal(decimal.RequireFromString("79.2")))

	res = box.Invoke(context.Background(), ToolCalculate, `{"expression":"2 + abc"}`)
	assert.Contains(t, res.Error, contractx.ErrToolArgument.Error())
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr string
		want float64
	}{
		{expr: "2 + 3 * (4 - 1)", want: 11},
		{expr: "2 ^ 3 ^ 2", want: 512},
		{expr: "-2 ^ 2", want: -4},
		{expr: "(-2) ^ 2", want: 4},
		{expr: "10 % 4 + .5", want: 2.5},
		{expr: "100 - 10 - 5", want: 85},
		{expr: "8 / 2 / 2", want: 2},
		{expr: "--3", want: 3},
	}
	for _, tt := range tests {
		got, err := Evaluate(tt.expr)
		require.NoError(t, err, tt.expr)
		assert.InDelta(t, tt.want, got, 1e-9, tt.expr)
	}

	for _, bad := range []string{"", "1 / 0", "5 % 0", "(1 + 2", "1 2", "3 +", "1.2.3", "x"} {
		_, err := Evaluate(bad)
		assert.Error(t, err, bad)
	}
}

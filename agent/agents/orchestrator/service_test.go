package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	routerx "github.com/tanpawarit/albaqer-concierge/agent/agents/router"
	specialistx "github.com/tanpawarit/albaqer-concierge/agent/agents/specialist"
	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
	datastorex "github.com/tanpawarit/albaqer-concierge/agent/datastore"
	llmx "github.com/tanpawarit/albaqer-concierge/agent/llm"
	nodex "github.com/tanpawarit/albaqer-concierge/agent/nodes"
	promptx "github.com/tanpawarit/albaqer-concierge/agent/prompt"
	retrievalx "github.com/tanpawarit/albaqer-concierge/agent/retrieval"
	statex "github.com/tanpawarit/albaqer-concierge/agent/state"
	toolx "github.com/tanpawarit/albaqer-concierge/agent/tool"
	transcriptx "github.com/tanpawarit/albaqer-concierge/agent/transcript"
)

type routeReply struct {
	text string
	err  error
}

// fakeGateway answers routing calls (no tools attached) per backend and
// replays loop outputs in order for everything else.
type fakeGateway struct {
	route      map[contractx.BackendID]routeReply
	loop       []contractx.ModelOutput
	loopErr    error
	routeCalls []contractx.BackendID
	loopCalls  int
}

func (f *fakeGateway) Generate(_ context.Context, backend contractx.BackendID, req contractx.ModelRequest) (contractx.ModelOutput, error) {
	if len(req.Tools) == 0 {
		f.routeCalls = append(f.routeCalls, backend)
		reply, ok := f.route[backend]
		if !ok {
			return contractx.ModelOutput{}, &contractx.ModelError{Backend: backend, Kind: contractx.ErrModelUnavailable}
		}
		if reply.err != nil {
			return contractx.ModelOutput{}, reply.err
		}
		return contractx.ModelOutput{Kind: contractx.OutputFinalAnswer, Text: reply.text}, nil
	}

	f.loopCalls++
	if f.loopErr != nil {
		return contractx.ModelOutput{}, f.loopErr
	}
	idx := f.loopCalls - 1
	if idx >= len(f.loop) {
		return contractx.ModelOutput{}, fmt.Errorf("no loop output left at call=%d", f.loopCalls)
	}
	return f.loop[idx], nil
}

func unavailable(backend contractx.BackendID) routeReply {
	return routeReply{err: &contractx.ModelError{Backend: backend, Kind: contractx.ErrModelUnavailable, Err: errors.New("connection refused")}}
}

func routeTo(name contractx.SpecialistName) map[contractx.BackendID]routeReply {
	return map[contractx.BackendID]routeReply{contractx.BackendReasoning: {text: string(name)}}
}

func finalAnswer(text string) contractx.ModelOutput {
	return contractx.ModelOutput{Kind: contractx.OutputFinalAnswer, Text: text, Message: schema.AssistantMessage(text, nil)}
}

func toolCall(name, args string) contractx.ModelOutput {
	return contractx.ModelOutput{
		Kind:      contractx.OutputToolRequest,
		ToolCalls: []schema.ToolCall{{ID: "c1", Function: schema.FunctionCall{Name: name, Arguments: args}}},
	}
}

type fakeStore struct {
	loadErr error
	saveErr error
	stored  map[string]*statex.Session
	saved   []*statex.Session
}

func (f *fakeStore) Load(_ context.Context, sessionID string) (*statex.Session, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	sess, ok := f.stored[sessionID]
	if !ok {
		return nil, statex.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

func (f *fakeStore) Save(_ context.Context, sess *statex.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, sess.Clone())
	return nil
}

func (f *fakeStore) Delete(context.Context, string) error {
	return nil
}

type fakeRecorder struct {
	err       error
	exchanges []transcriptx.Exchange
}

func (f *fakeRecorder) Record(_ context.Context, ex transcriptx.Exchange) error {
	f.exchanges = append(f.exchanges, ex)
	return f.err
}

// keywordEmbedder maps text onto one axis per stone it mentions.
type keywordEmbedder struct{}

var embedAxes = []string{"aqeeq", "turquoise", "najaf"}

func (keywordEmbedder) Version() string { return "kw-1" }
func (keywordEmbedder) Dimension() int  { return len(embedAxes) + 1 }
func (keywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	v := make([]float64, len(embedAxes)+1)
	lower := strings.ToLower(text)
	hit := false
	for i, kw := range embedAxes {
		if strings.Contains(lower, kw) {
			v[i] = 1
			hit = true
		}
	}
	if !hit {
		v[len(embedAxes)] = 1
	}
	return v, nil
}

func knowledgeCorpus(t *testing.T) *retrievalx.Engine {
	t.Helper()
	emb := keywordEmbedder{}
	entries := []retrievalx.KnowledgeEntry{
		{ID: "kb-aqeeq", Title: "Aqeeq in Islamic tradition", Body: "Aqeeq (agate) was worn by the Prophet.", Category: "stones"},
		{ID: "kb-feroza", Title: "Feroza and victory", Body: "Turquoise from Nishapur.", Category: "stones"},
		{ID: "kb-najaf", Title: "Dur Al-Najaf", Body: "Najaf quartz is clear.", Category: "stones"},
		{ID: "kb-care", Title: "Caring for silver", Body: "Polish gently.", Category: "care"},
	}
	for i := range entries {
		vec, _ := emb.Embed(context.Background(), entries[i].Title+" "+entries[i].Body)
		entries[i].Embedding = vec
		entries[i].EmbeddingVersion = emb.Version()
	}
	engine, err := retrievalx.NewEngine(emb, retrievalx.StaticCorpus(entries))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

type testDeps struct {
	store    statex.Store
	recorder transcriptx.Recorder
}

func newTestOrchestrator(t *testing.T, gw *fakeGateway, deps testDeps) *Orchestrator {
	t.Helper()

	catalog := datastorex.NewMemoryCatalog(datastorex.SampleSeed())
	toolbox, err := toolx.NewToolbox(toolx.Deps{Catalog: catalog, Knowledge: knowledgeCorpus(t)})
	if err != nil {
		t.Fatalf("NewToolbox() error = %v", err)
	}
	prompts, err := promptx.LoadPromptSet()
	if err != nil {
		t.Fatalf("LoadPromptSet() error = %v", err)
	}
	registry, err := specialistx.NewRegistry(prompts, toolbox)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	selector := llmx.NewSelector(llmx.SelectorConfig{})
	router, err := routerx.New(gw, selector, prompts.Router, registry.Roster(), registry.Names())
	if err != nil {
		t.Fatalf("router.New() error = %v", err)
	}
	loop, err := specialistx.NewLoop(gw, selector, specialistx.LoopConfig{})
	if err != nil {
		t.Fatalf("NewLoop() error = %v", err)
	}

	o, err := New(Deps{
		Router:   router,
		Registry: registry,
		Loop:     loop,
		Store:    deps.store,
		Recorder: deps.recorder,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	o.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return o
}

func invocations(t *testing.T, resp contractx.ChatResponse) []contractx.ToolInvocation {
	t.Helper()
	inv, ok := resp.Metadata[nodex.MetaToolInvocations].([]contractx.ToolInvocation)
	if !ok {
		t.Fatalf("tool_invocations metadata has type %T", resp.Metadata[nodex.MetaToolInvocations])
	}
	return inv
}

func TestHandleRingsUnderPriceCeiling(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		route: routeTo(contractx.SpecialistSearch),
		loop: []contractx.ModelOutput{
			toolCall(toolx.ToolSearchProducts, `{"query":"ring","max_price":100}`),
			finalAnswer("Here are rings under $100: Yemeni Aqeeq Silver Ring ($85) and Dur Al-Najaf Ladies Ring ($65.50)."),
		},
	}
	o := newTestOrchestrator(t, gw, testDeps{})

	resp, err := o.Handle(context.Background(), contractx.Query{Text: "Show me rings under $100", SessionID: "s-search"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Specialist != contractx.SpecialistSearch {
		t.Fatalf("routed to %s", resp.Specialist)
	}

	inv := invocations(t, resp)
	if len(inv) != 1 || inv[0].Tool != toolx.ToolSearchProducts || inv[0].Error != "" {
		t.Fatalf("unexpected invocations: %+v", inv)
	}
	if !strings.Contains(inv[0].Arguments, `"max_price":100`) {
		t.Fatalf("price ceiling not passed: %s", inv[0].Arguments)
	}

	var products []datastorex.Product
	if err := json.Unmarshal([]byte(inv[0].Result), &products); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	if len(products) == 0 {
		t.Fatal("expected at least one product under the ceiling")
	}
	ceiling := decimal.NewFromInt(100)
	for _, p := range products {
		if p.PriceUSD.GreaterThan(ceiling) {
			t.Fatalf("product %q priced %s exceeds ceiling", p.Name, p.PriceUSD)
		}
	}
	if strings.Contains(resp.Text, "Yaqoot") || strings.Contains(resp.Text, "Feroza") {
		t.Fatalf("answer mentions an item over the ceiling: %q", resp.Text)
	}
}

func TestHandleKnowledgeAboutAqeeq(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		route: routeTo(contractx.SpecialistKnowledge),
		loop: []contractx.ModelOutput{
			toolCall(toolx.ToolGetKnowledgeBase, `{"topic":"Aqeeq"}`),
			finalAnswer("According to \"Aqeeq in Islamic tradition\", aqeeq was worn by the Prophet."),
		},
	}
	o := newTestOrchestrator(t, gw, testDeps{})

	resp, err := o.Handle(context.Background(), contractx.Query{Text: "Tell me about Aqeeq"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Specialist != contractx.SpecialistKnowledge {
		t.Fatalf("routed to %s", resp.Specialist)
	}
	if len(resp.Sources) == 0 || resp.Sources[0].ID != "kb-aqeeq" {
		t.Fatalf("expected aqeeq entry as top source, got %+v", resp.Sources)
	}
	if len(resp.Sources) > retrievalx.DefaultTopK {
		t.Fatalf("expected at most %d sources, got %d", retrievalx.DefaultTopK, len(resp.Sources))
	}
	if !strings.Contains(resp.Text, resp.Sources[0].Title) {
		t.Fatalf("answer does not reference the top entry: %q", resp.Text)
	}
}

func TestHandleUnrecognisedRouterOutputUsesDefault(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		route: map[contractx.BackendID]routeReply{contractx.BackendReasoning: {text: "FOO_AGENT"}},
		loop:  []contractx.ModelOutput{finalAnswer("How can I help you today?")},
	}
	o := newTestOrchestrator(t, gw, testDeps{})

	resp, err := o.Handle(context.Background(), contractx.Query{Text: "hmm", SessionID: "s-foo"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Specialist != contractx.DefaultSpecialist {
		t.Fatalf("expected default specialist, got %s", resp.Specialist)
	}
	if resp.Text != "How can I help you today?" || resp.SessionID != "s-foo" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if fallback, _ := resp.Metadata[nodex.MetaRoutingFallback].(bool); !fallback {
		t.Fatalf("routing_fallback metadata = %v", resp.Metadata[nodex.MetaRoutingFallback])
	}
	if resp.Sources == nil {
		t.Fatal("sources must be an empty list, not nil")
	}
}

func TestHandleBothBackendsUnreachable(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		route: map[contractx.BackendID]routeReply{
			contractx.BackendReasoning: unavailable(contractx.BackendReasoning),
			contractx.BackendFast:      unavailable(contractx.BackendFast),
		},
	}
	recorder := &fakeRecorder{}
	o := newTestOrchestrator(t, gw, testDeps{recorder: recorder})

	_, err := o.Handle(context.Background(), contractx.Query{Text: "is the Feroza ring in stock?"})
	if !errors.Is(err, contractx.ErrBackendsUnavailable) {
		t.Fatalf("expected ErrBackendsUnavailable, got %v", err)
	}
	var me *contractx.ModelError
	if !errors.As(err, &me) {
		t.Fatalf("expected wrapped ModelError, got %v", err)
	}
	if len(gw.routeCalls) != 2 || gw.routeCalls[0] == gw.routeCalls[1] {
		t.Fatalf("expected one attempt per backend, got %v", gw.routeCalls)
	}
	if gw.loopCalls != 0 {
		t.Fatalf("loop must not run, got %d calls", gw.loopCalls)
	}
	if len(recorder.exchanges) != 0 {
		t.Fatalf("nothing should be recorded, got %d", len(recorder.exchanges))
	}
}

func TestHandleRetriesRoutingOnAlternateBackend(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		route: map[contractx.BackendID]routeReply{
			contractx.BackendReasoning: unavailable(contractx.BackendReasoning),
			contractx.BackendFast:      {text: "DELIVERY_AGENT"},
		},
		loop: []contractx.ModelOutput{
			toolCall(toolx.ToolDeliveryFee, `{"governorate":"South"}`),
			finalAnswer("Delivery to Tyre costs $6."),
		},
	}
	o := newTestOrchestrator(t, gw, testDeps{})

	resp, err := o.Handle(context.Background(), contractx.Query{Text: "delivery fee to Tyre?"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Specialist != contractx.SpecialistDelivery {
		t.Fatalf("routed to %s", resp.Specialist)
	}
	if got := resp.Metadata[nodex.MetaRoutedBackend]; got != string(contractx.BackendFast) {
		t.Fatalf("routed_backend = %v", got)
	}
	want := []contractx.BackendID{contractx.BackendReasoning, contractx.BackendFast}
	if len(gw.routeCalls) != 2 || gw.routeCalls[0] != want[0] || gw.routeCalls[1] != want[1] {
		t.Fatalf("route calls = %v, want %v", gw.routeCalls, want)
	}
}

func TestHandleLoopFailureYieldsApology(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	recorder := &fakeRecorder{}
	gw := &fakeGateway{
		route:   routeTo(contractx.SpecialistPayment),
		loopErr: &contractx.ModelError{Backend: contractx.BackendFast, Kind: contractx.ErrModelRateLimit},
	}
	o := newTestOrchestrator(t, gw, testDeps{store: store, recorder: recorder})

	resp, err := o.Handle(context.Background(), contractx.Query{Text: "can I pay with Whish?", SessionID: "s-pay"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Text != nodex.ApologyMessage {
		t.Fatalf("expected apology, got %q", resp.Text)
	}
	if resp.Specialist != contractx.SpecialistPayment {
		t.Fatalf("routed to %s", resp.Specialist)
	}
	if msg, _ := resp.Metadata[nodex.MetaError].(string); !strings.Contains(msg, "rate limited") {
		t.Fatalf("error metadata = %v", resp.Metadata[nodex.MetaError])
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected session saved once, got %d", len(store.saved))
	}
	if len(recorder.exchanges) != 1 || !recorder.exchanges[0].Failed {
		t.Fatalf("expected one failed exchange recorded, got %+v", recorder.exchanges)
	}
}

func TestHandleGeneratesSessionID(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		route: routeTo(contractx.SpecialistCustomerService),
		loop:  []contractx.ModelOutput{finalAnswer("Welcome to Al Baqer.")},
	}
	o := newTestOrchestrator(t, gw, testDeps{})

	resp, err := o.Handle(context.Background(), contractx.Query{Text: "hello", SessionID: "  "})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if _, err := uuid.Parse(resp.SessionID); err != nil {
		t.Fatalf("session id %q is not a uuid: %v", resp.SessionID, err)
	}
}

func TestHandleSavesSessionTurns(t *testing.T) {
	t.Parallel()

	prior := statex.NewSession("s-returning", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC))
	prior.Record(statex.Turn{Query: "hi", Specialist: contractx.SpecialistCustomerService, At: prior.CreatedAt})
	store := &fakeStore{stored: map[string]*statex.Session{"s-returning": prior}}
	recorder := &fakeRecorder{}

	gw := &fakeGateway{
		route: routeTo(contractx.SpecialistInventory),
		loop: []contractx.ModelOutput{
			toolCall(toolx.ToolCheckStock, `{"product_id":2}`),
			finalAnswer("Only 3 Feroza rings left."),
		},
	}
	o := newTestOrchestrator(t, gw, testDeps{store: store, recorder: recorder})

	resp, err := o.Handle(context.Background(), contractx.Query{Text: "how many feroza rings left?", SessionID: "s-returning"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(store.saved))
	}
	saved := store.saved[0]
	if saved.Turns != 2 || saved.LastSpecialist != contractx.SpecialistInventory {
		t.Fatalf("unexpected saved session: %+v", saved)
	}
	if got := resp.Metadata[nodex.MetaTurn]; got != 2 {
		t.Fatalf("turn metadata = %v", got)
	}
	if len(recorder.exchanges) != 1 || recorder.exchanges[0].Response.Text != "Only 3 Feroza rings left." {
		t.Fatalf("unexpected exchanges: %+v", recorder.exchanges)
	}
}

func TestHandleSurvivesStoreAndRecorderFailures(t *testing.T) {
	t.Parallel()

	store := &fakeStore{loadErr: errors.New("redis down"), saveErr: errors.New("redis down")}
	recorder := &fakeRecorder{err: errors.New("qstash down")}
	gw := &fakeGateway{
		route: routeTo(contractx.SpecialistCultural),
		loop:  []contractx.ModelOutput{finalAnswer("Aqeeq is associated with protection.")},
	}
	o := newTestOrchestrator(t, gw, testDeps{store: store, recorder: recorder})

	resp, err := o.Handle(context.Background(), contractx.Query{Text: "why wear aqeeq?", SessionID: "s-down"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Text != "Aqeeq is associated with protection." {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
	if got := resp.Metadata[nodex.MetaTurn]; got != 1 {
		t.Fatalf("turn metadata = %v", got)
	}
}

func TestHandleInvalidInput(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{route: routeTo(contractx.SpecialistSearch)}
	o := newTestOrchestrator(t, gw, testDeps{})

	_, err := o.Handle(context.Background(), contractx.Query{Text: "   ", SessionID: "s1"})
	if !errors.Is(err, ErrInvalidMessage) || !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	if len(gw.routeCalls) != 0 {
		t.Fatalf("router must not be called, got %d calls", len(gw.routeCalls))
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(Deps{}); err == nil {
		t.Fatal("expected error for missing router")
	}
}

package llm

import (
	"strings"
	"testing"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
)

func TestSelectorSelect(t *testing.T) {
	t.Parallel()

	sel := NewSelector(SelectorConfig{})

	tests := []struct {
		name string
		call Call
		want contractx.BackendID
	}{
		{
			name: "simple query keeps preferred fast backend",
			call: Call{QueryText: "Do you deliver to Tyre?", Preferred: contractx.BackendFast},
			want: contractx.BackendFast,
		},
		{
			name: "simple query keeps preferred reasoning backend",
			call: Call{QueryText: "Show me rings", Preferred: contractx.BackendReasoning},
			want: contractx.BackendReasoning,
		},
		{
			name: "empty preference defaults to fast",
			call: Call{QueryText: "hello"},
			want: contractx.BackendFast,
		},
		{
			name: "trigger term escalates",
			call: Call{QueryText: "Can you compare these two rings?", Preferred: contractx.BackendFast},
			want: contractx.BackendReasoning,
		},
		{
			name: "inflected trigger term escalates",
			call: Call{QueryText: "I'm comparing aqeeq and turquoise", Preferred: contractx.BackendFast},
			want: contractx.BackendReasoning,
		},
		{
			name: "inflected recommend escalates",
			call: Call{QueryText: "what was recommended to my brother", Preferred: contractx.BackendFast},
			want: contractx.BackendReasoning,
		},
		{
			name: "word merely starting with best stays fast",
			call: Call{QueryText: "bestow this bestseller ring", Preferred: contractx.BackendFast},
			want: contractx.BackendFast,
		},
		{
			name: "explainer is not explain",
			call: Call{QueryText: "send the explainer card", Preferred: contractx.BackendFast},
			want: contractx.BackendFast,
		},
		{
			name: "short trigger matched as whole word",
			call: Call{QueryText: "aqeeq vs feroza", Preferred: contractx.BackendFast},
			want: contractx.BackendReasoning,
		},
		{
			name: "phrase trigger",
			call: Call{QueryText: "is silver better than gold for men", Preferred: contractx.BackendFast},
			want: contractx.BackendReasoning,
		},
		{
			name: "always reasoning flag",
			call: Call{QueryText: "hi", Preferred: contractx.BackendFast, AlwaysReasoning: true},
			want: contractx.BackendReasoning,
		},
		{
			name: "long query escalates",
			call: Call{QueryText: strings.Repeat("ring ", 60), Preferred: contractx.BackendFast},
			want: contractx.BackendReasoning,
		},
		{
			name: "long conversation context escalates",
			call: Call{QueryText: "ok", Preferred: contractx.BackendFast, MessageCount: 6},
			want: contractx.BackendReasoning,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := sel.Select(tt.call); got != tt.want {
				t.Fatalf("Select() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSelectorIsDeterministic(t *testing.T) {
	t.Parallel()

	sel := NewSelector(SelectorConfig{})
	call := Call{QueryText: "which ring is best for a gift", Preferred: contractx.BackendFast}
	first := sel.Select(call)
	for i := 0; i < 50; i++ {
		if got := sel.Select(call); got != first {
			t.Fatalf("Select() changed between calls: %s then %s", first, got)
		}
	}
}

func TestSelectorCustomTriggers(t *testing.T) {
	t.Parallel()

	sel := NewSelector(SelectorConfig{TriggerTerms: []string{"zakat"}})
	if got := sel.Select(Call{QueryText: "please compare", Preferred: contractx.BackendFast}); got != contractx.BackendFast {
		t.Fatalf("Select() = %s, default triggers must be replaced", got)
	}
	if got := sel.Select(Call{QueryText: "zakat on gold?", Preferred: contractx.BackendFast}); got != contractx.BackendReasoning {
		t.Fatalf("Select() = %s, want reasoning", got)
	}
}

package contract

type SpecialistName string

const (
	SpecialistSearch          SpecialistName = "SEARCH_AGENT"
	SpecialistKnowledge       SpecialistName = "KNOWLEDGE_AGENT"
	SpecialistRecommendation  SpecialistName = "RECOMMENDATION_AGENT"
	SpecialistComparison      SpecialistName = "COMPARISON_AGENT"
	SpecialistPricing         SpecialistName = "PRICING_AGENT"
	SpecialistDelivery        SpecialistName = "DELIVERY_AGENT"
	SpecialistPayment         SpecialistName = "PAYMENT_AGENT"
	SpecialistCustomerService SpecialistName = "CUSTOMER_SERVICE_AGENT"
	SpecialistCultural        SpecialistName = "CULTURAL_AGENT"
	SpecialistInventory       SpecialistName = "INVENTORY_AGENT"
)

// DefaultSpecialist handles every query the router cannot place.
const DefaultSpecialist = SpecialistCustomerService

type BackendID string

const (
	BackendFast      BackendID = "fast"
	BackendReasoning BackendID = "reasoning"
)

// Alternate returns the other backend of the pair.
func (b BackendID) Alternate() BackendID {
	if b == BackendReasoning {
		return BackendFast
	}
	return BackendReasoning
}

type Query struct {
	Text      string         `json:"text"`
	SessionID string         `json:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type RoutingDecision struct {
	Specialist SpecialistName `json:"specialist"`
	Raw        string         `json:"raw"`
	Backend    BackendID      `json:"backend"`
	Fallback   bool           `json:"fallback,omitempty"`
}

type Source struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
}

type ToolResult struct {
	Tool    string   `json:"tool"`
	Result  any      `json:"result,omitempty"`
	Error   string   `json:"error,omitempty"`
	Sources []Source `json:"-"`
}

type ToolInvocation struct {
	Tool      string `json:"tool"`
	Arguments string `json:"arguments"`
	Result    string `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

type ChatResponse struct {
	SessionID  string         `json:"session_id"`
	Text       string         `json:"message"`
	Specialist SpecialistName `json:"routed_to"`
	Sources    []Source       `json:"sources"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

package core

import (
	"time"
)

// NormalizedEmail is the canonical form of one inbound message. It is built
// once by the normalizer and never mutated afterwards.
type NormalizedEmail struct {
	ID         string
	Subject    string
	From       string
	To         string
	ReceivedAt time.Time
	Body       string
	Entities   ExtractedEntities
}

// ExtractedEntities holds identifiers found by lightweight pattern extraction
// before classification. Extraction is best-effort; unmatched patterns leave
// the slices empty.
type ExtractedEntities struct {
	OrderIDs   []string
	ProductIDs []string
	EmailAddrs []string
}

// IntentKind is the closed taxonomy of email purposes.
type IntentKind string

const (
	IntentOrderModification IntentKind = "order_modification"
	IntentOrderCancellation IntentKind = "order_cancellation"
	IntentOrderMerge        IntentKind = "order_merge"
	IntentPriceInquiry      IntentKind = "price_inquiry"
	IntentInventoryInquiry  IntentKind = "inventory_inquiry"
	IntentLogisticsInquiry  IntentKind = "logistics_inquiry"
	IntentGeneralInquiry    IntentKind = "general_inquiry"
)

// IntentKinds lists every member of the taxonomy.
var IntentKinds = []IntentKind{
	IntentOrderModification,
	IntentOrderCancellation,
	IntentOrderMerge,
	IntentPriceInquiry,
	IntentInventoryInquiry,
	IntentLogisticsInquiry,
	IntentGeneralInquiry,
}

// ValidIntentKind reports whether k is in the closed taxonomy.
func ValidIntentKind(k IntentKind) bool {
	for _, known := range IntentKinds {
		if known == k {
			return true
		}
	}
	return false
}

// Intent is the classifier's verdict for one email. Produced exactly once per
// NormalizedEmail; immutable thereafter.
type Intent struct {
	Kind       IntentKind
	Confidence float64
	Rationale  string
	Model      string
}

// ToolName identifies one Business Directory operation (plus the internal
// flag-for-review pseudo tool that never touches the directory).
type ToolName string

const (
	ToolResolveOrder          ToolName = "resolve_order"
	ToolResolveCustomer       ToolName = "resolve_customer"
	ToolResolveCustomerOrders ToolName = "resolve_customer_orders"
	ToolResolveProduct        ToolName = "resolve_product"
	ToolResolveInventory      ToolName = "resolve_inventory"
	ToolResolveLogistics      ToolName = "resolve_logistics"
	ToolInterceptShipment     ToolName = "intercept_shipment"
	ToolFlagForReview         ToolName = "flag_for_review"
)

// ActionParams carries the inputs for a planned tool invocation.
type ActionParams struct {
	OrderID    string
	ProductID  string
	Email      string
	CustomerID string
	Reason     string
}

// PlannedAction is one entry of an ActionPlan. DependsOn is the index of an
// earlier entry whose success this one requires, or -1.
type PlannedAction struct {
	Tool         ToolName
	Params       ActionParams
	Irreversible bool
	DependsOn    int
}

// ActionPlan is the ordered, data-only description of tool calls derived from
// an Intent. A plan containing an irreversible entry always carries the
// triggering confidence and the order identifiers it targets.
type ActionPlan struct {
	Intent       IntentKind
	Confidence   float64
	TargetOrders []string
	Actions      []PlannedAction
	Reviewable   bool
	ReviewReason string
}

// Irreversible reports whether any entry of the plan is irreversible.
func (p *ActionPlan) Irreversible() bool {
	for _, a := range p.Actions {
		if a.Irreversible {
			return true
		}
	}
	return false
}

// ResultStatus is the outcome class of one tool invocation.
type ResultStatus string

const (
	ResultOK      ResultStatus = "ok"
	ResultFailed  ResultStatus = "failed"
	ResultSkipped ResultStatus = "skipped"
)

// ToolResult records the outcome of one invocation. Never mutated after
// creation; appended to the owning session's trail.
type ToolResult struct {
	Tool      ToolName
	Params    ActionParams
	Status    ResultStatus
	ErrorKind ErrorKind
	Summary   string
	Payload   any
	Attempts  int
	Latency   time.Duration
}

// SessionRecord is the auditable result of processing one email.
type SessionRecord struct {
	ID         string
	EmailID    string
	Email      *NormalizedEmail
	Intent     *Intent
	Plan       *ActionPlan
	Results    []ToolResult
	State      SessionState
	Summary    string
	ErrorKind  ErrorKind
	CreatedAt  time.Time
	FinishedAt time.Time
}

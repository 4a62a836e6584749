package core

import (
	"fmt"
)

// RoutePolicy configures the irreversible-action gate.
type RoutePolicy struct {
	// ConfidenceThreshold is the minimum classifier confidence required
	// before an irreversible action may be planned.
	ConfidenceThreshold float64
}

// DefaultConfidenceThreshold gates irreversible actions unless configured
// otherwise.
const DefaultConfidenceThreshold = 0.7

// routeSpec describes the planned tool sequence for one intent. The table
// below is the single place where intents map to tools; Route only expands it.
type routeSpec struct {
	steps        []ToolName
	irreversible bool
	allOrders    bool
	needsProduct bool
}

var routeTable = map[IntentKind]routeSpec{
	IntentOrderModification: {steps: []ToolName{ToolResolveOrder, ToolInterceptShipment}, irreversible: true},
	IntentOrderCancellation: {steps: []ToolName{ToolResolveOrder, ToolInterceptShipment}, irreversible: true},
	IntentOrderMerge:        {steps: []ToolName{ToolResolveOrder, ToolInterceptShipment}, irreversible: true, allOrders: true},
	IntentPriceInquiry:      {steps: []ToolName{ToolResolveProduct}, needsProduct: true},
	IntentInventoryInquiry:  {steps: []ToolName{ToolResolveInventory}, needsProduct: true},
	IntentLogisticsInquiry:  {steps: []ToolName{ToolResolveOrder, ToolResolveLogistics}},
	IntentGeneralInquiry:    {},
}

var interceptReasons = map[IntentKind]string{
	IntentOrderModification: "customer requested order modification",
	IntentOrderCancellation: "customer requested order cancellation",
	IntentOrderMerge:        "customer requested order merge",
}

// Route derives an ActionPlan from an intent and the email it was produced
// for. It is a pure function: identical inputs yield identical plans, and no
// I/O happens here. Plans that would trigger an irreversible action without
// enough confidence or without an explicit order identifier are replaced by a
// single flag-for-review entry.
func Route(intent *Intent, email *NormalizedEmail, policy RoutePolicy) *ActionPlan {
	spec := routeTable[intent.Kind]

	plan := &ActionPlan{
		Intent:     intent.Kind,
		Confidence: intent.Confidence,
	}

	if spec.irreversible {
		orders := targetOrders(email, spec.allOrders)
		plan.TargetOrders = orders
		if intent.Confidence < policy.ConfidenceThreshold {
			return reviewPlan(plan, fmt.Sprintf(
				"confidence %.2f below threshold %.2f for irreversible action",
				intent.Confidence, policy.ConfidenceThreshold))
		}
		if len(orders) == 0 {
			return reviewPlan(plan, "no order identifier found for irreversible action")
		}
		reason := interceptReasons[intent.Kind]
		for _, orderID := range orders {
			resolveIdx := len(plan.Actions)
			plan.Actions = append(plan.Actions,
				PlannedAction{
					Tool:      ToolResolveOrder,
					Params:    ActionParams{OrderID: orderID},
					DependsOn: -1,
				},
				PlannedAction{
					Tool:         ToolInterceptShipment,
					Params:       ActionParams{OrderID: orderID, Reason: reason},
					Irreversible: true,
					DependsOn:    resolveIdx,
				})
		}
		return plan
	}

	if spec.needsProduct {
		if len(email.Entities.ProductIDs) == 0 {
			return reviewPlan(plan, "no product identifier found")
		}
		for _, productID := range email.Entities.ProductIDs {
			plan.Actions = append(plan.Actions, PlannedAction{
				Tool:      spec.steps[0],
				Params:    ActionParams{ProductID: productID},
				DependsOn: -1,
			})
		}
		return plan
	}

	if intent.Kind == IntentLogisticsInquiry {
		if len(email.Entities.OrderIDs) == 0 {
			// No explicit order: resolve the sender, then enumerate their
			// orders so the trail still answers the inquiry.
			plan.Actions = append(plan.Actions,
				PlannedAction{
					Tool:      ToolResolveCustomer,
					Params:    ActionParams{Email: email.From},
					DependsOn: -1,
				},
				PlannedAction{
					Tool:      ToolResolveCustomerOrders,
					DependsOn: 0,
				})
			return plan
		}
		for _, orderID := range email.Entities.OrderIDs {
			resolveIdx := len(plan.Actions)
			plan.Actions = append(plan.Actions,
				PlannedAction{
					Tool:      ToolResolveOrder,
					Params:    ActionParams{OrderID: orderID},
					DependsOn: -1,
				},
				PlannedAction{
					Tool:      ToolResolveLogistics,
					Params:    ActionParams{OrderID: orderID},
					DependsOn: resolveIdx,
				})
		}
		return plan
	}

	// GeneralInquiry: nothing to do.
	return plan
}

func targetOrders(email *NormalizedEmail, all bool) []string {
	ids := email.Entities.OrderIDs
	if len(ids) == 0 {
		return nil
	}
	if all {
		out := make([]string, len(ids))
		copy(out, ids)
		return out
	}
	return []string{ids[0]}
}

func reviewPlan(plan *ActionPlan, reason string) *ActionPlan {
	plan.Reviewable = true
	plan.ReviewReason = reason
	plan.Actions = []PlannedAction{{
		Tool:      ToolFlagForReview,
		Params:    ActionParams{Reason: reason},
		DependsOn: -1,
	}}
	return plan
}

package progression

import "fmt"

// AccessDecision is the computed result of evaluating gating rules for one
// content unit. It is never persisted.
type AccessDecision struct {
	HasAccess       bool    `json:"has_access"`
	Reason          *string `json:"reason,omitempty"`
	UserLevel       int     `json:"user_level"`
	RequiredLevel   *int    `json:"required_level,omitempty"`
	HasRequiredItem *bool   `json:"has_required_item,omitempty"`
}

// EvaluateAccess applies the gating rules. The level gate is checked first;
// a failing item gate overwrites the level reason, so when both fail the
// item reason wins. Item access is satisfied by current ownership or by a
// previous unlock, which is permanent even after the item is consumed.
func EvaluateAccess(userLevel int, requiredLevel *int, requiredItem *string, hasItem, unlocked bool) AccessDecision {
	decision := AccessDecision{
		HasAccess:     true,
		UserLevel:     userLevel,
		RequiredLevel: requiredLevel,
	}

	if requiredLevel != nil && userLevel < *requiredLevel {
		decision.HasAccess = false
		reason := fmt.Sprintf("Requires level %d", *requiredLevel)
		decision.Reason = &reason
	}

	if requiredItem != nil {
		owned := hasItem
		decision.HasRequiredItem = &owned
		if !hasItem && !unlocked {
			decision.HasAccess = false
			reason := fmt.Sprintf("Requires item: %s", *requiredItem)
			decision.Reason = &reason
		}
	}

	return decision
}

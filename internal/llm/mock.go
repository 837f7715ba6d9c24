package llm

import (
	"context"
	"strings"
)

// Mock is a deterministic generator used when no API key is configured
// and in tests. It recognizes the common business goals well enough to
// exercise the full reconciliation path without a network call.
type Mock struct{}

func (Mock) Respond(_ context.Context, _, _ string, history []Turn, user string) (*Output, error) {
	t := strings.ToLower(user)

	if containsAny(t, "finalize", "publish it", "submit it", "looks good, finalize") {
		return &Output{Action: "FINAL", Message: "Finalizing your template."}, nil
	}

	if len(history) > 0 && containsAny(t, "set ", "change", "add ", "remove", "delete", "replace", "shorten") {
		// Edits are handled by the deterministic directive path.
		return &Output{Action: "UPDATE", Message: ""}, nil
	}

	switch {
	case containsAny(t, "otp", "verification", "login code", "security code", "password"):
		return &Output{
			Action:  "DRAFT",
			Message: "Here's a verification template draft.",
			Draft: map[string]any{
				"category": "AUTHENTICATION",
				"language": "en_US",
				"name":     "verification_code",
				"components": []any{
					map[string]any{"type": "BODY", "text": "{{1}} is your verification code. Do not share this code. It expires in {{2}} minutes."},
				},
			},
			Memory: map[string]any{"category": "AUTHENTICATION"},
		}, nil
	case containsAny(t, "order", "delivery", "shipping", "appointment", "reminder", "invoice", "payment"):
		return &Output{
			Action:  "DRAFT",
			Message: "Here's a transactional template draft.",
			Draft: map[string]any{
				"category": "UTILITY",
				"language": "en_US",
				"name":     "status_update",
				"components": []any{
					map[string]any{"type": "BODY", "text": "Hello {{1}}, your {{2}} has been updated. Latest status: {{3}}."},
				},
			},
			Memory: map[string]any{"category": "UTILITY"},
		}, nil
	case containsAny(t, "offer", "promotional", "promotion", "discount", "sale", "deal", "coupon"):
		return &Output{
			Action:  "DRAFT",
			Message: "Here's a promotional template draft.",
			Draft: map[string]any{
				"category": "MARKETING",
				"language": "en_US",
				"name":     "special_offer",
				"components": []any{
					map[string]any{"type": "BODY", "text": "Hi {{1}}, we have a special offer for you! Enjoy {{2}}."},
				},
			},
			Memory: map[string]any{"category": "MARKETING", "event_label": "special offer"},
		}, nil
	}

	return &Output{Action: "ASK", Message: ""}, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

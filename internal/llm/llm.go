// Package llm talks to the content generator. The generator is
// probabilistic and untrusted: its output is parsed defensively,
// normalized to a fixed contract, and treated as a mere candidate by the
// reconciliation core.
package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

// Turn is one prior exchange in the conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Output is the generator's per-turn contract.
type Output struct {
	Action               string         `json:"agent_action"`
	Message              string         `json:"message_to_user"`
	Draft                map[string]any `json:"draft"`
	Missing              []string       `json:"missing"`
	FinalCreationPayload map[string]any `json:"final_creation_payload"`
	Memory               map[string]any `json:"memory"`

	LatencyMS int64 `json:"-"`
}

// Candidate returns the draft the generator proposed this turn, with the
// final payload taking precedence.
func (o *Output) Candidate() map[string]any {
	if len(o.FinalCreationPayload) > 0 {
		return o.FinalCreationPayload
	}
	return o.Draft
}

// Generator produces a structured response for one conversational turn.
type Generator interface {
	Respond(ctx context.Context, system, contextBlock string, history []Turn, user string) (*Output, error)
}

var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// parseOutput decodes the generator's reply, salvaging the first JSON
// object when the model wrapped it in prose or code fences.
func parseOutput(raw string) (*Output, error) {
	raw = strings.TrimSpace(raw)
	var out Output
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return &out, nil
	}
	block := jsonBlockRe.FindString(raw)
	if block == "" {
		return nil, errMalformed(raw)
	}
	if err := json.Unmarshal([]byte(block), &out); err != nil {
		return nil, errMalformed(raw)
	}
	return &out, nil
}

type malformedError struct{ raw string }

func (e malformedError) Error() string { return "generator returned no parseable JSON object" }

func errMalformed(raw string) error { return malformedError{raw: raw} }

var validActions = map[string]bool{
	"ASK": true, "DRAFT": true, "UPDATE": true, "FINAL": true, "CHITCHAT": true,
}

// Normalize enforces the output contract: fill defaults, clamp the
// action to the known set, and downgrade a FINAL that is missing core
// fields back to a question.
func Normalize(out *Output) *Output {
	if out == nil {
		return &Output{
			Action:  "ASK",
			Message: "Which template category do you want: MARKETING, UTILITY, or AUTHENTICATION?",
			Missing: []string{"category"},
		}
	}
	out.Action = strings.ToUpper(strings.TrimSpace(out.Action))
	if !validActions[out.Action] {
		out.Action = "ASK"
	}
	if strings.TrimSpace(out.Message) == "" {
		out.Message = ""
	}

	// A FINAL that ships an incomplete candidate is downgraded to a
	// question. A FINAL with no candidate at all is left alone: the
	// server-side draft decides whether finalization can proceed.
	if cand := out.Candidate(); out.Action == "FINAL" && len(cand) > 0 {
		var missing []string
		for _, k := range []string{"name", "language", "category"} {
			if s, _ := cand[k].(string); strings.TrimSpace(s) == "" {
				missing = append(missing, k)
			}
		}
		if !candidateHasBody(cand) {
			missing = append(missing, "body")
		}
		if len(missing) > 0 {
			out.Action = "ASK"
			out.Missing = missing
			out.Message = "I still need: " + strings.Join(missing, ", ") + ". Please provide them to complete the template."
		}
	}
	return out
}

func candidateHasBody(cand map[string]any) bool {
	if s, _ := cand["body"].(string); strings.TrimSpace(s) != "" {
		return true
	}
	comps, _ := cand["components"].([]any)
	for _, c := range comps {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		t, _ := cm["type"].(string)
		txt, _ := cm["text"].(string)
		if strings.EqualFold(strings.TrimSpace(t), "BODY") && strings.TrimSpace(txt) != "" {
			return true
		}
	}
	return false
}

package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutput_CleanJSON(t *testing.T) {
	out, err := parseOutput(`{"agent_action":"ASK","message_to_user":"Which category?"}`)
	require.NoError(t, err)
	assert.Equal(t, "ASK", out.Action)
	assert.Equal(t, "Which category?", out.Message)
}

func TestParseOutput_SalvagesFencedJSON(t *testing.T) {
	raw := "Sure! Here is the response:\n```json\n{\"agent_action\":\"DRAFT\",\"draft\":{\"name\":\"x\"}}\n```\nHope that helps."
	out, err := parseOutput(raw)
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", out.Action)
	assert.Equal(t, "x", out.Draft["name"])
}

func TestParseOutput_NoJSON(t *testing.T) {
	_, err := parseOutput("I would love to help with templates!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no parseable JSON")
}

func TestNormalize_NilOutput(t *testing.T) {
	out := Normalize(nil)
	require.NotNil(t, out)
	assert.Equal(t, "ASK", out.Action)
	assert.Contains(t, out.Missing, "category")
}

func TestNormalize_UnknownActionBecomesAsk(t *testing.T) {
	out := Normalize(&Output{Action: "ponder"})
	assert.Equal(t, "ASK", out.Action)

	out = Normalize(&Output{Action: " update "})
	assert.Equal(t, "UPDATE", out.Action)
}

func TestNormalize_DowngradesIncompleteFinalCandidate(t *testing.T) {
	out := Normalize(&Output{
		Action: "FINAL",
		FinalCreationPayload: map[string]any{
			"name":     "special_offer",
			"language": "en_US",
		},
	})
	assert.Equal(t, "ASK", out.Action)
	assert.ElementsMatch(t, []string{"category", "body"}, out.Missing)
	assert.Contains(t, out.Message, "I still need:")
}

func TestNormalize_KeepsFinalWithoutCandidate(t *testing.T) {
	out := Normalize(&Output{Action: "FINAL", Message: "Finalizing."})
	assert.Equal(t, "FINAL", out.Action, "the stored draft decides, not the candidate")
}

func TestNormalize_AcceptsFinalWithBodyComponent(t *testing.T) {
	out := Normalize(&Output{
		Action: "FINAL",
		Draft: map[string]any{
			"name":     "special_offer",
			"language": "en_US",
			"category": "MARKETING",
			"components": []any{
				map[string]any{"type": "body", "text": "Hi {{1}}!"},
			},
		},
	})
	assert.Equal(t, "FINAL", out.Action)
}

func TestOutput_CandidatePrefersFinalPayload(t *testing.T) {
	out := &Output{
		Draft:                map[string]any{"name": "draft_name"},
		FinalCreationPayload: map[string]any{"name": "final_name"},
	}
	assert.Equal(t, "final_name", out.Candidate()["name"])

	out.FinalCreationPayload = nil
	assert.Equal(t, "draft_name", out.Candidate()["name"])
}

func TestMock_RoutesByIntent(t *testing.T) {
	ctx := context.Background()
	m := Mock{}

	out, err := m.Respond(ctx, "", "", nil, "I need an OTP verification template")
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", out.Action)
	assert.Equal(t, "AUTHENTICATION", out.Draft["category"])

	out, _ = m.Respond(ctx, "", "", nil, "promotional offer for my customers")
	assert.Equal(t, "DRAFT", out.Action)
	assert.Equal(t, "MARKETING", out.Draft["category"])

	out, _ = m.Respond(ctx, "", "", nil, "finalize it please")
	assert.Equal(t, "FINAL", out.Action)

	out, _ = m.Respond(ctx, "", "", nil, "hello there")
	assert.Equal(t, "ASK", out.Action)
}

func TestMock_EditVerbsYieldUpdateOnlyWithHistory(t *testing.T) {
	ctx := context.Background()
	m := Mock{}
	history := []Turn{{Role: "user", Content: "promotional offer"}}

	out, err := m.Respond(ctx, "", "", history, "Set buttons to: Order Now, Menu")
	require.NoError(t, err)
	assert.Equal(t, "UPDATE", out.Action)
	assert.Empty(t, out.Draft, "edits belong to the deterministic path")
}

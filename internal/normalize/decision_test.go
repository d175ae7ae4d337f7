package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/go-intake/internal/domain"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		wantDecision  domain.Decision
		wantReasoning string
	}{
		{
			name:          "final_decision_accept_marker_stripped",
			content:       "Solid background in ML.\n**Final Decision: Accept**",
			wantDecision:  domain.DecisionAccept,
			wantReasoning: "Solid background in ML.",
		},
		{
			name:          "evaluation_result_reject_marker_stripped",
			content:       "**Evaluation Result: Reject**\nMissing cloud experience.",
			wantDecision:  domain.DecisionReject,
			wantReasoning: "Missing cloud experience.",
		},
		{
			name:          "majority_reject",
			content:       "The candidate falls short in several areas and is not suitable.\nThey could move forward in another role.",
			wantDecision:  domain.DecisionReject,
			wantReasoning: "The candidate falls short in several areas and is not suitable.\nThey could move forward in another role.",
		},
		{
			name:          "majority_accept",
			content:       "Highly qualified and an excellent fit for the team.",
			wantDecision:  domain.DecisionAccept,
			wantReasoning: "Highly qualified and an excellent fit for the team.",
		},
		{
			name:          "tie_is_pending",
			content:       "A strong candidate, but the portfolio is inadequate.",
			wantDecision:  domain.DecisionPending,
			wantReasoning: "A strong candidate, but the portfolio is inadequate.",
		},
		{
			name:          "no_indicators_is_pending",
			content:       "Résumé received.",
			wantDecision:  domain.DecisionPending,
			wantReasoning: "Résumé received.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, reasoning := ParseDecision(tt.content)
			assert.Equal(t, tt.wantDecision, decision)
			assert.Equal(t, tt.wantReasoning, reasoning)
		})
	}
}

func TestParseDecision_ClosingRecommendationOverrides(t *testing.T) {
	content := "Strong candidate with excellent fit.\nHighly qualified.\n\nHowever, given budget constraints we recommend to reject."

	decision, _ := ParseDecision(content)

	assert.Equal(t, domain.DecisionReject, decision)
}

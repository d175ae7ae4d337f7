package normalize

import (
	"regexp"
	"strings"

	"github.com/ahrav/go-intake/internal/domain"
)

var (
	acceptMarker = regexp.MustCompile(`\*\*(?:Evaluation Result|Final Decision): Accept\*\*`)
	rejectMarker = regexp.MustCompile(`\*\*(?:Evaluation Result|Final Decision): Reject\*\*`)
)

var rejectIndicators = []string{
	"does not meet",
	"insufficient experience",
	"lacks significant",
	"not suitable",
	"inadequate",
	"falls short",
	"weak candidate",
	"not qualified",
	"does not qualify",
	"challenging to consider",
	"not recommend",
	"reject",
}

var acceptIndicators = []string{
	"strong candidate",
	"highly qualified",
	"excellent fit",
	"meets all requirements",
	"exceeds expectations",
	"well-qualified",
	"highly recommended",
	"accept",
	"move forward",
	"proceed with",
}

// closingLines is how many trailing lines are checked for an explicit recommendation.
const closingLines = 5

// ParseDecision derives a decision from a free-text evaluation.
//
// An explicit bold marker wins and is removed from the returned reasoning. Without
// one, the distinct reject and accept indicator phrases present are counted and the
// majority wins; ties and zero counts stay Pending. A recommendation in the closing
// lines overrides the count.
func ParseDecision(content string) (domain.Decision, string) {
	if loc := acceptMarker.FindStringIndex(content); loc != nil {
		return domain.DecisionAccept, strings.TrimSpace(content[:loc[0]] + content[loc[1]:])
	}
	if loc := rejectMarker.FindStringIndex(content); loc != nil {
		return domain.DecisionReject, strings.TrimSpace(content[:loc[0]] + content[loc[1]:])
	}

	lower := strings.ToLower(content)
	rejects := countPresent(lower, rejectIndicators)
	accepts := countPresent(lower, acceptIndicators)

	decision := domain.DecisionPending
	switch {
	case rejects > accepts:
		decision = domain.DecisionReject
	case accepts > rejects:
		decision = domain.DecisionAccept
	}

	lines := strings.Split(content, "\n")
	tail := strings.ToLower(strings.Join(lines[max(0, len(lines)-closingLines):], " "))
	if strings.Contains(tail, "recommend") {
		switch {
		case strings.Contains(tail, "reject"):
			decision = domain.DecisionReject
		case strings.Contains(tail, "accept"):
			decision = domain.DecisionAccept
		}
	}

	return decision, content
}

func countPresent(text string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(text, p) {
			n++
		}
	}
	return n
}

// Package match determines which key concepts a candidate's answer covers.
// The semantic judgment is delegated to a concept oracle; this package owns
// the contract with it and repairs any partition violations in its output.
package match

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hireview/hireview/internal/oracle"
)

// ErrScoringUnavailable means the concept oracle was unreachable or returned
// unparseable output. It is surfaced, never defaulted to "no concepts
// mentioned": a zero score caused by infrastructure would unfairly penalize
// the candidate.
var ErrScoringUnavailable = errors.New("scoring unavailable")

// Matcher classifies a question's keywords as mentioned or missed in an
// answer.
type Matcher struct {
	oracle oracle.ConceptOracle
}

// New creates a Matcher using the given concept oracle.
func New(o oracle.ConceptOracle) *Matcher {
	return &Matcher{oracle: o}
}

// Match partitions concepts into those present in answerText and those
// absent. The returned slices preserve the input concept order, their union
// is exactly concepts, and their intersection is empty, regardless of what
// the oracle returns. A blank answer is classified as covering nothing
// without consulting the oracle.
func (m *Matcher) Match(ctx context.Context, answerText string, concepts []string) (mentioned, missed []string, err error) {
	if len(concepts) == 0 {
		return nil, nil, nil
	}
	if strings.TrimSpace(answerText) == "" {
		return []string{}, append([]string{}, concepts...), nil
	}

	partition, err := m.oracle.MatchConcepts(ctx, answerText, concepts)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}

	mentioned, missed = reconcile(concepts, partition)
	return mentioned, missed, nil
}

// reconcile maps the oracle's partition back onto the original concept
// strings. Matching is case-insensitive after trimming. A "mentioned" claim
// wins even when the oracle also lists the concept as missed; concepts absent
// from both lists land in missed, and invented concepts are discarded.
func reconcile(concepts []string, partition *oracle.ConceptPartition) (mentioned, missed []string) {
	claimed := make(map[string]bool, len(partition.Mentioned))
	for _, c := range partition.Mentioned {
		claimed[canonical(c)] = true
	}

	mentioned = []string{}
	missed = []string{}
	seen := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		key := canonical(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		if claimed[key] {
			mentioned = append(mentioned, c)
		} else {
			missed = append(missed, c)
		}
	}
	return mentioned, missed
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

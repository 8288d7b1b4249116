package evaluate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spigell/interviewer/internal/interview"
)

// Rule is one deterministic check that may request a follow-up.
type Rule interface {
	Name() string
	Check(q interview.Question, answer string) Verdict
}

// Verdict is the outcome of a single rule.
type Verdict struct {
	Rule   string
	Fired  bool
	Reason string
	// Missing lists expected keywords absent from the answer.
	Missing []string
}

type lengthRule struct {
	min int
}

// NewLengthRule fires when the trimmed answer is shorter than min characters.
func NewLengthRule(min int) Rule {
	return &lengthRule{min: min}
}

func (r *lengthRule) Name() string { return "length" }

func (r *lengthRule) Check(_ interview.Question, answer string) Verdict {
	n := utf8.RuneCountInString(strings.TrimSpace(answer))
	v := Verdict{Rule: r.Name(), Fired: n < r.min}
	if v.Fired {
		v.Reason = fmt.Sprintf("answer has %d characters, expected at least %d", n, r.min)
	}
	return v
}

type keywordRule struct {
	threshold float64
}

// NewKeywordRule fires when the share of expected keywords found in the answer
// is below threshold. Questions without keywords never fire it.
func NewKeywordRule(threshold float64) Rule {
	return &keywordRule{threshold: threshold}
}

func (r *keywordRule) Name() string { return "keyword_coverage" }

func (r *keywordRule) Check(q interview.Question, answer string) Verdict {
	v := Verdict{Rule: r.Name()}
	if len(q.Keywords) == 0 {
		return v
	}

	coverage, missing := Coverage(q.Keywords, answer)
	v.Missing = missing
	v.Fired = coverage < r.threshold
	if v.Fired {
		v.Reason = fmt.Sprintf("answer covers %.0f%% of expected keywords", coverage*100)
	}
	return v
}

type specificityRule struct {
	markers []string
}

// NewSpecificityRule fires when the answer contains none of markers.
func NewSpecificityRule(markers []string) Rule {
	return &specificityRule{markers: markers}
}

func (r *specificityRule) Name() string { return "specificity" }

func (r *specificityRule) Check(_ interview.Question, answer string) Verdict {
	lower := strings.ToLower(answer)
	for _, marker := range r.markers {
		if marker = strings.ToLower(strings.TrimSpace(marker)); marker != "" && strings.Contains(lower, marker) {
			return Verdict{Rule: r.Name()}
		}
	}
	return Verdict{Rule: r.Name(), Fired: true, Reason: "answer has no concrete details or examples"}
}

// Coverage returns the fraction of keywords contained in answer (case-insensitive)
// and the keywords that were not found.
func Coverage(keywords []string, answer string) (float64, []string) {
	if len(keywords) == 0 {
		return 1, nil
	}

	lower := strings.ToLower(answer)
	var (
		found   int
		missing []string
	)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(strings.TrimSpace(kw))) {
			found++
			continue
		}
		missing = append(missing, kw)
	}
	return float64(found) / float64(len(keywords)), missing
}

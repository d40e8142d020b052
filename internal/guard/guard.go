// Package guard decides whether a derived artifact must be regenerated by
// comparing a hash of its evidentiary inputs with the hash it was built from.
package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// AssessmentInput is the evidence one completed assessment contributes.
type AssessmentInput struct {
	ID              string   `json:"id"`
	Subject         string   `json:"subject"`
	NormalizedScore int      `json:"normalized_score"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
}

// MasteryInput is one learning memory level.
type MasteryInput struct {
	Subject string `json:"subject"`
	Concept string `json:"concept"`
	Level   int    `json:"level"`
}

// Inputs is everything a profile or roadmap is derived from. Ordering of
// the slices does not affect the hash.
type Inputs struct {
	Assessments []AssessmentInput `json:"assessments"`
	Age         int               `json:"age"`
	Religion    string            `json:"religion"`
	Interests   []string          `json:"interests"`
	Mastery     []MasteryInput    `json:"mastery"`
	// Extra carries dependent hashes, e.g. the profile hash a roadmap was
	// built from, and the subject list.
	Extra map[string]string `json:"extra,omitempty"`
}

// Hash returns the hex sha256 of the canonical JSON form of in.
func Hash(in Inputs) string {
	c := canonical(in)
	// encoding/json sorts map keys, so Extra is stable too.
	body, err := json.Marshal(c)
	if err != nil {
		// Inputs holds only strings and ints.
		panic("guard: marshal inputs: " + err.Error())
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func canonical(in Inputs) Inputs {
	out := Inputs{
		Age:      in.Age,
		Religion: strings.ToLower(strings.TrimSpace(in.Religion)),
		Extra:    in.Extra,
	}

	out.Assessments = make([]AssessmentInput, len(in.Assessments))
	for i, a := range in.Assessments {
		a.Strengths = sortedLower(a.Strengths)
		a.Weaknesses = sortedLower(a.Weaknesses)
		out.Assessments[i] = a
	}
	sort.Slice(out.Assessments, func(i, j int) bool {
		return out.Assessments[i].ID < out.Assessments[j].ID
	})

	out.Interests = sortedLower(in.Interests)

	out.Mastery = append([]MasteryInput{}, in.Mastery...)
	sort.Slice(out.Mastery, func(i, j int) bool {
		a, b := out.Mastery[i], out.Mastery[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.Concept < b.Concept
	})
	return out
}

func sortedLower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Reason explains a Decision.
type Reason string

const (
	ReasonMissing       Reason = "missing"
	ReasonForced        Reason = "forced"
	ReasonInputsChanged Reason = "inputs_changed"
	ReasonUnchanged     Reason = "unchanged"
)

// Decision is the outcome of a guard check.
type Decision struct {
	Regenerate bool
	Reason     Reason
}

// Decide compares the stored hash with the current one. An empty stored
// hash means nothing has been generated yet.
func Decide(stored, current string, force bool) Decision {
	switch {
	case stored == "":
		return Decision{Regenerate: true, Reason: ReasonMissing}
	case force:
		return Decision{Regenerate: true, Reason: ReasonForced}
	case stored != current:
		return Decision{Regenerate: true, Reason: ReasonInputsChanged}
	}
	return Decision{Regenerate: false, Reason: ReasonUnchanged}
}

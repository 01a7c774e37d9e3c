// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

// ContextInfo stores where a match came from inside the recognized text
type ContextInfo struct {
	// Index of the fragment in the OCR response (0 is the full-text fragment)
	FragmentIndex int

	// Fragment text exactly as the text source produced it
	Fragment string

	// Number of sub-matches the fragment produced
	SubmatchCount int
}

// Validator interface defines methods for validating recognized text
type Validator interface {
	// ValidateFragments scans an ordered sequence of text fragments
	ValidateFragments(fragments []string, source string) ([]Match, error)

	CalculateConfidence(match string) (float64, map[string]bool)
}

// Match represents a detected match
type Match struct {
	Text       string
	Type       string
	Confidence float64
	Metadata   map[string]any
	Source     string // Input (path or URL) the fragments were recognized from
	Validator  string // Name of the validator that created this match

	Context ContextInfo
}

// Texts returns the matched text of each match, keeping order
func Texts(matches []Match) []string {
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Text)
	}
	return out
}

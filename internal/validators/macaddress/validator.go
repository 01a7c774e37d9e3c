// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package macaddress

import (
	"fmt"
	"strconv"
	"strings"

	"vision-scan/internal/detector"
	"vision-scan/internal/observability"
)

// FragmentSelection chooses which OCR fragments are searched.
type FragmentSelection string

const (
	// SelectAll searches every fragment, the full-text fragment included.
	SelectAll FragmentSelection = "all"
	// SelectFullText searches only the whitespace-separated tokens of fragment 0.
	SelectFullText FragmentSelection = "full_text"
	// SelectWords searches only the per-word fragments (index 1 onward).
	SelectWords FragmentSelection = "words"
)

// ParseFragmentSelection validates a fragment selection name. An empty name
// selects all fragments.
func ParseFragmentSelection(s string) (FragmentSelection, error) {
	switch sel := FragmentSelection(strings.ToLower(strings.TrimSpace(s))); sel {
	case "", SelectAll:
		return SelectAll, nil
	case SelectFullText, SelectWords:
		return sel, nil
	default:
		return "", fmt.Errorf("unknown fragment selection %q (want all, full_text or words)", s)
	}
}

// Validator implements the detector.Validator interface for MAC addresses
// recognized in OCR fragments.
type Validator struct {
	extractor *Extractor
	selection FragmentSelection
	mode      Mode

	// Observability
	observer *observability.StandardObserver
}

// NewValidator creates a Validator that searches all fragments.
func NewValidator(opts Options) *Validator {
	return &Validator{
		extractor: NewExtractor(opts),
		selection: SelectAll,
		mode:      ModeAll,
	}
}

// SetObserver sets the observability component
func (v *Validator) SetObserver(observer *observability.StandardObserver) {
	v.observer = observer
	v.extractor.SetObserver(observer)
}

// SetFragmentSelection changes which fragments ValidateFragments searches.
func (v *Validator) SetFragmentSelection(sel FragmentSelection) {
	v.selection = sel
}

// SetMode changes how many matches ValidateFragments keeps.
func (v *Validator) SetMode(mode Mode) {
	v.mode = mode
}

// Extractor exposes the underlying extractor.
func (v *Validator) Extractor() *Extractor {
	return v.extractor
}

type candidate struct {
	index int
	text  string
}

func (v *Validator) candidates(fragments []string) []candidate {
	var out []candidate
	switch v.selection {
	case SelectFullText:
		if len(fragments) == 0 {
			return nil
		}
		for _, token := range strings.Fields(fragments[0]) {
			out = append(out, candidate{index: 0, text: token})
		}
	case SelectWords:
		for i := 1; i < len(fragments); i++ {
			out = append(out, candidate{index: i, text: fragments[i]})
		}
	default:
		for i, f := range fragments {
			out = append(out, candidate{index: i, text: f})
		}
	}
	return out
}

// ValidateFragments returns one MAC_ADDRESS match per matching fragment, in
// fragment order. In first or last mode at most one match is returned.
func (v *Validator) ValidateFragments(fragments []string, source string) ([]detector.Match, error) {
	var finishTiming func(bool, map[string]interface{})
	var finishStep func(bool, string)
	if v.observer != nil {
		finishTiming = v.observer.StartTiming("macaddress_validator", "validate_fragments", source)
		if v.observer.DebugObserver != nil {
			finishStep = v.observer.DebugObserver.StartStep("macaddress_validator", "validate_fragments", source)
		}
	}

	cands := v.candidates(fragments)
	texts := make([]string, len(cands))
	for i, c := range cands {
		texts[i] = c.text
	}

	found := v.extractor.Find(texts, v.mode)
	matches := make([]detector.Match, 0, len(found))
	for _, fm := range found {
		fm.Index = cands[fm.Index].index
		confidence, checks := v.confidenceFor(fm)

		matches = append(matches, detector.Match{
			Text:       fm.MAC,
			Type:       "MAC_ADDRESS",
			Confidence: confidence,
			Source:     source,
			Validator:  "macaddress",
			Context: detector.ContextInfo{
				FragmentIndex: fm.Index,
				Fragment:      fm.Fragment,
				SubmatchCount: fm.SubmatchCount,
			},
			Metadata: map[string]any{
				"form":              string(fm.Form),
				"mixed_delimiters":  fm.MixedDelimiters,
				"fragment_index":    fm.Index,
				"oui":               strings.Join(fm.Octets[:3], ":"),
				"validation_checks": checks,
			},
		})
	}

	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{
			"match_count":     len(matches),
			"fragment_count":  len(fragments),
			"fragments_tried": len(cands),
			"selection":       string(v.selection),
			"mode":            string(v.mode),
		})
	}
	if finishStep != nil {
		finishStep(true, fmt.Sprintf("%d MAC addresses in %d fragments", len(matches), len(cands)))
	}

	return matches, nil
}

// CalculateConfidence scores a candidate string. Strings that are not a MAC
// address score 0.
func (v *Validator) CalculateConfidence(match string) (float64, map[string]bool) {
	fm, ok := v.extractor.Match(match)
	if !ok {
		return 0, map[string]bool{"valid_format": false}
	}
	return v.confidenceFor(fm)
}

func (v *Validator) confidenceFor(fm FragmentMatch) (float64, map[string]bool) {
	checks := map[string]bool{
		"valid_format":          true,
		"consistent_delimiters": !fm.MixedDelimiters,
		"globally_unique":       true,
		"unicast":               true,
	}

	var confidence float64
	switch fm.Form {
	case FormDelimited:
		confidence = 100
		if fm.MixedDelimiters {
			confidence = 70
		}
	case FormBare:
		confidence = 80
	}

	first, err := strconv.ParseUint(fm.Octets[0], 16, 8)
	if err == nil {
		checks["unicast"] = first&0x01 == 0
		checks["globally_unique"] = first&0x02 == 0
	}

	// Twelve bare hex digits are often serials or hashes, so an address
	// with a bit that real interface labels rarely carry is less likely.
	if fm.Form == FormBare && (!checks["unicast"] || !checks["globally_unique"]) {
		confidence -= 10
	}

	return confidence, checks
}

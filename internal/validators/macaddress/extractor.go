// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package macaddress finds hardware MAC addresses in OCR text fragments and
// renders them in canonical colon-delimited uppercase form.
package macaddress

import (
	"fmt"
	"regexp"
	"strings"

	"vision-scan/internal/observability"
)

// NotFound is the presentation string for "no MAC address in the image".
// Extraction itself never returns it; single-match lookups report absence
// through their boolean result.
const NotFound = "MAC address not found"

// Form identifies which pattern matched a fragment.
type Form string

const (
	FormDelimited Form = "delimited" // aa:bb:cc:dd:ee:ff or aa-bb-cc-dd-ee-ff
	FormBare      Form = "bare"      // aabbccddeeff
)

// Mode selects how many matches a lookup keeps.
type Mode string

const (
	ModeAll   Mode = "all"
	ModeFirst Mode = "first"
	ModeLast  Mode = "last"
)

// ParseMode validates a mode name. An empty name selects all matches.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeAll:
		return ModeAll, nil
	case ModeFirst, ModeLast:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mac mode %q (want all, first or last)", s)
	}
}

// Options tunes matching. The zero value reproduces the permissive
// behavior: either delimiter at each separator, octets left as captured.
type Options struct {
	// StrictDelimiter requires all five separators to be the same character.
	StrictDelimiter bool

	// ZeroPad left-pads single-digit octets to two digits.
	ZeroPad bool
}

// FragmentMatch describes the MAC address recognized in one fragment.
type FragmentMatch struct {
	Index           int
	Fragment        string
	MAC             string
	Form            Form
	Octets          [6]string
	MixedDelimiters bool
	SubmatchCount   int
}

const octetCount = 6

var (
	delimitedOctet = `([0-9A-F]{1,2})`
	bareOctet      = `([0-9A-F]{2})`

	anyDelimiterPattern = regexp.MustCompile(`(?i)^` + joinOctets(`[:\-]`) + `$`)
	colonPattern        = regexp.MustCompile(`(?i)^` + joinOctets(`:`) + `$`)
	hyphenPattern       = regexp.MustCompile(`(?i)^` + joinOctets(`-`) + `$`)
	barePattern         = regexp.MustCompile(`(?i)^` + strings.Repeat(bareOctet, octetCount) + `$`)
)

func joinOctets(separator string) string {
	groups := make([]string, octetCount)
	for i := range groups {
		groups[i] = delimitedOctet
	}
	return strings.Join(groups, separator)
}

// Extractor matches fragments against the delimited and bare MAC patterns.
// Its patterns are immutable, so one Extractor may be shared between
// goroutines once SetObserver (if used) has been called.
type Extractor struct {
	opts      Options
	delimited []*regexp.Regexp
	bare      *regexp.Regexp
	observer  *observability.StandardObserver
}

// NewExtractor builds an Extractor for the given options.
func NewExtractor(opts Options) *Extractor {
	e := &Extractor{opts: opts, bare: barePattern}
	if opts.StrictDelimiter {
		e.delimited = []*regexp.Regexp{colonPattern, hyphenPattern}
	} else {
		e.delimited = []*regexp.Regexp{anyDelimiterPattern}
	}
	return e
}

// SetObserver attaches the observer that receives per-fragment diagnostics.
func (e *Extractor) SetObserver(observer *observability.StandardObserver) {
	e.observer = observer
}

// Options returns the options the extractor was built with.
func (e *Extractor) Options() Options {
	return e.opts
}

// Match tests a single fragment. Surrounding whitespace is ignored. The
// delimited form is tried before the bare form.
func (e *Extractor) Match(fragment string) (FragmentMatch, bool) {
	trimmed := strings.TrimSpace(fragment)
	if trimmed == "" {
		return FragmentMatch{}, false
	}

	for _, re := range e.delimited {
		if groups := re.FindStringSubmatch(trimmed); groups != nil {
			m := e.build(fragment, groups[1:], FormDelimited)
			m.MixedDelimiters = strings.Contains(trimmed, ":") && strings.Contains(trimmed, "-")
			return m, true
		}
	}

	if groups := e.bare.FindStringSubmatch(trimmed); groups != nil {
		return e.build(fragment, groups[1:], FormBare), true
	}

	return FragmentMatch{}, false
}

func (e *Extractor) build(fragment string, groups []string, form Form) FragmentMatch {
	m := FragmentMatch{Fragment: fragment, Form: form, SubmatchCount: 1}
	for i, g := range groups {
		octet := strings.ToUpper(g)
		if e.opts.ZeroPad && len(octet) == 1 {
			octet = "0" + octet
		}
		m.Octets[i] = octet
	}
	m.MAC = strings.Join(m.Octets[:], ":")
	return m
}

// FindAll returns one FragmentMatch per matching fragment, in fragment
// order. Repeated addresses are kept. For every match a diagnostic line
// "N matches found in text : <fragment>" goes to the debug observer.
func (e *Extractor) FindAll(fragments []string) []FragmentMatch {
	var matches []FragmentMatch
	for i, fragment := range fragments {
		m, ok := e.Match(fragment)
		if !ok {
			continue
		}
		m.Index = i
		e.observer.Detail("macaddress", fmt.Sprintf("%d matches found in text : %s", m.SubmatchCount, fragment))
		matches = append(matches, m)
	}
	return matches
}

// ExtractAll returns every canonical MAC found, in fragment order. Empty
// input or no match yields an empty (nil) slice.
func (e *Extractor) ExtractAll(fragments []string) []string {
	matches := e.FindAll(fragments)
	if len(matches) == 0 {
		return nil
	}
	macs := make([]string, len(matches))
	for i, m := range matches {
		macs[i] = m.MAC
	}
	return macs
}

// FindFirst returns the match from the earliest matching fragment.
func (e *Extractor) FindFirst(fragments []string) (FragmentMatch, bool) {
	for i, fragment := range fragments {
		if m, ok := e.Match(fragment); ok {
			m.Index = i
			e.observer.Detail("macaddress", fmt.Sprintf("%d matches found in text : %s", m.SubmatchCount, fragment))
			return m, true
		}
	}
	return FragmentMatch{}, false
}

// FindLast returns the match from the latest matching fragment. Every match
// overwrites the previous one, so the last fragment wins.
func (e *Extractor) FindLast(fragments []string) (FragmentMatch, bool) {
	var last FragmentMatch
	found := false
	for i, fragment := range fragments {
		if m, ok := e.Match(fragment); ok {
			m.Index = i
			e.observer.Detail("macaddress", fmt.Sprintf("%d matches found in text : %s", m.SubmatchCount, fragment))
			last, found = m, true
		}
	}
	return last, found
}

// Find applies mode to fragments: every match, or at most one.
func (e *Extractor) Find(fragments []string, mode Mode) []FragmentMatch {
	var (
		m  FragmentMatch
		ok bool
	)
	switch mode {
	case ModeFirst:
		m, ok = e.FindFirst(fragments)
	case ModeLast:
		m, ok = e.FindLast(fragments)
	default:
		return e.FindAll(fragments)
	}
	if !ok {
		return nil
	}
	return []FragmentMatch{m}
}

// ExtractFirst returns the MAC from the earliest matching fragment.
func (e *Extractor) ExtractFirst(fragments []string) (string, bool) {
	m, ok := e.FindFirst(fragments)
	return m.MAC, ok
}

// ExtractLast returns the MAC from the latest matching fragment.
// Unlike the delimited-only single-address lookup it descends from, it
// also accepts the bare twelve-digit form, so it agrees with ExtractAll.
func (e *Extractor) ExtractLast(fragments []string) (string, bool) {
	m, ok := e.FindLast(fragments)
	return m.MAC, ok
}

var defaultExtractor = NewExtractor(Options{})

// Extract runs ExtractAll with the default options.
func Extract(fragments []string) []string {
	return defaultExtractor.ExtractAll(fragments)
}

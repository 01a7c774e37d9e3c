// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"vision-scan/internal/core"
	"vision-scan/internal/detector"
	"vision-scan/internal/formatters"
	"vision-scan/internal/vision"
)

// Response represents the top-level structure for JSON/YAML output
type Response struct {
	Results []InputReport `json:"results" yaml:"results"`
	Summary Summary       `json:"summary" yaml:"summary"`
}

// Summary counts across all inputs
type Summary struct {
	Inputs       int `json:"inputs" yaml:"inputs"`
	Failed       int `json:"failed" yaml:"failed"`
	MACAddresses int `json:"mac_addresses" yaml:"mac_addresses"`
}

// InputReport is one input in JSON/YAML format
type InputReport struct {
	Input        string            `json:"input" yaml:"input"`
	Kind         string            `json:"kind,omitempty" yaml:"kind,omitempty"`
	ContentType  string            `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Location     string            `json:"location,omitempty" yaml:"location,omitempty"`
	TextSource   string            `json:"text_source,omitempty" yaml:"text_source,omitempty"`
	MACAddresses []string          `json:"mac_addresses" yaml:"mac_addresses"`
	Matches      []Match           `json:"matches,omitempty" yaml:"matches,omitempty"`
	Annotations  *vision.Report    `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Fragments    []string          `json:"fragments,omitempty" yaml:"fragments,omitempty"`
	Warnings     []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error        string            `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs   int64             `json:"duration_ms" yaml:"duration_ms"`
}

// Match is a single MAC address match with its fragment context
type Match struct {
	Text          string                 `json:"text" yaml:"text"`
	Type          string                 `json:"type" yaml:"type"`
	Confidence    float64                `json:"confidence" yaml:"confidence"`
	Validator     string                 `json:"validator,omitempty" yaml:"validator,omitempty"`
	FragmentIndex int                    `json:"fragment_index" yaml:"fragment_index"`
	Fragment      string                 `json:"fragment,omitempty" yaml:"fragment,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ConvertResults converts scan results to the JSON/YAML structure. Matches
// and fragments are only included in verbose mode.
func ConvertResults(results []*core.InputResult, options formatters.FormatterOptions) Response {
	response := Response{Results: make([]InputReport, 0, len(results))}
	for _, r := range results {
		if r == nil {
			continue
		}
		report := InputReport{
			Input:        r.Input,
			Kind:         r.Kind,
			ContentType:  r.ContentType,
			TextSource:   r.TextSource,
			MACAddresses: r.MACs,
			Annotations:  r.Report,
			Warnings:     r.Warnings,
			DurationMs:   r.Duration.Milliseconds(),
		}
		if report.MACAddresses == nil {
			report.MACAddresses = []string{}
		}
		if r.Location != r.Input {
			report.Location = r.Location
		}
		if options.Report.Metadata {
			report.Metadata = r.Metadata
		}
		if r.Error != nil {
			report.Error = r.Error.Error()
			response.Summary.Failed++
		}
		if options.Verbose {
			report.Fragments = r.Fragments
			for _, m := range r.Matches {
				report.Matches = append(report.Matches, convertMatch(m))
			}
		}
		response.Summary.MACAddresses += len(r.MACs)
		response.Results = append(response.Results, report)
	}
	response.Summary.Inputs = len(response.Results)
	return response
}

func convertMatch(m detector.Match) Match {
	metadata := make(map[string]interface{}, len(m.Metadata))
	for k, v := range m.Metadata {
		metadata[k] = v
	}
	return Match{
		Text:          m.Text,
		Type:          m.Type,
		Confidence:    m.Confidence,
		Validator:     m.Validator,
		FragmentIndex: m.Context.FragmentIndex,
		Fragment:      m.Context.Fragment,
		Metadata:      metadata,
	}
}

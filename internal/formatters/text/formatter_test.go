// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-scan/internal/config"
	"vision-scan/internal/core"
	"vision-scan/internal/detector"
	"vision-scan/internal/formatters"
	"vision-scan/internal/vision"
)

func sampleResult() *core.InputResult {
	return &core.InputResult{
		Input:    "https://example.com/page",
		Location: "https://example.com/label.jpg",
		Kind:     core.KindImage,
		Report: &vision.Report{
			Faces:  []vision.Face{{Anger: "VERY_UNLIKELY", Joy: "LIKELY", Surprise: "UNLIKELY", Sorrow: "VERY_UNLIKELY", Bounds: []vision.Vertex{{X: 1, Y: 2}}}},
			Labels: []vision.Entity{{Description: "Electronics", Score: 0.93}},
			Landmarks: []vision.Entity{{
				Description: "Sydney Opera House",
				Locations:   []vision.LatLng{{Latitude: -33.857, Longitude: 151.215}},
			}},
			Texts: []vision.Entity{
				{Description: "MAC 00:1A:2B:3C:4D:5E", Bounds: []vision.Vertex{{X: 0, Y: 0}, {X: 10, Y: 0}}},
				{Description: "00:1A:2B:3C:4D:5E"},
			},
			SafeSearch: &vision.SafeSearch{Adult: "VERY_UNLIKELY", Medical: "UNLIKELY", Spoof: "POSSIBLE", Violence: "UNLIKELY", Racy: "UNLIKELY"},
			Web: &vision.Web{
				PagesWithMatchingImages: []vision.WebPage{{URL: "https://a.example/p"}},
				FullMatchingImages:      []vision.WebImage{{URL: "https://a.example/full.jpg"}},
				PartialMatchingImages:   []vision.WebImage{{URL: "https://a.example/part.jpg"}},
				Entities:                []vision.WebEntity{{Description: "Router", Score: 0.7}},
			},
			CropHints: []vision.CropHint{{Bounds: []vision.Vertex{{X: 3, Y: 4}}}},
		},
		Metadata: map[string]string{"Model": "X100", "Make": "ACME"},
		MACs:     []string{"00:1A:2B:3C:4D:5E"},
		Matches: []detector.Match{{
			Text:    "00:1A:2B:3C:4D:5E",
			Context: detector.ContextInfo{FragmentIndex: 1, Fragment: "00:1A:2B:3C:4D:5E"},
		}},
		Warnings: []string{"analysed image https://example.com/label.jpg linked from the page"},
	}
}

func allSections() formatters.FormatterOptions {
	return formatters.FormatterOptions{
		NoColor:    true,
		MACEnabled: true,
		Report: config.ReportOptions{
			Faces: true, Labels: true, Landmarks: true, Logos: true, SafeSearch: true,
			Texts: true, Properties: true, WebPagesWithMatchingImages: true,
			FullMatches: true, PartialMatches: true, WebEntities: true,
			CropHints: true, DocumentBlocks: true, Metadata: true, MACAddresses: true,
		},
	}
}

func TestFormat_AllSections(t *testing.T) {
	out, err := NewFormatter().Format([]*core.InputResult{sampleResult()}, allSections())
	require.NoError(t, err)

	for _, want := range []string{
		"Analysed: https://example.com/label.jpg",
		"Faces:", "joy: LIKELY", "face bounds: (1,2)",
		"Labels:", "Electronics",
		"Landmarks:", "Sydney Opera House", "Latitude -33.857000",
		"Safe search:", "spoofed: POSSIBLE",
		"Texts:", `"MAC 00:1A:2B:3C:4D:5E"`, "bounds: (0,0),(10,0)",
		"1 Pages with matching images retrieved", "Url   : https://a.example/p",
		"1 Full Matches found:", "1 Partial Matches found:",
		"1 Web entities found:", "Description: Router",
		"Crop hints:", "bounds: (3,4)",
		"Metadata:", "Make: ACME",
		"MAC addresses:", "00:1A:2B:3C:4D:5E",
		"Warning: analysed image",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "no escape codes when colors are off")
	assert.Less(t, strings.Index(out, "Make: ACME"), strings.Index(out, "Model: X100"))
}

func TestFormat_SectionToggles(t *testing.T) {
	opts := allSections()
	opts.Report = config.ReportOptions{Labels: true}
	opts.MACEnabled = false

	out, err := NewFormatter().Format([]*core.InputResult{sampleResult()}, opts)
	require.NoError(t, err)
	assert.Contains(t, out, "Labels:")
	assert.NotContains(t, out, "Faces:")
	assert.NotContains(t, out, "Texts:")
	assert.NotContains(t, out, "Web entities")
	assert.NotContains(t, out, "MAC addresses:")
	assert.NotContains(t, out, "Metadata:")
}

func TestFormat_NotFound(t *testing.T) {
	r := &core.InputResult{Input: "blank.png"}
	out, err := NewFormatter().Format([]*core.InputResult{r}, allSections())
	require.NoError(t, err)
	assert.Contains(t, out, "MAC addresses:\nMAC address not found")
}

func TestFormat_Verbose(t *testing.T) {
	opts := allSections()
	opts.Verbose = true
	r := sampleResult()
	r.Fragments = []string{"MAC 00:1A:2B:3C:4D:5E", "00:1A:2B:3C:4D:5E"}

	out, err := NewFormatter().Format([]*core.InputResult{r}, opts)
	require.NoError(t, err)
	assert.Contains(t, out, "Electronics (0.93)")
	assert.Contains(t, out, "2 text fragments")
	assert.Contains(t, out, `(fragment 1: "00:1A:2B:3C:4D:5E")`)
}

func TestFormat_ErrorAndSummary(t *testing.T) {
	results := []*core.InputResult{
		sampleResult(),
		{Input: "missing.png", Error: errors.New("cannot read input")},
	}
	out, err := NewFormatter().Format(results, allSections())
	require.NoError(t, err)
	assert.Contains(t, out, "Error: cannot read input")
	assert.True(t, strings.HasSuffix(out, "2 inputs scanned, 1 MAC addresses found, 1 failed"))
}

func TestFormat_Empty(t *testing.T) {
	out, err := NewFormatter().Format(nil, allSections())
	require.NoError(t, err)
	assert.Equal(t, "No inputs scanned.", out)
}

// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"fmt"
	"strings"

	"vision-scan/internal/help"
)

// Feature names one image analysis.
type Feature string

const (
	FeatureFaces      Feature = "faces"
	FeatureLabels     Feature = "labels"
	FeatureLandmarks  Feature = "landmarks"
	FeatureLogos      Feature = "logos"
	FeatureText       Feature = "text"
	FeatureSafeSearch Feature = "safe_search"
	FeatureProperties Feature = "properties"
	FeatureWeb        Feature = "web"
	FeatureCropHints  Feature = "crop_hints"
	FeatureDocument   Feature = "document"
)

var featureDescriptions = []struct {
	feature     Feature
	description string
}{
	{FeatureFaces, "Faces with anger, joy and surprise likelihoods and bounds"},
	{FeatureLabels, "Labels describing the image content"},
	{FeatureLandmarks, "Well-known places with latitude and longitude"},
	{FeatureLogos, "Product and brand logos"},
	{FeatureText, "Recognized text (OCR); the input to MAC address extraction"},
	{FeatureSafeSearch, "Adult, medical, spoof, violence and racy likelihoods"},
	{FeatureProperties, "Dominant colors"},
	{FeatureWeb, "Pages with matching images, full and partial matches, web entities"},
	{FeatureCropHints, "Suggested crop regions"},
	{FeatureDocument, "Dense document text as blocks with bounds"},
}

// AllFeatures returns every feature in report order.
func AllFeatures() []Feature {
	out := make([]Feature, len(featureDescriptions))
	for i, d := range featureDescriptions {
		out[i] = d.feature
	}
	return out
}

// FeatureHelp describes the features for the help system. Features named in
// defaults are flagged as default.
func FeatureHelp(defaults []Feature) []help.FeatureInfo {
	isDefault := make(map[Feature]bool, len(defaults))
	for _, f := range defaults {
		isDefault[f] = true
	}
	out := make([]help.FeatureInfo, len(featureDescriptions))
	for i, d := range featureDescriptions {
		out[i] = help.FeatureInfo{Name: string(d.feature), Description: d.description, Default: isDefault[d.feature]}
	}
	return out
}

// ParseFeatures parses a comma-separated feature list. "all" selects every
// feature. Duplicates are dropped and report order is kept.
func ParseFeatures(s string) ([]Feature, error) {
	want := make(map[Feature]bool)
	for _, part := range strings.Split(s, ",") {
		name := Feature(strings.ToLower(strings.TrimSpace(part)))
		switch name {
		case "":
			continue
		case "all":
			return AllFeatures(), nil
		case "ocr", "texts":
			name = FeatureText
		}
		if !name.valid() {
			return nil, fmt.Errorf("unknown feature %q", part)
		}
		want[name] = true
	}

	var out []Feature
	for _, f := range AllFeatures() {
		if want[f] {
			out = append(out, f)
		}
	}
	return out, nil
}

// WithFeature returns features with f added in report order.
func WithFeature(features []Feature, f Feature) []Feature {
	for _, existing := range features {
		if existing == f {
			return features
		}
	}
	want := map[Feature]bool{f: true}
	for _, existing := range features {
		want[existing] = true
	}
	var out []Feature
	for _, candidate := range AllFeatures() {
		if want[candidate] {
			out = append(out, candidate)
		}
	}
	return out
}

func (f Feature) valid() bool {
	for _, d := range featureDescriptions {
		if d.feature == f {
			return true
		}
	}
	return false
}

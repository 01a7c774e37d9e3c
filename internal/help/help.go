// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// CheckInfo contains standardized information about a check
type CheckInfo struct {
	Name                string             // Name of the check (e.g., "MAC_ADDRESS")
	ShortDescription    string             // Short description for the checks list
	DetailedDescription string             // Detailed description of what the check does
	Patterns            []string           // Patterns the check looks for
	SupportedFormats    []string           // Formats or types supported by the check
	ConfidenceFactors   []ConfidenceFactor // Factors affecting confidence
	ConfigurationInfo   string             // Information about how to configure the check
	Examples            []string           // Usage examples
}

// ConfidenceFactor represents a factor that affects confidence scoring
type ConfidenceFactor struct {
	Name        string  // Name of the factor
	Description string  // Description of the factor
	Weight      float64 // Weight of the factor in the confidence score (percentage)
}

// Provider defines the interface for help content providers
type Provider interface {
	GetCheckInfo() CheckInfo
}

// FeatureInfo describes one image analysis the annotator can run
type FeatureInfo struct {
	Name        string
	Description string
	Default     bool
}

// System manages help content for the application
type System struct {
	providers map[string]Provider
	features  []FeatureInfo
	out       io.Writer
	colors    map[string]*color.Color
}

// NewSystem creates a new help system
func NewSystem(noColor bool) *System {
	// Disable colors if requested
	if noColor {
		color.NoColor = true
	}

	return &System{
		providers: make(map[string]Provider),
		out:       os.Stdout,
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"header":   color.New(color.FgBlue, color.Bold),
			"item":     color.New(color.FgCyan),
			"emphasis": color.New(color.FgWhite, color.Bold),
			"positive": color.New(color.FgGreen),
			"negative": color.New(color.FgRed),
			"example":  color.New(color.FgMagenta),
		},
	}
}

// SetOutput redirects help output, mostly for tests
func (h *System) SetOutput(w io.Writer) {
	h.out = w
}

// RegisterProvider adds a help provider to the system
func (h *System) RegisterProvider(provider Provider) {
	info := provider.GetCheckInfo()
	h.providers[strings.ToLower(info.Name)] = provider
}

// RegisterFeatures records the annotation features listed by ShowFeaturesHelp
func (h *System) RegisterFeatures(features []FeatureInfo) {
	h.features = append(h.features, features...)
}

// ShowGeneralHelp displays general help information
func (h *System) ShowGeneralHelp() {
	out := h.out
	h.colors["title"].Fprintln(out, "Vision Scan - Image Analysis and MAC Address Extraction")
	fmt.Fprintln(out, "=======================================================")
	fmt.Fprintln(out)
	h.colors["header"].Fprintln(out, "USAGE:")
	fmt.Fprintln(out, "  vision-scan [options] <image-path-or-url>...")
	fmt.Fprintln(out, "  extract-macs [options] <image-path-or-url>...")
	fmt.Fprintln(out)

	h.colors["header"].Fprintln(out, "OPTIONS:")

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  --config\t<path>\tPath to configuration file (YAML)")
	fmt.Fprintln(w, "  --profile\t<name>\tProfile name to use from config file")
	fmt.Fprintln(w, "  --list-profiles\t\tList available profiles")
	fmt.Fprintln(w, "  --features\t<list>\tAnnotations to run: faces,labels,landmarks,logos,text,safe_search,properties,web,crop_hints,document,all")
	fmt.Fprintln(w, "  --checks\t<list>\tText checks to run on recognized text: MAC_ADDRESS,none (default: MAC_ADDRESS)")
	fmt.Fprintln(w, "  --mac-mode\t<mode>\tMAC addresses to report per image: all, first, last (default: all)")
	fmt.Fprintln(w, "  --strict-delimiter\t\tRequire one delimiter character throughout a MAC address")
	fmt.Fprintln(w, "  --zero-pad\t\tPad single-digit MAC octets to two digits")
	fmt.Fprintln(w, "  --fragments\t<sel>\tOCR fragments searched: all, full_text, words (default: all)")
	fmt.Fprintln(w, "  --ocr-engine\t<name>\tText source: vision or tesseract (default: vision)")
	fmt.Fprintln(w, "  --download\t\tAlways download URLs instead of passing them to the vision API")
	fmt.Fprintln(w, "  --keep-downloads\t\tKeep downloaded files after the scan")
	fmt.Fprintln(w, "  --workers\t<n>\tNumber of inputs processed in parallel (default: 4)")
	fmt.Fprintln(w, "  --format\t<format>\tOutput format: text, json, yaml, macs (default: text)")
	fmt.Fprintln(w, "  --output\t<path>\tPath to output file (if not specified, output to stdout)")
	fmt.Fprintln(w, "  --verbose\t\tDisplay detailed information for each annotation")
	fmt.Fprintln(w, "  --debug\t\tEnable debug logging of downloads, annotation and extraction")
	fmt.Fprintln(w, "  --no-color\t\tDisable colored output")
	fmt.Fprintln(w, "  --version\t\tShow version information")
	fmt.Fprintln(w, "  --help\t\tShow this help message")
	fmt.Fprintln(w, "  --help checks\t\tList all available checks")
	fmt.Fprintln(w, "  --help features\t\tList all annotation features")
	fmt.Fprintln(w, "  --help <check>\t\tShow detailed help for a specific check")
	w.Flush()

	fmt.Fprintln(out)
	h.colors["header"].Fprintln(out, "EXAMPLES:")
	h.colors["example"].Fprintln(out, "  vision-scan label.jpg")
	h.colors["example"].Fprintln(out, "  vision-scan --profile analyse https://example.com/photo.png")
	h.colors["example"].Fprintln(out, "  vision-scan --features text --mac-mode last --format json label.jpg")
	h.colors["example"].Fprintln(out, "  vision-scan https://api.ciscospark.com/v1/contents/<id>")
	h.colors["example"].Fprintln(out, "  extract-macs label1.jpg label2.jpg")

	fmt.Fprintln(out)
	h.colors["header"].Fprintln(out, "CONFIGURATION:")
	fmt.Fprintln(out, "  Project config: vision-scan.yaml or .vision-scan.yaml (in current directory)")
	fmt.Fprintln(out, "  User config: $XDG_CONFIG_HOME/vision-scan/config.yaml")
	fmt.Fprintln(out, "  Environment: VISION_SCAN_CONFIG_DIR - Override config directory")
	fmt.Fprintln(out, "  Environment: GOOGLE_APPLICATION_CREDENTIALS - Vision API service account key")
	fmt.Fprintln(out, "  Environment: SPARK_TOKEN - Bearer token for Spark content URLs")
}

// ShowFeaturesHelp lists the registered annotation features
func (h *System) ShowFeaturesHelp() {
	out := h.out
	h.colors["title"].Fprintln(out, "Annotation Features")
	fmt.Fprintln(out, "===================")
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	h.colors["header"].Fprintln(w, "  FEATURE\tDEFAULT\tDESCRIPTION")
	h.colors["header"].Fprintln(w, "  -------\t-------\t-----------")
	for _, f := range h.features {
		def := "no"
		if f.Default {
			def = "yes"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", f.Name, def, f.Description)
	}
	w.Flush()
}

// ShowChecksHelp displays information about all available checks
func (h *System) ShowChecksHelp() {
	out := h.out
	h.colors["title"].Fprintln(out, "Available Checks in Vision Scan")
	fmt.Fprintln(out, "===============================")
	fmt.Fprintln(out)

	names := make([]string, 0, len(h.providers))
	for name := range h.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	h.colors["header"].Fprintln(w, "  CHECK\tDESCRIPTION")
	h.colors["header"].Fprintln(w, "  -----\t-----------")
	for _, name := range names {
		info := h.providers[name].GetCheckInfo()
		fmt.Fprintf(w, "  ")
		h.colors["emphasis"].Fprintf(w, "%s", info.Name)
		fmt.Fprintf(w, "\t%s\n", info.ShortDescription)
	}
	w.Flush()

	fmt.Fprintln(out)
	fmt.Fprintln(out, "For detailed information about a specific check, use:")
	h.colors["example"].Fprintln(out, "  vision-scan --help <check>")
}

// ShowCheckHelp displays detailed help for a specific check
func (h *System) ShowCheckHelp(checkName string) bool {
	out := h.out
	provider, exists := h.providers[strings.ToLower(checkName)]
	if !exists {
		h.colors["negative"].Fprintf(out, "Error: Check '%s' not found.\n", checkName)
		fmt.Fprintln(out, "Use 'vision-scan --help checks' to see a list of available checks.")
		return false
	}

	info := provider.GetCheckInfo()

	h.colors["title"].Fprintf(out, "%s Check\n", info.Name)
	fmt.Fprintln(out, strings.Repeat("=", len(info.Name)+6))
	fmt.Fprintln(out)
	fmt.Fprintln(out, info.DetailedDescription)
	fmt.Fprintln(out)

	if len(info.Patterns) > 0 {
		h.colors["header"].Fprintln(out, "PATTERNS DETECTED:")
		for _, pattern := range info.Patterns {
			fmt.Fprint(out, "  - ")
			h.colors["item"].Fprintln(out, pattern)
		}
		fmt.Fprintln(out)
	}

	if len(info.SupportedFormats) > 0 {
		h.colors["header"].Fprintln(out, "SUPPORTED FORMATS:")
		for _, format := range info.SupportedFormats {
			fmt.Fprint(out, "  - ")
			h.colors["item"].Fprintln(out, format)
		}
		fmt.Fprintln(out)
	}

	if len(info.ConfidenceFactors) > 0 {
		h.colors["header"].Fprintln(out, "CONFIDENCE SCORING:")
		for _, factor := range info.ConfidenceFactors {
			fmt.Fprint(out, "   - ")
			h.colors["item"].Fprintf(out, "%s ", factor.Name)
			if factor.Weight > 0 {
				fmt.Fprintf(out, "(%.0f%%)", factor.Weight)
			}
			fmt.Fprintf(out, ": %s\n", factor.Description)
		}
		fmt.Fprintln(out)
	}

	if info.ConfigurationInfo != "" {
		h.colors["header"].Fprintln(out, "CONFIGURATION:")
		fmt.Fprintln(out, info.ConfigurationInfo)
		fmt.Fprintln(out)
	}

	if len(info.Examples) > 0 {
		h.colors["header"].Fprintln(out, "EXAMPLES:")
		for _, example := range info.Examples {
			fmt.Fprint(out, "  ")
			h.colors["example"].Fprintln(out, example)
		}
	}

	return true
}

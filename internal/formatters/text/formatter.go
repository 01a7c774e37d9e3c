// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"sort"
	"strings"

	"vision-scan/internal/core"
	"vision-scan/internal/formatters"
	"vision-scan/internal/validators/macaddress"
	"vision-scan/internal/vision"

	"github.com/fatih/color"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"blue":    color.New(color.FgBlue),
			"white":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable report with one colored section per annotation"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

// printer writes to a builder, coloring only when enabled
type printer struct {
	b       *strings.Builder
	colors  map[string]*color.Color
	noColor bool
}

func (p *printer) line(format string, args ...interface{}) {
	fmt.Fprintf(p.b, format+"\n", args...)
}

func (p *printer) colored(name, format string, args ...interface{}) {
	if p.noColor {
		p.line(format, args...)
		return
	}
	p.colors[name].Fprintf(p.b, format+"\n", args...)
}

// section starts a titled block, separated from the previous one
func (p *printer) section(title string) {
	p.b.WriteString("\n")
	p.colored("cyan", "%s", title)
}

func (f *Formatter) Format(results []*core.InputResult, options formatters.FormatterOptions) (string, error) {
	if options.NoColor {
		color.NoColor = true
	}

	var builder strings.Builder
	p := &printer{b: &builder, colors: f.colors, noColor: options.NoColor}

	if len(results) == 0 {
		return "No inputs scanned.", nil
	}

	failed, macs := 0, 0
	for i, r := range results {
		if r == nil {
			continue
		}
		if i > 0 {
			builder.WriteString("\n")
		}
		f.appendResult(p, r, options)
		if r.Failed() {
			failed++
		}
		macs += len(r.MACs)
	}

	if len(results) > 1 {
		builder.WriteString("\n")
		p.colored("white", "%d inputs scanned, %d MAC addresses found, %d failed", len(results), macs, failed)
	}
	return strings.TrimRight(builder.String(), "\n"), nil
}

func (f *Formatter) appendResult(p *printer, r *core.InputResult, options formatters.FormatterOptions) {
	p.colored("white", "********************** %s **********************", r.Input)
	if r.Location != "" && r.Location != r.Input {
		p.line("Analysed: %s", r.Location)
	}
	if options.Verbose {
		p.line("Kind: %s  Content type: %s  Text source: %s  Duration: %s", r.Kind, r.ContentType, r.TextSource, r.Duration)
	}

	if r.Error != nil {
		p.colored("red", "Error: %v", r.Error)
		return
	}
	for _, w := range r.Warnings {
		p.colored("yellow", "Warning: %s", w)
	}

	f.appendReport(p, r.Report, options)

	if options.Report.Metadata && len(r.Metadata) > 0 {
		p.section("Metadata:")
		keys := make([]string, 0, len(r.Metadata))
		for k := range r.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p.line("%s: %s", k, r.Metadata[k])
		}
	}

	if options.Verbose && len(r.Fragments) > 0 {
		p.section(fmt.Sprintf("%d text fragments", len(r.Fragments)))
		for i, fragment := range r.Fragments {
			p.line("[%d] %q", i, fragment)
		}
	}

	if options.MACEnabled && options.Report.MACAddresses {
		p.section("MAC addresses:")
		if len(r.MACs) == 0 {
			p.colored("yellow", "%s", macaddress.NotFound)
		}
		for i, mac := range r.MACs {
			if options.Verbose && i < len(r.Matches) {
				p.colored("green", "%s  (fragment %d: %q)", mac, r.Matches[i].Context.FragmentIndex, r.Matches[i].Context.Fragment)
				continue
			}
			p.colored("green", "%s", mac)
		}
	}
}

func (f *Formatter) appendReport(p *printer, report *vision.Report, options formatters.FormatterOptions) {
	if report == nil {
		return
	}
	opts := options.Report

	if opts.Faces && len(report.Faces) > 0 {
		p.section("Faces:")
		for _, face := range report.Faces {
			p.line("anger: %s", face.Anger)
			p.line("joy: %s", face.Joy)
			p.line("surprise: %s", face.Surprise)
			p.line("sorrow: %s", face.Sorrow)
			p.line("face bounds: %s", vision.FormatBounds(face.Bounds))
		}
	}

	if opts.Labels && len(report.Labels) > 0 {
		p.section("Labels:")
		appendEntities(p, report.Labels, options.Verbose)
	}

	if opts.Landmarks && len(report.Landmarks) > 0 {
		p.section("Landmarks:")
		for _, landmark := range report.Landmarks {
			p.line("%s", landmark.Description)
			for _, loc := range landmark.Locations {
				p.line("Latitude %f", loc.Latitude)
				p.line("Longitude %f", loc.Longitude)
			}
		}
	}

	if opts.Logos && len(report.Logos) > 0 {
		p.section("Logos:")
		appendEntities(p, report.Logos, options.Verbose)
	}

	if opts.SafeSearch && report.SafeSearch != nil {
		s := report.SafeSearch
		p.section("Safe search:")
		p.line("adult: %s", s.Adult)
		p.line("medical: %s", s.Medical)
		p.line("spoofed: %s", s.Spoof)
		p.line("violence: %s", s.Violence)
		p.line("racy: %s", s.Racy)
	}

	if opts.Texts && len(report.Texts) > 0 {
		p.section("Texts:")
		for _, t := range report.Texts {
			p.line("\n%q", t.Description)
			p.line("bounds: %s", vision.FormatBounds(t.Bounds))
		}
	}

	if opts.Properties && len(report.Colors) > 0 {
		p.section("Properties:")
		for _, c := range report.Colors {
			p.line("fraction: %v", c.PixelFraction)
			p.line("\tr: %v", c.Red)
			p.line("\tg: %v", c.Green)
			p.line("\tb: %v", c.Blue)
		}
	}

	if web := report.Web; web != nil {
		if opts.WebPagesWithMatchingImages && len(web.PagesWithMatchingImages) > 0 {
			p.section(fmt.Sprintf("%d Pages with matching images retrieved", len(web.PagesWithMatchingImages)))
			for _, page := range web.PagesWithMatchingImages {
				p.line("Url   : %s", page.URL)
			}
		}
		if opts.FullMatches && len(web.FullMatchingImages) > 0 {
			p.section(fmt.Sprintf("%d Full Matches found:", len(web.FullMatchingImages)))
			for _, img := range web.FullMatchingImages {
				p.line("Url  : %s", img.URL)
			}
		}
		if opts.PartialMatches && len(web.PartialMatchingImages) > 0 {
			p.section(fmt.Sprintf("%d Partial Matches found:", len(web.PartialMatchingImages)))
			for _, img := range web.PartialMatchingImages {
				p.line("Url  : %s", img.URL)
			}
		}
		if opts.WebEntities && len(web.Entities) > 0 {
			p.section(fmt.Sprintf("%d Web entities found:", len(web.Entities)))
			for _, entity := range web.Entities {
				p.line("Score      : %v", entity.Score)
				p.line("Description: %s", entity.Description)
			}
		}
	}

	if opts.CropHints && len(report.CropHints) > 0 {
		p.section("Crop hints:")
		for _, hint := range report.CropHints {
			p.line("bounds: %s", vision.FormatBounds(hint.Bounds))
		}
	}

	if opts.DocumentBlocks && report.Document != nil && len(report.Document.Blocks) > 0 {
		p.section("Blocks:")
		for _, block := range report.Document.Blocks {
			p.line("\nBlock confidence: %v", block.Confidence)
			p.line("%s", block.Text)
			p.line("bounds: %s", vision.FormatBounds(block.Bounds))
		}
	}
}

func appendEntities(p *printer, entities []vision.Entity, verbose bool) {
	for _, e := range entities {
		if verbose && e.Score > 0 {
			p.line("%s (%.2f)", e.Description, e.Score)
			continue
		}
		p.line("%s", e.Description)
	}
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}

// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/term"

	"vision-scan/internal/config"
	"vision-scan/internal/core"
	"vision-scan/internal/formatters"
	"vision-scan/internal/help"
	"vision-scan/internal/observability"
	"vision-scan/internal/validators/macaddress"
	"vision-scan/internal/version"
	"vision-scan/internal/vision"

	// Import formatters to register them
	_ "vision-scan/internal/formatters/json"
	_ "vision-scan/internal/formatters/macs"
	_ "vision-scan/internal/formatters/text"
	_ "vision-scan/internal/formatters/yaml"
)

// cliFlags holds command line flag values
type cliFlags struct {
	configFile   string
	profileName  string
	listProfiles bool

	features        string
	checks          string
	macMode         string
	fragments       string
	strictDelimiter bool
	zeroPad         bool
	ocrEngine       string
	download        bool
	keepDownloads   bool
	workers         int

	format  string
	output  string
	verbose bool
	debug   bool
	noColor bool

	showHelp    bool
	showVersion bool
}

func newFlagSet(name string, output io.Writer) (*flag.FlagSet, *cliFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	f := &cliFlags{}

	fs.StringVar(&f.configFile, "config", "", "Path to configuration file (YAML)")
	fs.StringVar(&f.profileName, "profile", "", "Profile name to use from config file")
	fs.BoolVar(&f.listProfiles, "list-profiles", false, "List available profiles")

	fs.StringVar(&f.features, "features", "", "Annotations to run: faces,labels,landmarks,logos,text,safe_search,properties,web,crop_hints,document or all")
	fs.StringVar(&f.checks, "checks", "", "Text checks to run on recognized text: MAC_ADDRESS or none")
	fs.StringVar(&f.macMode, "mac-mode", "", "MAC addresses to report per input: all, first, last")
	fs.StringVar(&f.fragments, "fragments", "", "OCR fragments searched: all, full_text, words")
	fs.BoolVar(&f.strictDelimiter, "strict-delimiter", false, "Require one delimiter character throughout a MAC address")
	fs.BoolVar(&f.zeroPad, "zero-pad", false, "Pad single-digit MAC octets to two digits")
	fs.StringVar(&f.ocrEngine, "ocr-engine", "", "Text source: vision or tesseract")
	fs.BoolVar(&f.download, "download", false, "Always download URLs instead of passing them to the vision API")
	fs.BoolVar(&f.keepDownloads, "keep-downloads", false, "Keep downloaded files after the scan")
	fs.IntVar(&f.workers, "workers", 0, "Number of inputs processed in parallel")

	fs.StringVar(&f.format, "format", "", "Output format: text, json, yaml, macs (default: text)")
	fs.StringVar(&f.output, "output", "", "Path to output file (if not specified, output to stdout)")
	fs.BoolVar(&f.verbose, "verbose", false, "Display fragments, scores and bounds")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging of downloads, annotation and extraction")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored output")

	fs.BoolVar(&f.showHelp, "help", false, "Show help information")
	fs.BoolVar(&f.showVersion, "version", false, "Show version information")
	return fs, f
}

// isFlagSet checks if a flag was explicitly set on the command line
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// applyFlags overlays explicitly set flags on the resolved settings. Flags
// left at their zero value never override the config file or profile.
func applyFlags(s config.Settings, fs *flag.FlagSet, f *cliFlags) config.Settings {
	if isFlagSet(fs, "features") {
		s.Features = f.features
	}
	if isFlagSet(fs, "checks") {
		s.Checks = f.checks
	}
	if isFlagSet(fs, "mac-mode") {
		s.MAC.Mode = strings.ToLower(f.macMode)
	}
	if isFlagSet(fs, "fragments") {
		s.MAC.Fragments = strings.ToLower(f.fragments)
	}
	if isFlagSet(fs, "strict-delimiter") {
		s.MAC.StrictDelimiter = f.strictDelimiter
	}
	if isFlagSet(fs, "zero-pad") {
		s.MAC.ZeroPad = f.zeroPad
	}
	if isFlagSet(fs, "ocr-engine") {
		s.Vision.OCREngine = strings.ToLower(f.ocrEngine)
	}
	if isFlagSet(fs, "download") {
		s.Download.Always = f.download
	}
	if isFlagSet(fs, "keep-downloads") {
		s.Download.KeepFiles = f.keepDownloads
	}
	if isFlagSet(fs, "workers") && f.workers > 0 {
		s.Workers = f.workers
	}
	if isFlagSet(fs, "format") && f.format != "" {
		s.Format = f.format
	}
	if isFlagSet(fs, "verbose") {
		s.Verbose = f.verbose
	}
	if isFlagSet(fs, "debug") {
		s.Debug = f.debug
	}
	if isFlagSet(fs, "no-color") {
		s.NoColor = f.noColor
	}
	if os.Getenv("VISION_SCAN_DEBUG") != "" {
		s.Debug = true
	}
	return s
}

func newHelpSystem(noColor bool, defaults string) *help.System {
	h := help.NewSystem(noColor)
	h.RegisterProvider(macaddress.NewValidator(macaddress.Options{}))
	defaultFeatures, _ := vision.ParseFeatures(defaults)
	h.RegisterFeatures(vision.FeatureHelp(defaultFeatures))
	return h
}

// handleHelp prints the requested help page
func handleHelp(h *help.System, args []string) int {
	if len(args) == 0 {
		h.ShowGeneralHelp()
		return 0
	}
	switch strings.ToLower(args[0]) {
	case "checks":
		h.ShowChecksHelp()
	case "features":
		h.ShowFeaturesHelp()
	default:
		if !h.ShowCheckHelp(args[0]) {
			return 1
		}
	}
	return 0
}

func printProfiles(cfg *config.Config) {
	profiles := cfg.ListProfiles()
	if len(profiles) == 0 {
		fmt.Println("No profiles defined.")
		return
	}
	fmt.Println("Available profiles:")
	for _, name := range profiles {
		profile := cfg.GetProfile(name)
		if profile != nil && profile.Description != "" {
			fmt.Printf("  - %s: %s\n", name, profile.Description)
		} else {
			fmt.Printf("  - %s\n", name)
		}
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func run(args []string) int {
	fs, flags := newFlagSet("vision-scan", os.Stderr)
	fs.Usage = func() {
		newHelpSystem(true, "").ShowGeneralHelp()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if flags.showVersion {
		fmt.Println(version.Info("vision-scan"))
		return 0
	}

	cfg := config.LoadConfigOrDefault(flags.configFile)

	if flags.showHelp {
		return handleHelp(newHelpSystem(flags.noColor || !isTerminal(os.Stdout), cfg.Defaults.Features), fs.Args())
	}
	if flags.listProfiles {
		printProfiles(cfg)
		return 0
	}

	var activeProfile *config.Profile
	if flags.profileName != "" {
		activeProfile = cfg.GetProfile(flags.profileName)
		if activeProfile == nil {
			fmt.Fprintf(os.Stderr, "Error: Profile '%s' not found\n", flags.profileName)
			fmt.Fprintf(os.Stderr, "Use --list-profiles to see the available profiles\n")
			return 1
		}
	}

	settings := applyFlags(cfg.Resolve(activeProfile), fs, flags)
	if !isTerminal(os.Stdout) || flags.output != "" {
		settings.NoColor = true
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no input image path or URL given\n")
		fmt.Fprintf(os.Stderr, "Use --help for usage\n")
		return 2
	}
	if _, ok := formatters.Get(settings.Format); !ok {
		fmt.Fprintf(os.Stderr, "Error: unsupported format '%s'. Available formats: %s\n", settings.Format, strings.Join(formatters.List(), ", "))
		return 2
	}

	observer := observability.New(settings.Debug, os.Stderr)
	observer.Detail("main", fmt.Sprintf("Command line arguments: %v", args))
	if activeProfile != nil {
		observer.Detail("main", fmt.Sprintf("Using profile %q", flags.profileName))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pipeline, err := core.NewPipeline(ctx, settings, observer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer pipeline.Close()

	results, scanErr := pipeline.Scanner.Scan(ctx, inputs)

	out, err := formatters.Export(settings.Format, results, formatters.FormatterOptions{
		Verbose:    settings.Verbose,
		NoColor:    settings.NoColor,
		MACEnabled: settings.MACEnabled(),
		Report:     settings.Report,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if flags.output != "" {
		if err := os.WriteFile(flags.output, []byte(out+"\n"), 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Results written to %s\n", flags.output)
	} else {
		fmt.Println(out)
	}

	if scanErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", scanErr)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:]))
}

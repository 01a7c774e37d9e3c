// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// extract-macs prints the MAC addresses printed on device labels, one per
// line, or "MAC address not found".
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"vision-scan/internal/config"
	"vision-scan/internal/core"
	"vision-scan/internal/formatters"
	"vision-scan/internal/observability"
	"vision-scan/internal/version"

	_ "vision-scan/internal/formatters/json"
	_ "vision-scan/internal/formatters/macs"
	_ "vision-scan/internal/formatters/yaml"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	profileName := flag.String("profile", "macs", "Profile to start from (mac reports only the last address)")
	mode := flag.String("mode", "", "MAC addresses to report per input: all, first, last")
	ocrEngine := flag.String("ocr-engine", "", "Text source: vision or tesseract")
	strict := flag.Bool("strict-delimiter", false, "Require one delimiter character throughout a MAC address")
	zeroPad := flag.Bool("zero-pad", false, "Pad single-digit MAC octets to two digits")
	format := flag.String("format", "macs", "Output format: macs, json, yaml")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: extract-macs [options] <image-path-or-url>...\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info("extract-macs"))
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadConfigOrDefault(*configFile)
	profile := cfg.GetProfile(*profileName)
	if profile == nil {
		fmt.Fprintf(os.Stderr, "Error: Profile '%s' not found\n", *profileName)
		os.Exit(1)
	}

	settings := cfg.Resolve(profile)
	// Always extract, whatever the profile's checks say
	settings.Checks = "MAC_ADDRESS"
	if *mode != "" {
		settings.MAC.Mode = strings.ToLower(*mode)
	}
	if *ocrEngine != "" {
		settings.Vision.OCREngine = strings.ToLower(*ocrEngine)
	}
	if *strict {
		settings.MAC.StrictDelimiter = true
	}
	if *zeroPad {
		settings.MAC.ZeroPad = true
	}
	settings.Debug = settings.Debug || *debug

	observer := observability.New(settings.Debug, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pipeline, err := core.NewPipeline(ctx, settings, observer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	results, scanErr := pipeline.Scanner.Scan(ctx, flag.Args())
	pipeline.Close()

	out, err := formatters.Export(*format, results, formatters.FormatterOptions{NoColor: true, MACEnabled: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(out)

	if scanErr != nil {
		os.Exit(1)
	}
}

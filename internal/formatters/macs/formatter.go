// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package macs prints only the extracted MAC addresses, one per line.
package macs

import (
	"fmt"
	"strings"

	"vision-scan/internal/core"
	"vision-scan/internal/formatters"
	"vision-scan/internal/validators/macaddress"
)

// Formatter implements the bare MAC address listing
type Formatter struct{}

// NewFormatter creates a new MAC listing formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "macs"
}

func (f *Formatter) Description() string {
	return "MAC addresses only, one per line, for scripts"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

// Format prints the addresses of each input. With more than one input each
// line is prefixed with the input it came from.
func (f *Formatter) Format(results []*core.InputResult, options formatters.FormatterOptions) (string, error) {
	var lines []string
	prefix := len(results) > 1
	for _, r := range results {
		if r == nil {
			continue
		}
		var values []string
		switch {
		case r.Error != nil:
			values = []string{fmt.Sprintf("error: %v", r.Error)}
		case len(r.MACs) == 0:
			values = []string{macaddress.NotFound}
		default:
			values = r.MACs
		}
		for _, v := range values {
			if prefix {
				v = r.Input + ": " + v
			}
			lines = append(lines, v)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}

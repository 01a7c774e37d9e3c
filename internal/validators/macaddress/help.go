// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package macaddress

import "vision-scan/internal/help"

// GetCheckInfo returns standardized information about the MAC address check
func (v *Validator) GetCheckInfo() help.CheckInfo {
	return help.CheckInfo{
		Name:             "MAC_ADDRESS",
		ShortDescription: "Extracts MAC addresses from text recognized in images",
		DetailedDescription: `The MAC address check reads the text fragments that OCR recognized in an image (device labels, stickers, screenshots of network tools) and reports every fragment that is exactly one MAC address.

A fragment matches when, after trimming surrounding whitespace, it is six groups of one or two hex digits separated by ':' or '-', or twelve hex digits with no separator. Matches are reported in canonical form: six uppercase groups joined by ':'. Fragments are searched in OCR order and repeated addresses are kept.`,

		Patterns: []string{
			"Colon delimited: aa:bb:cc:dd:ee:ff",
			"Hyphen delimited: AA-BB-CC-DD-EE-FF",
			"Bare: aabbccddeeff",
		},

		SupportedFormats: []string{
			"Six groups of 1-2 hex digits with ':' or '-' separators",
			"Twelve contiguous hex digits",
			"Upper, lower and mixed case",
		},

		ConfidenceFactors: []help.ConfidenceFactor{
			{Name: "Valid Format", Description: "Fragment is exactly one delimited MAC address", Weight: 70},
			{Name: "Consistent Delimiters", Description: "All five separators are the same character", Weight: 30},
			{Name: "Bare Pattern", Description: "Twelve hex digits without separators score 80", Weight: 0},
			{Name: "Unicast Global Bits", Description: "Bare addresses with the multicast or locally administered bit lose 10", Weight: 0},
		},

		ConfigurationInfo: `mac:
  mode: all              # all, first or last
  strict_delimiter: false
  zero_pad: false
  fragments: all         # all, full_text or words`,

		Examples: []string{
			"vision-scan --profile mac label.jpg",
			"vision-scan --features text --mac-mode first https://example.com/label.png",
			"extract-macs --strict-delimiter photo.jpg",
		},
	}
}

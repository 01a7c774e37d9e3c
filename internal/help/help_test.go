// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubProvider struct{ info CheckInfo }

func (s stubProvider) GetCheckInfo() CheckInfo { return s.info }

func newTestSystem(buf *bytes.Buffer) *System {
	h := NewSystem(true)
	h.SetOutput(buf)
	h.RegisterProvider(stubProvider{CheckInfo{
		Name:             "MAC_ADDRESS",
		ShortDescription: "finds MACs",
		Patterns:         []string{"aa:bb:cc:dd:ee:ff"},
		ConfidenceFactors: []ConfidenceFactor{
			{Name: "Valid Format", Description: "exact match", Weight: 70},
		},
		Examples: []string{"vision-scan label.jpg"},
	}})
	return h
}

func TestShowCheckHelp(t *testing.T) {
	var buf bytes.Buffer
	h := newTestSystem(&buf)

	assert.True(t, h.ShowCheckHelp("mac_address"))
	out := buf.String()
	assert.Contains(t, out, "MAC_ADDRESS Check")
	assert.Contains(t, out, "aa:bb:cc:dd:ee:ff")
	assert.Contains(t, out, "Valid Format (70%): exact match")
}

func TestShowCheckHelp_Unknown(t *testing.T) {
	var buf bytes.Buffer
	h := newTestSystem(&buf)

	assert.False(t, h.ShowCheckHelp("SSN"))
	assert.Contains(t, buf.String(), "Check 'SSN' not found")
}

func TestShowChecksHelp(t *testing.T) {
	var buf bytes.Buffer
	h := newTestSystem(&buf)

	h.ShowChecksHelp()
	assert.Contains(t, buf.String(), "MAC_ADDRESS")
	assert.Contains(t, buf.String(), "finds MACs")
}

func TestShowFeaturesHelp(t *testing.T) {
	var buf bytes.Buffer
	h := newTestSystem(&buf)
	h.RegisterFeatures([]FeatureInfo{
		{Name: "text", Description: "OCR", Default: true},
		{Name: "faces", Description: "Face detection"},
	})

	h.ShowFeaturesHelp()
	out := buf.String()
	assert.Contains(t, out, "text")
	assert.Contains(t, out, "Face detection")
}

func TestShowGeneralHelp(t *testing.T) {
	var buf bytes.Buffer
	newTestSystem(&buf).ShowGeneralHelp()
	assert.Contains(t, buf.String(), "--mac-mode")
	assert.Contains(t, buf.String(), "SPARK_TOKEN")
}

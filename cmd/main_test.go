// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-scan/internal/config"
)

func baseSettings() config.Settings {
	return config.Settings{
		Format:   "text",
		Features: "labels,web,text",
		Checks:   "MAC_ADDRESS",
		Workers:  4,
		MAC:      config.MACConfig{Mode: "last", Fragments: "all", StrictDelimiter: true},
		Vision:   config.VisionConfig{OCREngine: "vision"},
	}
}

func TestApplyFlags_OnlyExplicitFlagsOverride(t *testing.T) {
	fs, flags := newFlagSet("test", io.Discard)
	require.NoError(t, fs.Parse([]string{"--mac-mode", "FIRST", "--format", "json", "label.png"}))

	got := applyFlags(baseSettings(), fs, flags)
	assert.Equal(t, "first", got.MAC.Mode)
	assert.Equal(t, "json", got.Format)
	assert.Equal(t, "labels,web,text", got.Features)
	assert.True(t, got.MAC.StrictDelimiter, "unset bool flag keeps the configured value")
	assert.Equal(t, 4, got.Workers)
	assert.Equal(t, []string{"label.png"}, fs.Args())
}

func TestApplyFlags_ExplicitFalse(t *testing.T) {
	fs, flags := newFlagSet("test", io.Discard)
	require.NoError(t, fs.Parse([]string{"--strict-delimiter=false", "--ocr-engine", "Tesseract", "--download", "--workers", "8"}))

	got := applyFlags(baseSettings(), fs, flags)
	assert.False(t, got.MAC.StrictDelimiter)
	assert.Equal(t, "tesseract", got.Vision.OCREngine)
	assert.True(t, got.Download.Always)
	assert.Equal(t, 8, got.Workers)
}

func TestApplyFlags_DebugFromEnvironment(t *testing.T) {
	t.Setenv("VISION_SCAN_DEBUG", "1")
	fs, flags := newFlagSet("test", io.Discard)
	require.NoError(t, fs.Parse(nil))

	assert.True(t, applyFlags(baseSettings(), fs, flags).Debug)
}

func TestHandleHelp(t *testing.T) {
	h := newHelpSystem(true, "labels,web,text")
	h.SetOutput(io.Discard)

	assert.Equal(t, 0, handleHelp(h, nil))
	assert.Equal(t, 0, handleHelp(h, []string{"features"}))
	assert.Equal(t, 0, handleHelp(h, []string{"checks"}))
	assert.Equal(t, 0, handleHelp(h, []string{"mac_address"}))
	assert.Equal(t, 1, handleHelp(h, []string{"ssn"}))
}

// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-scan/internal/core"
	"vision-scan/internal/formatters"
	_ "vision-scan/internal/formatters/json"
	_ "vision-scan/internal/formatters/macs"
	_ "vision-scan/internal/formatters/text"
	_ "vision-scan/internal/formatters/yaml"
)

func TestRegistry_List(t *testing.T) {
	assert.Equal(t, []string{"json", "macs", "text", "yaml"}, formatters.List())
}

func TestExport_UnknownFormat(t *testing.T) {
	_, err := formatters.Export("sarif", nil, formatters.FormatterOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json, macs, text, yaml")
}

func TestExport(t *testing.T) {
	out, err := formatters.Export("macs", []*core.InputResult{{Input: "a.png", MACs: []string{"AA:BB:CC:DD:EE:FF"}}}, formatters.FormatterOptions{})
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", out)
}

func TestGetFormatInfo(t *testing.T) {
	info := formatters.GetFormatInfo("json")
	assert.Equal(t, "application/json", info.MimeType)
	assert.Equal(t, ".json", info.Extension)
	assert.Equal(t, formatters.FormatInfo{}, formatters.GetFormatInfo("nope"))
	assert.Len(t, formatters.GetSupportedFormats(), 4)
}

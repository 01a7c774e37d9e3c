// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDir_Override(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VISION_SCAN_CONFIG_DIR", dir)

	assert.Equal(t, dir, GetConfigDir())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), GetConfigFile())
}

func TestSafeFilename(t *testing.T) {
	tests := map[string]string{
		"label.jpg":           "label.jpg",
		"  label.jpg ":        "label.jpg",
		"../../etc/passwd":    "passwd",
		`..\..\boot.ini`:      "boot.ini",
		"a:b.png":             "a_b.png",
		"with\x00nul.png":     "withnul.png",
		"..":                  "",
		"":                    "",
		"/":                   "",
		"dir/":                "dir",
		"photo \"quoted\".gif": "photo _quoted_.gif",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeFilename(in), "SafeFilename(%q)", in)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x.yaml"), ExpandHome("~/x.yaml"))
	assert.Equal(t, "/abs/x.yaml", ExpandHome("/abs/x.yaml"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath(""))
	assert.NoError(t, ValidatePath("images/label.jpg"))

	err := ValidatePath("bad\x00path")
	require.Error(t, err)
	var pathErr *PathValidationError
	assert.ErrorAs(t, err, &pathErr)
}

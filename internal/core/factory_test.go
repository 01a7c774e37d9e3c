// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipeline_TesseractNeedsNoClient(t *testing.T) {
	s := testSettings("last")
	s.Vision.OCREngine = "tesseract"
	s.Download.Dir = t.TempDir()

	p, err := NewPipeline(context.Background(), s, nil)
	require.NoError(t, err)
	assert.NotNil(t, p.Scanner)
	assert.Empty(t, p.Scanner.VisionFeatures())
	assert.NoError(t, p.Close())
}

func TestNewPipeline_InvalidSettings(t *testing.T) {
	s := testSettings("newest")
	_, err := NewPipeline(context.Background(), s, nil)
	assert.ErrorContains(t, err, "invalid mac mode")
}

func TestNewPipeline_UnknownFeature(t *testing.T) {
	s := testSettings("all")
	s.Features = "x-ray"
	_, err := NewPipeline(context.Background(), s, nil)
	assert.ErrorContains(t, err, "unknown feature")
}

func TestNewPipeline_FetcherSharesDownloadSettings(t *testing.T) {
	for _, always := range []bool{true, false} {
		s := testSettings("all")
		s.Vision.OCREngine = "tesseract"
		s.Download.Dir = t.TempDir()
		s.Download.Always = always

		p, err := NewPipeline(context.Background(), s, nil)
		require.NoError(t, err)
		assert.Equal(t, always, p.Scanner.fetcher.AlwaysDownload())
		assert.Equal(t, s.Download, p.Scanner.settings.Download)
		assert.NoError(t, p.Close())
	}
}

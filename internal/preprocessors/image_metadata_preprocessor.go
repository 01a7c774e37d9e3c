// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"vision-scan/internal/observability"
	meta_extract_exiflib "vision-scan/internal/preprocessors/meta-extractors/meta-extract-exiflib"
)

// ErrNoExif is returned for images without an EXIF block.
var ErrNoExif = meta_extract_exiflib.ErrNoExif

// ImageMetadataPreprocessor extracts EXIF metadata from image files
type ImageMetadataPreprocessor struct {
	observer *observability.StandardObserver
}

// NewImageMetadataPreprocessor creates a new image metadata preprocessor
func NewImageMetadataPreprocessor() *ImageMetadataPreprocessor {
	return &ImageMetadataPreprocessor{}
}

// SetObserver sets the observability component
func (imp *ImageMetadataPreprocessor) SetObserver(observer *observability.StandardObserver) {
	imp.observer = observer
}

// GetName returns the name of this preprocessor
func (imp *ImageMetadataPreprocessor) GetName() string {
	return "Image Metadata Preprocessor"
}

// GetSupportedExtensions returns the formats that carry EXIF blocks
func (imp *ImageMetadataPreprocessor) GetSupportedExtensions() []string {
	return []string{".jpg", ".jpeg", ".tif", ".tiff"}
}

// CanProcess checks if this preprocessor can handle the given file
func (imp *ImageMetadataPreprocessor) CanProcess(filePath string) bool {
	return hasExtension(filePath, imp.GetSupportedExtensions())
}

// Process reads the EXIF tags. Tag values become fragments so a MAC
// address written into a camera comment is found too.
func (imp *ImageMetadataPreprocessor) Process(ctx context.Context, filePath string) (*ProcessedContent, error) {
	var finishTiming func(bool, map[string]interface{})
	if imp.observer != nil {
		finishTiming = imp.observer.StartTiming("image_metadata_preprocessor", "extract_exif", filePath)
	}

	content := &ProcessedContent{
		OriginalPath:  filePath,
		Filename:      filepath.Base(filePath),
		ProcessorType: "image_metadata",
		Format:        "Image Metadata",
	}

	if err := ctx.Err(); err != nil {
		return content, err
	}

	exifData, err := meta_extract_exiflib.ExtractExif(filePath)
	if err != nil {
		content.Error = err
		if finishTiming != nil {
			finishTiming(false, map[string]interface{}{"error": err.Error()})
		}
		return content, err
	}

	var lines []string
	content.Metadata = make(map[string]string, len(exifData.Tags))
	for _, key := range exifData.GetSortedKeys() {
		value := exifData.Tags[key]
		content.Metadata[key] = value
		lines = append(lines, fmt.Sprintf("%s: %s", key, value))
		for _, fragment := range strings.Fields(value) {
			content.Fragments = append(content.Fragments, strings.Trim(fragment, `"`))
		}
	}
	content.Text = strings.Join(lines, "\n")
	content.WordCount = len(content.Fragments)
	content.CharCount = len(content.Text)
	content.LineCount = len(lines)
	content.Success = true

	if imp.observer != nil && imp.observer.DebugObserver != nil {
		imp.observer.DebugObserver.LogMetric("image_metadata_preprocessor", "exif_tags", len(content.Metadata))
	}
	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{"tag_count": len(content.Metadata)})
	}
	return content, nil
}

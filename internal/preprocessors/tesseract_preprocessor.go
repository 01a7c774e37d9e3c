// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"vision-scan/internal/observability"
)

// TesseractPreprocessor runs offline OCR on images. The engine itself is
// only linked in with the tesseract build tag.
type TesseractPreprocessor struct {
	languages []string
	observer  *observability.StandardObserver
}

// NewTesseractPreprocessor creates an OCR preprocessor for the given
// tesseract language codes. No languages means "eng".
func NewTesseractPreprocessor(languages []string) *TesseractPreprocessor {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractPreprocessor{languages: languages}
}

// SetObserver sets the observability component
func (tp *TesseractPreprocessor) SetObserver(observer *observability.StandardObserver) {
	tp.observer = observer
}

// GetName returns the name of this preprocessor
func (tp *TesseractPreprocessor) GetName() string {
	return "Tesseract OCR"
}

// GetSupportedExtensions returns the image formats tesseract reads
func (tp *TesseractPreprocessor) GetSupportedExtensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".gif", ".webp", ".pnm"}
}

// CanProcess checks if this preprocessor can handle the given file
func (tp *TesseractPreprocessor) CanProcess(filePath string) bool {
	return hasExtension(filePath, tp.GetSupportedExtensions())
}

// Process recognizes the text of an image. Fragments are the full text
// followed by each recognized word, matching the vision text layout.
func (tp *TesseractPreprocessor) Process(ctx context.Context, filePath string) (*ProcessedContent, error) {
	var finishTiming func(bool, map[string]interface{})
	if tp.observer != nil {
		finishTiming = tp.observer.StartTiming("tesseract_preprocessor", "recognize", filePath)
	}

	content := &ProcessedContent{
		OriginalPath:  filePath,
		Filename:      filepath.Base(filePath),
		ProcessorType: "tesseract",
		Format:        "OCR Text",
	}

	var text string
	var words []string
	err := ctx.Err()
	if err == nil {
		text, words, err = recognize(ctx, filePath, tp.languages)
	}
	if err != nil {
		content.Error = fmt.Errorf("tesseract: %w", err)
		if finishTiming != nil {
			finishTiming(false, map[string]interface{}{"error": err.Error()})
		}
		return content, content.Error
	}

	text = strings.TrimSpace(text)
	content.Text = text
	if text != "" {
		content.Fragments = append([]string{text}, words...)
	}
	content.WordCount = len(words)
	content.CharCount = len(text)
	content.LineCount = strings.Count(text, "\n") + 1
	content.Success = true

	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{"word_count": len(words), "languages": strings.Join(tp.languages, "+")})
	}
	return content, nil
}

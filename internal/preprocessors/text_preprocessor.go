// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"context"
	"fmt"
	"path/filepath"

	"vision-scan/internal/observability"
	textextractpdftextlib "vision-scan/internal/preprocessors/text-extractors/text-extract-pdftextlib"
)

// TextPreprocessor extracts text from PDF documents
type TextPreprocessor struct {
	name                string
	supportedExtensions []string
	maxPages            int
	observer            *observability.StandardObserver
}

// NewTextPreprocessor creates a new text preprocessor
func NewTextPreprocessor() *TextPreprocessor {
	return &TextPreprocessor{
		name:                "Text Extractor",
		supportedExtensions: []string{".pdf"},
		maxPages:            textextractpdftextlib.DefaultMaxPages,
	}
}

// SetMaxPages limits how many pages are read
func (tp *TextPreprocessor) SetMaxPages(n int) {
	tp.maxPages = n
}

// SetObserver sets the observability component
func (tp *TextPreprocessor) SetObserver(observer *observability.StandardObserver) {
	tp.observer = observer
}

// GetName returns the name of this preprocessor
func (tp *TextPreprocessor) GetName() string {
	return tp.name
}

// GetSupportedExtensions returns the file extensions this preprocessor supports
func (tp *TextPreprocessor) GetSupportedExtensions() []string {
	return tp.supportedExtensions
}

// CanProcess checks if this preprocessor can handle the given file
func (tp *TextPreprocessor) CanProcess(filePath string) bool {
	return hasExtension(filePath, tp.supportedExtensions)
}

// Process validates the PDF and extracts its text
func (tp *TextPreprocessor) Process(ctx context.Context, filePath string) (*ProcessedContent, error) {
	var finishTiming func(bool, map[string]interface{})
	var finishStep func(bool, string)
	if tp.observer != nil {
		finishTiming = tp.observer.StartTiming("text_preprocessor", "process_file", filePath)
		if tp.observer.DebugObserver != nil {
			finishStep = tp.observer.DebugObserver.StartStep("text_preprocessor", "process_file", filePath)
		}
	}

	content := &ProcessedContent{
		OriginalPath:  filePath,
		Filename:      filepath.Base(filePath),
		ProcessorType: "pdf",
	}

	err := tp.processPDF(ctx, filePath, content)

	if finishTiming != nil {
		metadata := map[string]interface{}{"file_ext": filepath.Ext(filePath)}
		if err == nil {
			metadata["word_count"] = content.WordCount
			metadata["page_count"] = content.PageCount
		} else {
			metadata["error"] = err.Error()
		}
		finishTiming(err == nil, metadata)
	}
	if finishStep != nil {
		if err != nil {
			finishStep(false, fmt.Sprintf("Failed to extract text: %v", err))
		} else {
			finishStep(true, fmt.Sprintf("Extracted text: %d words, %d pages", content.WordCount, content.PageCount))
		}
	}

	return content, err
}

func (tp *TextPreprocessor) processPDF(ctx context.Context, filePath string, content *ProcessedContent) error {
	if err := textextractpdftextlib.Validate(filePath); err != nil {
		content.Error = err
		return err
	}

	pdfContent, err := textextractpdftextlib.ExtractText(ctx, filePath, tp.maxPages)
	if err != nil {
		content.Error = fmt.Errorf("failed to extract text from PDF: %w", err)
		return content.Error
	}

	if pdfContent.PagesRead < pdfContent.PageCount && tp.observer != nil {
		tp.observer.Detail("text_preprocessor",
			fmt.Sprintf("read %d of %d pages of %s", pdfContent.PagesRead, pdfContent.PageCount, content.Filename))
	}

	content.Text = pdfContent.Text
	content.Fragments = Fragments(pdfContent.Text)
	content.Format = "PDF Document"
	content.PageCount = pdfContent.PageCount
	content.WordCount = pdfContent.WordCount
	content.CharCount = pdfContent.CharCount
	content.LineCount = pdfContent.LineCount
	content.Success = true
	return nil
}

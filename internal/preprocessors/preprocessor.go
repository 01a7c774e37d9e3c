// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"vision-scan/internal/observability"
)

var (
	// ErrNoPreprocessor is returned when no registered preprocessor accepts a file.
	ErrNoPreprocessor = errors.New("no preprocessor for file")
	// ErrTesseractUnavailable is returned by the OCR preprocessor when the
	// binary was built without the tesseract build tag.
	ErrTesseractUnavailable = errors.New("tesseract OCR is not available in this build (rebuild with -tags tesseract)")
)

// ProcessedContent represents content that has been processed by a preprocessor
type ProcessedContent struct {
	// Original file information
	OriginalPath string
	Filename     string

	// Extracted content
	Text string
	// Fragments follow the vision response layout: the full text first,
	// then one fragment per token.
	Fragments []string

	// Content metadata
	Format    string
	PageCount int
	WordCount int
	CharCount int
	LineCount int

	// Processing information
	ProcessorType string
	Success       bool
	Error         error

	// Metadata holds tags such as EXIF fields
	Metadata map[string]string
}

// Preprocessor interface defines methods for preprocessing files
type Preprocessor interface {
	// CanProcess checks if this preprocessor can handle the given file
	CanProcess(filePath string) bool

	// Process extracts content from the file
	Process(ctx context.Context, filePath string) (*ProcessedContent, error)

	// GetName returns the name of this preprocessor
	GetName() string

	// GetSupportedExtensions returns the file extensions this preprocessor supports
	GetSupportedExtensions() []string

	// SetObserver sets the observability component
	SetObserver(observer *observability.StandardObserver)
}

// PreprocessorManager manages all available preprocessors
type PreprocessorManager struct {
	preprocessors []Preprocessor
}

// NewPreprocessorManager creates a new preprocessor manager
func NewPreprocessorManager() *PreprocessorManager {
	return &PreprocessorManager{
		preprocessors: make([]Preprocessor, 0),
	}
}

// NewDefaultManager registers the text sources used for non-image inputs.
func NewDefaultManager(observer *observability.StandardObserver) *PreprocessorManager {
	pm := NewPreprocessorManager()
	pm.RegisterPreprocessor(NewTextPreprocessor())
	pm.RegisterPreprocessor(NewPlainTextPreprocessor())
	pm.SetObserver(observer)
	return pm
}

// RegisterPreprocessor adds a preprocessor to the manager
func (pm *PreprocessorManager) RegisterPreprocessor(p Preprocessor) {
	pm.preprocessors = append(pm.preprocessors, p)
}

// SetObserver passes the observer to every registered preprocessor
func (pm *PreprocessorManager) SetObserver(observer *observability.StandardObserver) {
	for _, p := range pm.preprocessors {
		p.SetObserver(observer)
	}
}

// GetPreprocessor returns the appropriate preprocessor for a file, or nil if none found
func (pm *PreprocessorManager) GetPreprocessor(filePath string) Preprocessor {
	for _, p := range pm.preprocessors {
		if p.CanProcess(filePath) {
			return p
		}
	}
	return nil
}

// ProcessFile runs the preprocessors that accept the file in registration
// order and returns the first successful result.
func (pm *PreprocessorManager) ProcessFile(ctx context.Context, filePath string) (*ProcessedContent, error) {
	var lastError error
	tried := 0
	for _, p := range pm.preprocessors {
		if !p.CanProcess(filePath) {
			continue
		}
		tried++
		result, err := p.Process(ctx, filePath)
		if err == nil && result != nil && result.Success {
			return result, nil
		}
		lastError = err
	}

	if tried == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPreprocessor, filepath.Base(filePath))
	}
	if lastError == nil {
		lastError = fmt.Errorf("failed to extract text from %s", filepath.Base(filePath))
	}
	return &ProcessedContent{
		OriginalPath:  filePath,
		Filename:      filepath.Base(filePath),
		ProcessorType: "failed",
		Error:         lastError,
	}, lastError
}

// GetAvailablePreprocessors returns all registered preprocessors
func (pm *PreprocessorManager) GetAvailablePreprocessors() []Preprocessor {
	return pm.preprocessors
}

// Fragments splits text into extractor input: the whole text followed by
// each whitespace-separated token with surrounding punctuation trimmed.
func Fragments(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields)+1)
	out = append(out, text)
	for _, field := range fields {
		token := strings.TrimFunc(field, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if token != "" {
			out = append(out, token)
		}
	}
	return out
}

func hasExtension(filePath string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, supported := range extensions {
		if ext == supported {
			return true
		}
	}
	return false
}

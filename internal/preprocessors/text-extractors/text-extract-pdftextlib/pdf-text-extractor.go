// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package textextractpdftextlib

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultMaxPages bounds extraction for very large documents.
const DefaultMaxPages = 50

// TextContent represents the extracted text content from a PDF document
type TextContent struct {
	Filename    string
	Text        string
	PageCount   int // pages in the document
	PagesRead   int
	FailedPages int
	WordCount   int
	CharCount   int
	LineCount   int
}

// Validate checks the document structure with pdfcpu before extraction.
func Validate(filePath string) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(filePath, conf); err != nil {
		return fmt.Errorf("invalid PDF: %w", err)
	}
	return nil
}

// ExtractText extracts text from at most maxPages pages of a PDF document
// using ledongthuc/pdf. A maxPages of zero uses DefaultMaxPages.
func ExtractText(ctx context.Context, filePath string, maxPages int) (*TextContent, error) {
	content := &TextContent{
		Filename: filepath.Base(filePath),
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return content, fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	content.PageCount = r.NumPage()
	content.PagesRead = content.PageCount
	if content.PagesRead > maxPages {
		content.PagesRead = maxPages
	}

	var buf bytes.Buffer
	for i := 1; i <= content.PagesRead; i++ {
		if err := ctx.Err(); err != nil {
			return content, err
		}

		p := r.Page(i)
		if p.V.IsNull() {
			content.FailedPages++
			continue
		}
		text, err := extractTextWithProperSpacing(p)
		if err != nil {
			content.FailedPages++
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(text)
	}

	content.Text = cleanText(buf.String())
	content.WordCount = len(strings.Fields(content.Text))
	content.CharCount = len(content.Text)
	if content.Text != "" {
		content.LineCount = strings.Count(content.Text, "\n") + 1
	}
	return content, nil
}

// cleanText trims each line, drops empty ones and collapses runs of spaces
func cleanText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(strings.ReplaceAll(line, "\t", " ")), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// extractTextWithProperSpacing extracts text using row-based positioning for better spacing
func extractTextWithProperSpacing(p pdf.Page) (string, error) {
	rows, err := p.GetTextByRow()
	if err != nil {
		return p.GetPlainText(nil)
	}

	sortedRows := make([]*pdf.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil && len(row.Content) > 0 {
			sortedRows = append(sortedRows, row)
		}
	}

	// PDF Y grows upwards, so higher rows come first
	sort.SliceStable(sortedRows, func(i, j int) bool {
		return averageY(sortedRows[i].Content) > averageY(sortedRows[j].Content)
	})

	var buf bytes.Buffer
	for _, row := range sortedRows {
		rowText := reconstructRowText(row.Content)
		if strings.TrimSpace(rowText) != "" {
			buf.WriteString(rowText)
			buf.WriteString("\n")
		}
	}
	return buf.String(), nil
}

func averageY(textElements []pdf.Text) float64 {
	if len(textElements) == 0 {
		return 0
	}
	var totalY float64
	for _, element := range textElements {
		totalY += element.Y
	}
	return totalY / float64(len(textElements))
}

// reconstructRowText joins the glyph runs of a row left to right, inserting
// a space where the gap is wider than a fifth of the font size.
func reconstructRowText(textElements []pdf.Text) string {
	if len(textElements) == 0 {
		return ""
	}

	sorted := make([]pdf.Text, len(textElements))
	copy(sorted, textElements)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].X < sorted[j].X
	})

	var buf bytes.Buffer
	for i, element := range sorted {
		buf.WriteString(element.S)
		if i == len(sorted)-1 {
			break
		}

		fontSize := element.FontSize
		if fontSize <= 0 {
			fontSize = 12
		}
		gap := sorted[i+1].X - (element.X + element.W)
		if gap > fontSize*0.2 {
			buf.WriteString(" ")
		}
	}
	return buf.String()
}

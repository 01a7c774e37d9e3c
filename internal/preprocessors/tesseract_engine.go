// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build tesseract

package preprocessors

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractAvailable reports whether offline OCR is linked in.
const TesseractAvailable = true

func recognize(ctx context.Context, filePath string, languages []string) (string, []string, error) {
	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetLanguage(languages...); err != nil {
		return "", nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImage(filePath); err != nil {
		return "", nil, fmt.Errorf("set image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	text, err := c.Text()
	if err != nil {
		return "", nil, fmt.Errorf("recognize text: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return text, nil, nil
	}
	words := make([]string, 0, len(boxes))
	for _, b := range boxes {
		if b.Word != "" {
			words = append(words, b.Word)
		}
	}
	return text, words, nil
}

// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !tesseract

package preprocessors

import "context"

// TesseractAvailable reports whether offline OCR is linked in.
const TesseractAvailable = false

func recognize(context.Context, string, []string) (string, []string, error) {
	return "", nil, ErrTesseractUnavailable
}

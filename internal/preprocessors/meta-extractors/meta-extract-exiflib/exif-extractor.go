// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metaextractexiflib

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ErrNoExif is returned for images that carry no EXIF block.
var ErrNoExif = errors.New("no EXIF data found")

// commentScanLimit bounds the search for a JPEG comment segment.
const commentScanLimit = 1 << 20

// ExifData represents the extracted EXIF metadata
type ExifData struct {
	FilePath string
	Tags     map[string]string
}

// exifWalker implements the Walker interface to extract all EXIF tags
type exifWalker struct {
	tags map[string]string
}

// Walk implements the Walker interface
func (w *exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag == nil {
		return nil
	}
	value := tag.String()
	if tag.Format() == tiff.StringVal {
		if s, err := tag.StringVal(); err == nil {
			value = s
		}
	}
	w.tags[string(name)] = strings.TrimSpace(value)
	return nil
}

// ExtractExif extracts EXIF data from an image file
func ExtractExif(filePath string) (*ExifData, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	// Non-critical errors still yield the tags that decoded
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return nil, fmt.Errorf("%w: %v", ErrNoExif, err)
	}

	result := &ExifData{
		FilePath: filePath,
		Tags:     make(map[string]string),
	}
	x.Walk(&exifWalker{tags: result.Tags})

	if lat, long, err := x.LatLong(); err == nil {
		result.Tags["GPSLatitudeDecimal"] = fmt.Sprintf("%.6f", lat)
		result.Tags["GPSLongitudeDecimal"] = fmt.Sprintf("%.6f", long)
	}

	if _, err := f.Seek(0, io.SeekStart); err == nil {
		head := make([]byte, commentScanLimit)
		n, _ := io.ReadFull(f, head)
		if comment := jpegComment(head[:n]); comment != "" {
			result.Tags["JFIF_Comment"] = comment
		}
	}

	return result, nil
}

// GetSortedKeys returns the tag keys in alphabetical order, without the raw
// GPS rationals that the decimal fields replace
func (e *ExifData) GetSortedKeys() []string {
	sortedKeys := make([]string, 0, len(e.Tags))
	for name := range e.Tags {
		if name == string(exif.GPSLatitude) ||
			name == string(exif.GPSLongitude) ||
			name == string(exif.GPSTimeStamp) {
			continue
		}
		sortedKeys = append(sortedKeys, name)
	}
	sort.Strings(sortedKeys)
	return sortedKeys
}

// jpegComment returns the first non-empty JPEG comment segment (0xFFFE)
func jpegComment(data []byte) string {
	for i := 0; i+4 < len(data); i++ {
		if data[i] != 0xFF || data[i+1] != 0xFE {
			continue
		}
		length := int(data[i+2])<<8 | int(data[i+3])
		// the length field counts its own two bytes
		if length <= 2 || i+2+length > len(data) {
			continue
		}
		comment := string(bytes.TrimRight(data[i+4:i+2+length], "\x00"))
		if strings.TrimSpace(comment) != "" && isPrintableString(comment) {
			return strings.TrimSpace(comment)
		}
	}
	return ""
}

func isPrintableString(s string) bool {
	for _, r := range s {
		if (r < 32 && r != '\n' && r != '\r' && r != '\t') || r == 0x7f {
			return false
		}
	}
	return len(s) > 0
}

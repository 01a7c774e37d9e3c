// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// tiffWithDescription builds a little-endian TIFF whose only IFD entry is
// an ImageDescription string.
func tiffWithDescription(desc string) []byte {
	value := append([]byte(desc), 0)
	buf := []byte("II*\x00")
	buf = binary.LittleEndian.AppendUint32(buf, 8) // first IFD offset
	buf = binary.LittleEndian.AppendUint16(buf, 1) // entry count
	buf = binary.LittleEndian.AppendUint16(buf, 0x010E)
	buf = binary.LittleEndian.AppendUint16(buf, 2) // ASCII
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(value)))
	buf = binary.LittleEndian.AppendUint32(buf, 26) // value offset
	buf = binary.LittleEndian.AppendUint32(buf, 0)  // no next IFD
	return append(buf, value...)
}

func TestFragments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "   ", nil},
		{
			name: "punctuation trimmed",
			in:   "MAC: (00:11:22:33:44:55), serial AB-12.",
			want: []string{"MAC: (00:11:22:33:44:55), serial AB-12.", "MAC", "00:11:22:33:44:55", "serial", "AB-12"},
		},
		{
			name: "punctuation-only tokens dropped",
			in:   "a -- b",
			want: []string{"a -- b", "a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Fragments(tt.in)); diff != "" {
				t.Errorf("Fragments() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlainTextPreprocessor(t *testing.T) {
	path := writeFile(t, "inventory.txt", []byte("switch-01 00:1a:2b:3c:4d:5e\nswitch-02 001A2B3C4D5F\n"))

	ptp := NewPlainTextPreprocessor()
	require.True(t, ptp.CanProcess(path))

	content, err := ptp.Process(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, content.Success)
	assert.Equal(t, 4, content.WordCount)
	assert.Equal(t, []string{"switch-01", "00:1a:2b:3c:4d:5e", "switch-02", "001A2B3C4D5F"}, content.Fragments[1:])
}

func TestPlainTextPreprocessor_ExtensionlessText(t *testing.T) {
	ptp := NewPlainTextPreprocessor()
	assert.True(t, ptp.CanProcess(writeFile(t, "NOTES", []byte("plain words only"))))
	assert.False(t, ptp.CanProcess(writeFile(t, "blob", []byte{0x00, 0x01, 0x02, 0xff})))
	assert.False(t, ptp.CanProcess("photo.png"))
}

func TestManager_ProcessFile(t *testing.T) {
	pm := NewDefaultManager(nil)

	content, err := pm.ProcessFile(context.Background(), writeFile(t, "labels.csv", []byte("port,mac\n1,aa-bb-cc-dd-ee-ff\n")))
	require.NoError(t, err)
	assert.Equal(t, "plaintext", content.ProcessorType)
	assert.Contains(t, content.Fragments, "1,aa-bb-cc-dd-ee-ff")

	_, err = pm.ProcessFile(context.Background(), writeFile(t, "clip.mp4", []byte{0x00, 0x00, 0x00, 0x18}))
	assert.ErrorIs(t, err, ErrNoPreprocessor)
}

func TestTextPreprocessor_InvalidPDF(t *testing.T) {
	tp := NewTextPreprocessor()
	path := writeFile(t, "broken.pdf", []byte("not really a pdf"))
	require.True(t, tp.CanProcess(path))

	content, err := tp.Process(context.Background(), path)
	require.Error(t, err)
	assert.False(t, content.Success)
}

func TestImageMetadataPreprocessor(t *testing.T) {
	path := writeFile(t, "label.tif", tiffWithDescription("MAC 00:11:22:33:44:55"))

	imp := NewImageMetadataPreprocessor()
	require.True(t, imp.CanProcess(path))

	content, err := imp.Process(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "MAC 00:11:22:33:44:55", content.Metadata["ImageDescription"])
	assert.Contains(t, content.Fragments, "00:11:22:33:44:55")
	assert.Contains(t, content.Text, "ImageDescription: MAC 00:11:22:33:44:55")
}

func TestImageMetadataPreprocessor_NoExif(t *testing.T) {
	path := writeFile(t, "plain.jpg", []byte{0xff, 0xd8, 0xff, 0xd9})

	_, err := NewImageMetadataPreprocessor().Process(context.Background(), path)
	assert.ErrorIs(t, err, ErrNoExif)
}

func TestTesseractPreprocessor_Defaults(t *testing.T) {
	tp := NewTesseractPreprocessor(nil)
	assert.Equal(t, []string{"eng"}, tp.languages)
	assert.True(t, tp.CanProcess("scan.PNG"))
	assert.False(t, tp.CanProcess("scan.pdf"))
}

// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-scan/internal/config"
	"vision-scan/internal/fetch"
	"vision-scan/internal/preprocessors"
	"vision-scan/internal/resilience"
	"vision-scan/internal/vision"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// fakeAnnotator answers with canned OCR text keyed by input
type fakeAnnotator struct {
	mu     sync.Mutex
	texts  map[string][]string
	errs   map[string]error
	images []*visionpb.Image
}

func (f *fakeAnnotator) Annotate(_ context.Context, img *visionpb.Image, source string, features []vision.Feature) (*vision.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, img)
	if err := f.errs[source]; err != nil {
		return nil, err
	}
	report := &vision.Report{Source: source, Features: features}
	for _, text := range f.texts[source] {
		report.Texts = append(report.Texts, vision.Entity{Description: text})
	}
	return report, nil
}

func testSettings(mode string) config.Settings {
	return config.Settings{
		Features: "text",
		Checks:   "MAC_ADDRESS",
		Workers:  2,
		MAC:      config.MACConfig{Mode: mode, Fragments: "all"},
		Vision:   config.VisionConfig{OCREngine: "vision"},
	}
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestNewScanner_RequiresAnnotatorForVisionFeatures(t *testing.T) {
	_, err := NewScanner(testSettings("all"), nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoAnnotator)
}

func TestNewScanner_RejectsUnknownFeature(t *testing.T) {
	s := testSettings("all")
	s.Features = "text,barcodes"
	_, err := NewScanner(s, &fakeAnnotator{}, nil, nil)
	assert.ErrorContains(t, err, "barcodes")
}

func TestNewScanner_RejectsUnknownMode(t *testing.T) {
	_, err := NewScanner(testSettings("middle"), &fakeAnnotator{}, nil, nil)
	assert.ErrorContains(t, err, "unknown mac mode")
}

func TestNewScanner_MACCheckAddsText(t *testing.T) {
	s := testSettings("all")
	s.Features = "labels"
	scanner, err := NewScanner(s, &fakeAnnotator{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []vision.Feature{vision.FeatureLabels, vision.FeatureText}, scanner.VisionFeatures())
}

func TestNewScanner_TesseractServesText(t *testing.T) {
	s := testSettings("all")
	s.Vision.OCREngine = "tesseract"
	scanner, err := NewScanner(s, nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, scanner.VisionFeatures())
}

func TestScanInput_LocalImageModes(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "label.png", pngBytes)
	annotator := &fakeAnnotator{texts: map[string][]string{
		path: {"MAC 00-1a-2b-3c-4d-5e LAN 001a2b3c4d5f", "MAC", "00-1a-2b-3c-4d-5e", "LAN", "001a2b3c4d5f"},
	}}

	tests := []struct {
		mode string
		want []string
	}{
		{"all", []string{"00:1A:2B:3C:4D:5E", "00:1A:2B:3C:4D:5F"}},
		{"first", []string{"00:1A:2B:3C:4D:5E"}},
		{"last", []string{"00:1A:2B:3C:4D:5F"}},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			scanner, err := NewScanner(testSettings(tt.mode), annotator, nil, nil)
			require.NoError(t, err)

			r := scanner.ScanInput(context.Background(), path)
			require.NoError(t, r.Error)
			assert.Equal(t, KindImage, r.Kind)
			assert.Equal(t, "image/png", r.ContentType)
			assert.Equal(t, "vision", r.TextSource)
			if diff := cmp.Diff(tt.want, r.MACs); diff != "" {
				t.Errorf("MACs mismatch (-want +got):\n%s", diff)
			}
		})
	}

	require.NotEmpty(t, annotator.images)
	assert.Equal(t, pngBytes, annotator.images[0].GetContent())
}

func TestScanInput_NoMACFound(t *testing.T) {
	path := writeFile(t, t.TempDir(), "blank.png", pngBytes)
	annotator := &fakeAnnotator{texts: map[string][]string{path: {"SERIAL 12345", "SERIAL", "12345"}}}
	scanner, err := NewScanner(testSettings("all"), annotator, nil, nil)
	require.NoError(t, err)

	r := scanner.ScanInput(context.Background(), path)
	require.NoError(t, r.Error)
	assert.Empty(t, r.MACs)
	assert.Len(t, r.Fragments, 3)
}

func TestScanInput_TextDocument(t *testing.T) {
	path := writeFile(t, t.TempDir(), "inventory.txt", []byte("switch-01 aa:bb:cc:dd:ee:ff\nswitch-02 (AABBCCDDEE00)\n"))
	scanner, err := NewScanner(testSettings("all"), &fakeAnnotator{}, nil, nil)
	require.NoError(t, err)

	r := scanner.ScanInput(context.Background(), path)
	require.NoError(t, r.Error)
	assert.Equal(t, KindDocument, r.Kind)
	assert.Equal(t, "plaintext", r.TextSource)
	assert.Contains(t, r.MACs, "AA:BB:CC:DD:EE:FF")
	assert.Contains(t, r.MACs, "AA:BB:CC:DD:EE:00")
}

func TestScanInput_UnsupportedDocument(t *testing.T) {
	path := writeFile(t, t.TempDir(), "clip.mp4", []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p'})
	scanner, err := NewScanner(testSettings("all"), &fakeAnnotator{}, nil, nil)
	require.NoError(t, err)

	r := scanner.ScanInput(context.Background(), path)
	assert.ErrorIs(t, r.Error, preprocessors.ErrNoPreprocessor)
}

func TestScanInput_MissingFile(t *testing.T) {
	scanner, err := NewScanner(testSettings("all"), &fakeAnnotator{}, nil, nil)
	require.NoError(t, err)

	r := scanner.ScanInput(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
	assert.True(t, r.Failed())
	assert.ErrorIs(t, r.Error, os.ErrNotExist)
}

func TestScanInput_Directory(t *testing.T) {
	scanner, err := NewScanner(testSettings("all"), &fakeAnnotator{}, nil, nil)
	require.NoError(t, err)

	r := scanner.ScanInput(context.Background(), t.TempDir())
	assert.ErrorContains(t, r.Error, "is a directory")
}

func TestScanInput_AnnotatorError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "label.png", pngBytes)
	annotator := &fakeAnnotator{errs: map[string]error{path: errors.New("text detection: quota exceeded")}}
	scanner, err := NewScanner(testSettings("all"), annotator, nil, nil)
	require.NoError(t, err)

	r := scanner.ScanInput(context.Background(), path)
	assert.ErrorContains(t, r.Error, "quota exceeded")
}

func TestScanInput_TesseractUnavailable(t *testing.T) {
	if preprocessors.TesseractAvailable {
		t.Skip("built with tesseract")
	}
	s := testSettings("all")
	s.Vision.OCREngine = "tesseract"
	scanner, err := NewScanner(s, nil, nil, nil)
	require.NoError(t, err)

	r := scanner.ScanInput(context.Background(), writeFile(t, t.TempDir(), "label.png", pngBytes))
	assert.ErrorIs(t, r.Error, preprocessors.ErrTesseractUnavailable)
}

func newTestFetcher(t *testing.T, always bool) *fetch.Fetcher {
	t.Helper()
	f := fetch.New(config.DownloadConfig{
		Always:      always,
		Dir:         t.TempDir(),
		ResolveHTML: true,
		MaxBytes:    1 << 20,
	}, config.SparkConfig{TokenEnv: "VISION_SCAN_TEST_SPARK_TOKEN"})
	f.SetRetryConfig(resilience.RetryConfig{MaxRetries: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1})
	return f
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/label.png":
			w.Header().Set("Content-Type", "image/png")
			if r.Method != http.MethodHead {
				w.Write(pngBytes)
			}
		case "/inventory.txt":
			w.Header().Set("Content-Type", "text/plain")
			if r.Method != http.MethodHead {
				w.Write([]byte("ap-7 0a:0b:0c:0d:0e:0f\n"))
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScanInput_ImageURLSentByURI(t *testing.T) {
	srv := imageServer(t)
	input := srv.URL + "/label.png"
	annotator := &fakeAnnotator{texts: map[string][]string{input: {"0A0B0C0D0E0F"}}}
	scanner, err := NewScanner(testSettings("all"), annotator, newTestFetcher(t, false), nil)
	require.NoError(t, err)

	r := scanner.ScanInput(context.Background(), input)
	require.NoError(t, r.Error)
	assert.Equal(t, []string{"0A:0B:0C:0D:0E:0F"}, r.MACs)
	require.Len(t, annotator.images, 1)
	assert.Equal(t, input, annotator.images[0].GetSource().GetImageUri())
	assert.Empty(t, annotator.images[0].GetContent())
}

func TestScanInput_ImageURLDownloaded(t *testing.T) {
	srv := imageServer(t)
	input := srv.URL + "/label.png"
	annotator := &fakeAnnotator{texts: map[string][]string{input: {"0A0B0C0D0E0F"}}}
	settings := testSettings("all")
	settings.Download.Always = true
	scanner, err := NewScanner(settings, annotator, newTestFetcher(t, true), nil)
	require.NoError(t, err)

	r := scanner.ScanInput(context.Background(), input)
	require.NoError(t, r.Error)
	assert.Equal(t, []string{"0A:0B:0C:0D:0E:0F"}, r.MACs)
	require.Len(t, annotator.images, 1)
	assert.Equal(t, pngBytes, annotator.images[0].GetContent())
	assert.Nil(t, annotator.images[0].GetSource())
}

func TestScanInput_TextURL(t *testing.T) {
	srv := imageServer(t)
	scanner, err := NewScanner(testSettings("all"), &fakeAnnotator{}, newTestFetcher(t, false), nil)
	require.NoError(t, err)

	r := scanner.ScanInput(context.Background(), srv.URL+"/inventory.txt")
	require.NoError(t, r.Error)
	assert.Equal(t, KindDocument, r.Kind)
	assert.Equal(t, []string{"0A:0B:0C:0D:0E:0F"}, r.MACs)
}

func TestScanInput_URLWithoutFetcher(t *testing.T) {
	scanner, err := NewScanner(testSettings("all"), &fakeAnnotator{}, nil, nil)
	require.NoError(t, err)

	r := scanner.ScanInput(context.Background(), "https://example.com/label.png")
	assert.ErrorContains(t, r.Error, "fetcher")
}

func TestScan_KeepsOrderAndPartialFailures(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", []byte("11:22:33:44:55:66"))
	b := filepath.Join(dir, "missing.txt")
	c := writeFile(t, dir, "c.txt", []byte("66-55-44-33-22-11"))

	scanner, err := NewScanner(testSettings("all"), &fakeAnnotator{}, nil, nil)
	require.NoError(t, err)

	results, err := scanner.Scan(context.Background(), []string{a, b, c})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, a, results[0].Input)
	assert.Contains(t, results[0].MACs, "11:22:33:44:55:66")
	assert.True(t, results[1].Failed())
	assert.Contains(t, results[2].MACs, "66:55:44:33:22:11")
}

func TestScan_AllFailed(t *testing.T) {
	dir := t.TempDir()
	scanner, err := NewScanner(testSettings("all"), &fakeAnnotator{}, nil, nil)
	require.NoError(t, err)

	results, err := scanner.Scan(context.Background(), []string{
		filepath.Join(dir, "one.png"),
		filepath.Join(dir, "two.png"),
	})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "all 2 inputs failed"))
	assert.Len(t, results, 2)
}

func TestScan_Empty(t *testing.T) {
	scanner, err := NewScanner(testSettings("all"), &fakeAnnotator{}, nil, nil)
	require.NoError(t, err)

	results, err := scanner.Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

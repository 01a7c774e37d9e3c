// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"vision-scan/internal/config"
	"vision-scan/internal/detector"
	"vision-scan/internal/fetch"
	"vision-scan/internal/observability"
	"vision-scan/internal/parallel"
	"vision-scan/internal/paths"
	"vision-scan/internal/preprocessors"
	"vision-scan/internal/validators/macaddress"
	"vision-scan/internal/vision"
)

// ErrNoAnnotator is returned when vision features are requested without a client.
var ErrNoAnnotator = errors.New("vision features requested but no annotator configured")

// Input kinds
const (
	KindImage    = "image"
	KindDocument = "document"
)

// Annotator runs vision features against an image.
type Annotator interface {
	Annotate(ctx context.Context, img *visionpb.Image, source string, features []vision.Feature) (*vision.Report, error)
}

// Fetcher retrieves remote inputs.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Download, error)
	Probe(ctx context.Context, rawURL string) (string, error)
	Cleanup(d *fetch.Download) error
	IsSpark(rawURL string) bool
	AlwaysDownload() bool
}

// InputResult holds everything found for one input.
type InputResult struct {
	Input       string
	Kind        string
	ContentType string
	// Location is what was analysed: the input, a downloaded copy, or the
	// image an HTML page linked to.
	Location   string
	TextSource string // vision, tesseract, pdf, plaintext
	Report     *vision.Report
	Metadata   map[string]string
	Fragments  []string
	Matches    []detector.Match
	MACs       []string
	Warnings   []string
	Error      error
	Duration   time.Duration
}

// Failed reports whether the input could not be scanned.
func (r *InputResult) Failed() bool {
	return r != nil && r.Error != nil
}

// Scanner runs inputs through download, annotation, text extraction and
// MAC address extraction.
type Scanner struct {
	settings       config.Settings
	visionFeatures []vision.Feature
	useTesseract   bool
	annotator      Annotator
	fetcher        Fetcher
	preprocessors  *preprocessors.PreprocessorManager
	exif           *preprocessors.ImageMetadataPreprocessor
	ocr            *preprocessors.TesseractPreprocessor
	validator      *macaddress.Validator
	observer       *observability.StandardObserver
}

// NewScanner builds a scanner for the merged settings. annotator may be nil
// when no vision feature is needed; fetcher may be nil for local inputs only.
func NewScanner(settings config.Settings, annotator Annotator, fetcher Fetcher, observer *observability.StandardObserver) (*Scanner, error) {
	selection, err := macaddress.ParseFragmentSelection(settings.MAC.Fragments)
	if err != nil {
		return nil, err
	}
	mode, err := macaddress.ParseMode(settings.MAC.Mode)
	if err != nil {
		return nil, err
	}

	visionFeatures, useTesseract, err := planFeatures(settings)
	if err != nil {
		return nil, err
	}

	s := &Scanner{
		settings:       settings,
		visionFeatures: visionFeatures,
		useTesseract:   useTesseract,
		annotator:      annotator,
		fetcher:        fetcher,
		preprocessors:  preprocessors.NewDefaultManager(observer),
		exif:           preprocessors.NewImageMetadataPreprocessor(),
		validator: macaddress.NewValidator(macaddress.Options{
			StrictDelimiter: settings.MAC.StrictDelimiter,
			ZeroPad:         settings.MAC.ZeroPad,
		}),
		observer: observer,
	}
	s.exif.SetObserver(observer)
	s.validator.SetFragmentSelection(selection)
	s.validator.SetMode(mode)
	s.validator.SetObserver(observer)
	if useTesseract {
		s.ocr = preprocessors.NewTesseractPreprocessor(settings.Vision.TesseractLanguages)
		s.ocr.SetObserver(observer)
	}

	if len(s.visionFeatures) > 0 && annotator == nil {
		return nil, ErrNoAnnotator
	}
	return s, nil
}

// planFeatures splits the requested features between the vision service
// and the local OCR engine. The text feature is served by the configured
// engine and is implied by the MAC_ADDRESS check.
func planFeatures(settings config.Settings) ([]vision.Feature, bool, error) {
	features, err := vision.ParseFeatures(settings.Features)
	if err != nil {
		return nil, false, err
	}

	wantText := settings.MACEnabled()
	var visionFeatures []vision.Feature
	for _, f := range features {
		if f == vision.FeatureText {
			wantText = true
		} else {
			visionFeatures = append(visionFeatures, f)
		}
	}
	if !wantText {
		return visionFeatures, false, nil
	}
	if strings.EqualFold(settings.Vision.OCREngine, "tesseract") {
		return visionFeatures, true, nil
	}
	return vision.WithFeature(visionFeatures, vision.FeatureText), false, nil
}

// VisionFeatures returns the features sent to the vision service.
func (s *Scanner) VisionFeatures() []vision.Feature {
	return s.visionFeatures
}

// Scan processes inputs on the worker pool. Results keep input order. An
// error is returned only when every input failed.
func (s *Scanner) Scan(ctx context.Context, inputs []string) ([]*InputResult, error) {
	pool := parallel.NewWorkerPool[*InputResult](s.settings.Workers, s.observer)

	jobs := make([]parallel.Job[*InputResult], len(inputs))
	for i, input := range inputs {
		input := input
		jobs[i] = parallel.Job[*InputResult]{
			JobID: fmt.Sprintf("input_%d", i),
			Input: input,
			Run: func(ctx context.Context) (*InputResult, error) {
				r := s.ScanInput(ctx, input)
				return r, r.Error
			},
		}
	}

	poolResults, _ := pool.Run(ctx, jobs)

	results := make([]*InputResult, len(inputs))
	var firstErr error
	failed := 0
	for i, pr := range poolResults {
		r := pr.Value
		if r == nil {
			r = &InputResult{Input: inputs[i], Error: pr.Error, Duration: pr.Duration}
		}
		if r.Failed() {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", r.Input, r.Error)
			}
		}
		results[i] = r
	}

	if len(inputs) > 0 && failed == len(inputs) {
		if failed == 1 {
			return results, firstErr
		}
		return results, fmt.Errorf("all %d inputs failed, first: %w", failed, firstErr)
	}
	return results, nil
}

// ScanInput handles a single local path or URL. Failures are recorded on
// the result.
func (s *Scanner) ScanInput(ctx context.Context, input string) *InputResult {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	var finishStep func(bool, string)
	if s.observer != nil {
		finishTiming = s.observer.StartTiming("scanner", "scan_input", input)
		if s.observer.DebugObserver != nil {
			finishStep = s.observer.DebugObserver.StartStep("scanner", "scan_input", input)
		}
	}

	r := &InputResult{Input: input, Location: input}
	r.Error = s.scan(ctx, r)
	r.Duration = time.Since(start)

	if finishTiming != nil {
		meta := map[string]interface{}{
			"kind":        r.Kind,
			"match_count": len(r.Matches),
			"fragments":   len(r.Fragments),
		}
		if r.Error != nil {
			meta["error"] = r.Error.Error()
		}
		finishTiming(r.Error == nil, meta)
	}
	if finishStep != nil {
		finishStep(r.Error == nil, fmt.Sprintf("%d MAC addresses", len(r.MACs)))
	}
	return r
}

func (s *Scanner) scan(ctx context.Context, r *InputResult) error {
	if fetch.IsURL(r.Input) {
		return s.scanURL(ctx, r)
	}

	path, err := paths.ResolvePath(r.Input)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read input: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", r.Input)
	}

	r.Location = path
	r.ContentType = detectContentType(path)
	return s.scanLocal(ctx, r, path)
}

func (s *Scanner) scanURL(ctx context.Context, r *InputResult) error {
	if s.fetcher == nil {
		return errors.New("URL inputs need a fetcher")
	}

	download := s.fetcher.AlwaysDownload() || s.fetcher.IsSpark(r.Input) || s.useTesseract
	if !download {
		contentType, err := s.fetcher.Probe(ctx, r.Input)
		switch {
		case err != nil:
			s.observer.Detail("scanner", fmt.Sprintf("probe of %s failed, downloading: %v", r.Input, err))
			download = true
		case fetch.IsImageType(contentType):
			// The vision service fetches the image itself
			r.Kind = KindImage
			r.ContentType = contentType
			return s.scanImage(ctx, r, vision.ImageFromURI(r.Input), "")
		default:
			download = true
		}
	}

	d, err := s.fetcher.Fetch(ctx, r.Input)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.fetcher.Cleanup(d); err != nil {
			r.Warnings = append(r.Warnings, err.Error())
		}
	}()

	r.ContentType = d.ContentType
	r.Location = d.URL
	if d.ResolvedFrom != "" {
		r.Warnings = append(r.Warnings, fmt.Sprintf("analysed image %s linked from the page", d.URL))
	}
	return s.scanLocal(ctx, r, d.Path)
}

func (s *Scanner) scanLocal(ctx context.Context, r *InputResult, path string) error {
	if !fetch.IsImageType(r.ContentType) {
		r.Kind = KindDocument
		return s.scanDocument(ctx, r, path)
	}

	r.Kind = KindImage
	var img *visionpb.Image
	if len(s.visionFeatures) > 0 {
		var err error
		img, err = vision.ImageFromFile(path)
		if err != nil {
			return err
		}
	}
	return s.scanImage(ctx, r, img, path)
}

// scanImage annotates img and runs OCR. localPath is empty when the image
// is only reachable by URI.
func (s *Scanner) scanImage(ctx context.Context, r *InputResult, img *visionpb.Image, localPath string) error {
	var fragments []string

	if len(s.visionFeatures) > 0 {
		report, err := s.annotator.Annotate(ctx, img, r.Input, s.visionFeatures)
		r.Report = report
		if err != nil {
			return err
		}
		for f, msg := range report.Errors {
			r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %s", f, msg))
		}
		if !s.useTesseract {
			fragments = report.TextFragments()
			r.TextSource = "vision"
		}
	}

	if s.useTesseract && localPath != "" {
		content, err := s.ocr.Process(ctx, localPath)
		if err != nil {
			return err
		}
		fragments = content.Fragments
		r.TextSource = "tesseract"
	}

	if localPath != "" && s.exif.CanProcess(localPath) {
		content, err := s.exif.Process(ctx, localPath)
		switch {
		case err == nil:
			r.Metadata = content.Metadata
			fragments = append(fragments, content.Fragments...)
		case !errors.Is(err, preprocessors.ErrNoExif):
			r.Warnings = append(r.Warnings, fmt.Sprintf("metadata: %v", err))
		}
	}

	return s.extract(r, fragments)
}

func (s *Scanner) scanDocument(ctx context.Context, r *InputResult, path string) error {
	content, err := s.preprocessors.ProcessFile(ctx, path)
	if err != nil {
		return err
	}
	r.TextSource = content.ProcessorType
	return s.extract(r, content.Fragments)
}

// extract runs the MAC validator, which applies mac.mode
func (s *Scanner) extract(r *InputResult, fragments []string) error {
	r.Fragments = fragments
	if !s.settings.MACEnabled() {
		return nil
	}

	matches, err := s.validator.ValidateFragments(fragments, r.Input)
	if err != nil {
		return err
	}
	r.Matches = matches
	r.MACs = detector.Texts(matches)
	return nil
}

// detectContentType uses the extension, then the file's first bytes
func detectContentType(path string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			return mt
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	if n == 0 {
		return ""
	}
	mt, _, err := mime.ParseMediaType(http.DetectContentType(head[:n]))
	if err != nil {
		return ""
	}
	return mt
}

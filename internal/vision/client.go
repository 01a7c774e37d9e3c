// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package vision runs image annotation against the Cloud Vision API and
// converts the responses into plain report values.
package vision

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"vision-scan/internal/config"
	"vision-scan/internal/observability"
	"vision-scan/internal/resilience"
)

// ImageAnnotator is the subset of *vision.ImageAnnotatorClient the
// annotator uses. Tests substitute a fake.
type ImageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

var _ ImageAnnotator = (*vision.ImageAnnotatorClient)(nil)

var featureTypes = map[Feature]visionpb.Feature_Type{
	FeatureFaces:      visionpb.Feature_FACE_DETECTION,
	FeatureLabels:     visionpb.Feature_LABEL_DETECTION,
	FeatureLandmarks:  visionpb.Feature_LANDMARK_DETECTION,
	FeatureLogos:      visionpb.Feature_LOGO_DETECTION,
	FeatureText:       visionpb.Feature_TEXT_DETECTION,
	FeatureSafeSearch: visionpb.Feature_SAFE_SEARCH_DETECTION,
	FeatureProperties: visionpb.Feature_IMAGE_PROPERTIES,
	FeatureWeb:        visionpb.Feature_WEB_DETECTION,
	FeatureCropHints:  visionpb.Feature_CROP_HINTS,
	FeatureDocument:   visionpb.Feature_DOCUMENT_TEXT_DETECTION,
}

// NewClient creates the Cloud Vision client. Without explicit credentials
// the client uses Application Default Credentials.
func NewClient(ctx context.Context, cfg config.VisionConfig) (*vision.ImageAnnotatorClient, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return client, nil
}

// ImageFromFile loads a local image into a request image.
func ImageFromFile(path string) (*visionpb.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return &visionpb.Image{Content: data}, nil
}

// ImageFromURI builds a request image the service fetches itself.
func ImageFromURI(uri string) *visionpb.Image {
	return &visionpb.Image{Source: &visionpb.ImageSource{ImageUri: uri}}
}

// Annotator runs the requested features for an image in a single
// BatchAnnotateImages call. Calls share a circuit breaker and are retried
// with backoff.
type Annotator struct {
	client     ImageAnnotator
	maxResults int
	timeout    time.Duration
	retry      resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
	tracer     trace.Tracer
	observer   *observability.StandardObserver
	dump       io.Writer
}

// NewAnnotator wraps client with the configured limits.
func NewAnnotator(client ImageAnnotator, cfg config.VisionConfig) *Annotator {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	a := &Annotator{
		client:     client,
		maxResults: maxResults,
		timeout:    timeout,
		retry:      resilience.VisionRetryConfig(),
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("vision")),
		tracer:     otel.Tracer("vision-scan/internal/vision"),
	}
	if cfg.DumpResponses {
		a.dump = os.Stderr
	}
	return a
}

// SetObserver sets the observability component
func (a *Annotator) SetObserver(observer *observability.StandardObserver) {
	a.observer = observer
}

// SetRetryConfig overrides the retry policy.
func (a *Annotator) SetRetryConfig(rc resilience.RetryConfig) {
	a.retry = rc
}

// SetDumpWriter enables raw response dumps as protojson. A nil writer
// disables them.
func (a *Annotator) SetDumpWriter(w io.Writer) {
	a.dump = w
}

// Close releases the underlying client.
func (a *Annotator) Close() error {
	return a.client.Close()
}

// Annotate runs features against img. When the service reports an error,
// the features that came back empty are recorded in Report.Errors; an
// error is returned only when every feature failed or the context ended.
func (a *Annotator) Annotate(ctx context.Context, img *visionpb.Image, source string, features []Feature) (*Report, error) {
	report := &Report{Source: source, Features: features}
	if len(features) == 0 {
		return report, nil
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	req, err := a.buildRequest(img, features)
	if err != nil {
		return report, err
	}

	var finishTiming func(bool, map[string]interface{})
	var finishStep func(bool, string)
	if a.observer != nil {
		finishTiming = a.observer.StartTiming("vision", "annotate", source)
		if a.observer.DebugObserver != nil {
			finishStep = a.observer.DebugObserver.StartStep("vision", "annotate", source)
		}
	}

	resp, err := a.call(ctx, req, source, features)
	failed := len(features)
	if err == nil {
		dumpMessages(a.dump, "response", resp)
		failed = a.apply(resp, features, report)
	} else {
		report.Errors = make(map[Feature]string, len(features))
		for _, f := range features {
			report.Errors[f] = err.Error()
		}
	}

	success := failed < len(features)
	if finishTiming != nil {
		finishTiming(success, map[string]interface{}{
			"features":       len(features),
			"failed":         failed,
			"text_fragments": len(report.TextFragments()),
		})
	}
	if finishStep != nil {
		finishStep(success, fmt.Sprintf("%d features, %d failed", len(features), failed))
	}

	if !success {
		if err == nil {
			err = status.ErrorProto(resp.GetError())
		}
		return report, fmt.Errorf("%s detection: %w", joinFeatures(features), err)
	}
	return report, nil
}

func (a *Annotator) buildRequest(img *visionpb.Image, features []Feature) (*visionpb.BatchAnnotateImagesRequest, error) {
	req := &visionpb.AnnotateImageRequest{Image: img}
	for _, f := range features {
		t, ok := featureTypes[f]
		if !ok {
			return nil, resilience.NewPermanentError(fmt.Sprintf("unsupported feature %q", f), nil)
		}
		req.Features = append(req.Features, &visionpb.Feature{Type: t, MaxResults: int32(a.maxResults)})
	}
	return &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{req}}, nil
}

// call sends the request. A response whose error left every feature empty
// is returned as that error so it is classified for retry like an RPC
// failure.
func (a *Annotator) call(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, source string, features []Feature) (*visionpb.AnnotateImageResponse, error) {
	ctx, span := a.tracer.Start(ctx, "vision.annotate", trace.WithAttributes(
		attribute.String("vision.features", joinFeatures(features)),
		attribute.String("vision.source", source),
	))
	defer span.End()

	var resp *visionpb.AnnotateImageResponse
	err := resilience.RetryWithCircuitBreaker(ctx, a.retry, a.breaker, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		batch, err := a.client.BatchAnnotateImages(ctx, req, a.callOptions()...)
		if err != nil {
			return err
		}
		if len(batch.GetResponses()) == 0 {
			return resilience.NewPermanentError("vision returned no responses", nil)
		}
		r := batch.GetResponses()[0]
		if r.GetError() != nil && !anyPopulated(r, features) {
			return status.ErrorProto(r.GetError())
		}
		resp = r
		return nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	return resp, err
}

func (a *Annotator) callOptions() []gax.CallOption {
	return []gax.CallOption{
		gax.WithRetry(func() gax.Retryer {
			return gax.OnCodes([]codes.Code{codes.Unavailable}, gax.Backoff{
				Initial:    100 * time.Millisecond,
				Max:        2 * time.Second,
				Multiplier: 1.3,
			})
		}),
	}
}

// apply converts resp into report and returns how many features failed.
func (a *Annotator) apply(resp *visionpb.AnnotateImageResponse, features []Feature, report *Report) int {
	failed := 0
	for _, f := range features {
		if resp.GetError() != nil && !populated(resp, f) {
			if report.Errors == nil {
				report.Errors = make(map[Feature]string)
			}
			report.Errors[f] = status.ErrorProto(resp.GetError()).Error()
			failed++
			continue
		}

		switch f {
		case FeatureFaces:
			report.Faces = convertFaces(resp.GetFaceAnnotations())
		case FeatureLabels:
			report.Labels = convertEntities(resp.GetLabelAnnotations())
		case FeatureLandmarks:
			report.Landmarks = convertEntities(resp.GetLandmarkAnnotations())
		case FeatureLogos:
			report.Logos = convertEntities(resp.GetLogoAnnotations())
		case FeatureText:
			report.Texts = convertEntities(resp.GetTextAnnotations())
		case FeatureSafeSearch:
			report.SafeSearch = convertSafeSearch(resp.GetSafeSearchAnnotation())
		case FeatureProperties:
			report.Colors = convertProperties(resp.GetImagePropertiesAnnotation())
		case FeatureWeb:
			report.Web = convertWeb(resp.GetWebDetection())
		case FeatureCropHints:
			report.CropHints = convertCropHints(resp.GetCropHintsAnnotation())
		case FeatureDocument:
			report.Document = convertDocument(resp.GetFullTextAnnotation())
		}
	}
	return failed
}

// populated reports whether resp carries an annotation for f.
func populated(resp *visionpb.AnnotateImageResponse, f Feature) bool {
	switch f {
	case FeatureFaces:
		return len(resp.GetFaceAnnotations()) > 0
	case FeatureLabels:
		return len(resp.GetLabelAnnotations()) > 0
	case FeatureLandmarks:
		return len(resp.GetLandmarkAnnotations()) > 0
	case FeatureLogos:
		return len(resp.GetLogoAnnotations()) > 0
	case FeatureText:
		return len(resp.GetTextAnnotations()) > 0
	case FeatureSafeSearch:
		return resp.GetSafeSearchAnnotation() != nil
	case FeatureProperties:
		return resp.GetImagePropertiesAnnotation() != nil
	case FeatureWeb:
		return resp.GetWebDetection() != nil
	case FeatureCropHints:
		return resp.GetCropHintsAnnotation() != nil
	case FeatureDocument:
		return resp.GetFullTextAnnotation() != nil
	}
	return false
}

func anyPopulated(resp *visionpb.AnnotateImageResponse, features []Feature) bool {
	for _, f := range features {
		if populated(resp, f) {
			return true
		}
	}
	return false
}

func joinFeatures(features []Feature) string {
	names := make([]string, len(features))
	for i, f := range features {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}

func dumpMessages[M proto.Message](w io.Writer, label string, msgs ...M) {
	if w == nil {
		return
	}
	marshal := protojson.MarshalOptions{Multiline: true}
	for i, m := range msgs {
		data, err := marshal.Marshal(m)
		if err != nil {
			fmt.Fprintf(w, "--- %s[%d]: %v\n", label, i, err)
			continue
		}
		fmt.Fprintf(w, "--- %s[%d]\n%s\n", label, i, data)
	}
}

// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/google/go-cmp/cmp"
	gax "github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/genproto/googleapis/type/latlng"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"vision-scan/internal/config"
	"vision-scan/internal/resilience"
)

type fakeAnnotator struct {
	resp     *visionpb.AnnotateImageResponse
	errs     []error // consumed one per call
	requests []*visionpb.BatchAnnotateImagesRequest
	closed   bool
}

func newFake() *fakeAnnotator {
	return &fakeAnnotator{resp: &visionpb.AnnotateImageResponse{}}
}

func (f *fakeAnnotator) BatchAnnotateImages(_ context.Context, req *visionpb.BatchAnnotateImagesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.requests = append(f.requests, req)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{f.resp}}, nil
}

func (f *fakeAnnotator) Close() error {
	f.closed = true
	return nil
}

func poly(xy ...int32) *visionpb.BoundingPoly {
	p := &visionpb.BoundingPoly{}
	for i := 0; i+1 < len(xy); i += 2 {
		p.Vertices = append(p.Vertices, &visionpb.Vertex{X: xy[i], Y: xy[i+1]})
	}
	return p
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1}
}

func newTestAnnotator(fake *fakeAnnotator) *Annotator {
	a := NewAnnotator(fake, config.VisionConfig{MaxResults: 5})
	a.SetRetryConfig(fastRetry())
	return a
}

func TestAnnotate_TextFragments(t *testing.T) {
	fake := newFake()
	fake.resp.TextAnnotations = []*visionpb.EntityAnnotation{
		{Description: "MAC aa:bb:cc:dd:ee:ff", BoundingPoly: poly(0, 0, 10, 0, 10, 5, 0, 5)},
		{Description: "MAC"},
		{Description: "aa:bb:cc:dd:ee:ff"},
	}

	report, err := newTestAnnotator(fake).Annotate(context.Background(), ImageFromURI("https://example.com/a.png"), "a.png", []Feature{FeatureText})
	require.NoError(t, err)

	want := []string{"MAC aa:bb:cc:dd:ee:ff", "MAC", "aa:bb:cc:dd:ee:ff"}
	if diff := cmp.Diff(want, report.TextFragments()); diff != "" {
		t.Errorf("TextFragments() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "(0,0),(10,0),(10,5),(0,5)", FormatBounds(report.Texts[0].Bounds))
}

func TestAnnotate_BuildsOneRequest(t *testing.T) {
	fake := newFake()
	img := ImageFromURI("https://example.com/a.png")

	_, err := newTestAnnotator(fake).Annotate(context.Background(), img, "a.png", []Feature{FeatureLabels, FeatureText, FeatureDocument})
	require.NoError(t, err)

	require.Len(t, fake.requests, 1)
	require.Len(t, fake.requests[0].GetRequests(), 1)
	req := fake.requests[0].GetRequests()[0]
	assert.Equal(t, "https://example.com/a.png", req.GetImage().GetSource().GetImageUri())

	var types []visionpb.Feature_Type
	for _, f := range req.GetFeatures() {
		types = append(types, f.GetType())
		assert.Equal(t, int32(5), f.GetMaxResults())
	}
	assert.Equal(t, []visionpb.Feature_Type{
		visionpb.Feature_LABEL_DETECTION,
		visionpb.Feature_TEXT_DETECTION,
		visionpb.Feature_DOCUMENT_TEXT_DETECTION,
	}, types)
}

func TestAnnotate_NoFeatures(t *testing.T) {
	fake := newFake()
	report, err := newTestAnnotator(fake).Annotate(context.Background(), ImageFromURI("x"), "x", nil)
	require.NoError(t, err)
	assert.Empty(t, fake.requests)
	assert.Empty(t, report.TextFragments())
}

func TestAnnotate_ConvertsEveryFeature(t *testing.T) {
	fake := newFake()
	fake.resp = &visionpb.AnnotateImageResponse{
		FaceAnnotations: []*visionpb.FaceAnnotation{{
			AngerLikelihood:     visionpb.Likelihood_VERY_UNLIKELY,
			JoyLikelihood:       visionpb.Likelihood_VERY_LIKELY,
			SurpriseLikelihood:  visionpb.Likelihood_POSSIBLE,
			DetectionConfidence: 0.9,
			BoundingPoly:        poly(1, 2, 3, 4),
		}},
		LabelAnnotations: []*visionpb.EntityAnnotation{{Description: "router", Score: 0.8}},
		LandmarkAnnotations: []*visionpb.EntityAnnotation{{
			Description: "Sydney Opera House",
			Locations:   []*visionpb.LocationInfo{{LatLng: &latlng.LatLng{Latitude: -33.85, Longitude: 151.21}}},
		}},
		SafeSearchAnnotation: &visionpb.SafeSearchAnnotation{Adult: visionpb.Likelihood_UNLIKELY, Racy: visionpb.Likelihood_LIKELY},
		WebDetection: &visionpb.WebDetection{
			PagesWithMatchingImages: []*visionpb.WebDetection_WebPage{{Url: "https://example.com/page"}},
			FullMatchingImages:      []*visionpb.WebDetection_WebImage{{Url: "https://example.com/full.jpg"}},
			WebEntities:             []*visionpb.WebDetection_WebEntity{{EntityId: "/m/1", Description: "Opera", Score: 0.7}},
		},
		CropHintsAnnotation: &visionpb.CropHintsAnnotation{CropHints: []*visionpb.CropHint{{BoundingPoly: poly(0, 0, 5, 5), Confidence: 0.5}}},
		FullTextAnnotation: &visionpb.TextAnnotation{
			Text: "AA:BB:CC:DD:EE:FF\n",
			Pages: []*visionpb.Page{{Blocks: []*visionpb.Block{{
				BoundingBox: poly(0, 0, 100, 20),
				Paragraphs: []*visionpb.Paragraph{{Words: []*visionpb.Word{
					{Symbols: []*visionpb.Symbol{{Text: "AA"}, {Text: ":"}, {Text: "BB"}}},
					{Symbols: []*visionpb.Symbol{{Text: "end"}}},
				}}},
			}}}},
		},
	}

	features := []Feature{FeatureFaces, FeatureLabels, FeatureLandmarks, FeatureSafeSearch, FeatureWeb, FeatureCropHints, FeatureDocument}
	report, err := newTestAnnotator(fake).Annotate(context.Background(), ImageFromURI("x"), "x", features)
	require.NoError(t, err)
	assert.Empty(t, report.Errors)

	require.Len(t, report.Faces, 1)
	assert.Equal(t, "VERY_LIKELY", report.Faces[0].Joy)
	assert.Equal(t, "VERY_UNLIKELY", report.Faces[0].Anger)
	assert.Equal(t, "POSSIBLE", report.Faces[0].Surprise)
	assert.Equal(t, []Vertex{{1, 2}, {3, 4}}, report.Faces[0].Bounds)

	assert.Equal(t, "router", report.Labels[0].Description)
	assert.Equal(t, []LatLng{{Latitude: -33.85, Longitude: 151.21}}, report.Landmarks[0].Locations)
	assert.Equal(t, "LIKELY", report.SafeSearch.Racy)

	assert.Equal(t, "https://example.com/page", report.Web.PagesWithMatchingImages[0].URL)
	assert.Equal(t, "https://example.com/full.jpg", report.Web.FullMatchingImages[0].URL)
	assert.Equal(t, "Opera", report.Web.Entities[0].Description)
	assert.Len(t, report.CropHints, 1)

	require.Len(t, report.Document.Blocks, 1)
	assert.Equal(t, "AA:BB end", report.Document.Blocks[0].Text)
	assert.Equal(t, []string{"AA:BB:CC:DD:EE:FF\n", "AA:BB", "end"}, report.TextFragments())
}

func TestAnnotate_RetriesUnavailable(t *testing.T) {
	fake := newFake()
	fake.errs = []error{status.Error(codes.Unavailable, "try again")}
	fake.resp.LabelAnnotations = []*visionpb.EntityAnnotation{{Description: "cat"}}

	report, err := newTestAnnotator(fake).Annotate(context.Background(), ImageFromURI("x"), "x", []Feature{FeatureLabels})
	require.NoError(t, err)
	assert.Len(t, fake.requests, 2)
	assert.Equal(t, "cat", report.Labels[0].Description)
}

func TestAnnotate_PartialResponseError(t *testing.T) {
	fake := newFake()
	fake.resp.Error = &rpcstatus.Status{Code: int32(codes.PermissionDenied), Message: "web detection disabled"}
	fake.resp.TextAnnotations = []*visionpb.EntityAnnotation{{Description: "hello"}}

	report, err := newTestAnnotator(fake).Annotate(context.Background(), ImageFromURI("x"), "x", []Feature{FeatureWeb, FeatureText})
	require.NoError(t, err, "text still came back")
	assert.Len(t, fake.requests, 1)
	assert.Contains(t, report.Errors[FeatureWeb], "web detection disabled")
	assert.NotContains(t, report.Errors, FeatureText)
	assert.Equal(t, []string{"hello"}, report.TextFragments())
}

func TestAnnotate_PermanentErrorNotRetried(t *testing.T) {
	fake := newFake()
	fake.errs = []error{status.Error(codes.PermissionDenied, "no")}

	report, err := newTestAnnotator(fake).Annotate(context.Background(), ImageFromURI("x"), "x", []Feature{FeatureWeb, FeatureText})
	require.Error(t, err)
	assert.Len(t, fake.requests, 1)
	assert.Equal(t, codes.PermissionDenied, status.Code(errors.Unwrap(err)))
	assert.Contains(t, report.Errors, FeatureWeb)
	assert.Contains(t, report.Errors, FeatureText)
}

func TestAnnotate_AllFeaturesFailed(t *testing.T) {
	fake := newFake()
	fake.resp.Error = &rpcstatus.Status{Code: int32(codes.InvalidArgument), Message: "bad image"}

	report, err := newTestAnnotator(fake).Annotate(context.Background(), ImageFromURI("x"), "x", []Feature{FeatureText})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text detection")
	assert.Equal(t, codes.InvalidArgument, status.Code(errors.Unwrap(err)))
	assert.Contains(t, report.Errors[FeatureText], "bad image")
	assert.Len(t, fake.requests, 1)
}

func TestAnnotate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := newFake()
	_, err := newTestAnnotator(fake).Annotate(ctx, ImageFromURI("x"), "x", []Feature{FeatureText})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.requests)
}

func TestAnnotate_DumpsResponses(t *testing.T) {
	fake := newFake()
	fake.resp.TextAnnotations = []*visionpb.EntityAnnotation{{Description: "hello"}}

	var buf bytes.Buffer
	a := newTestAnnotator(fake)
	a.SetDumpWriter(&buf)

	_, err := a.Annotate(context.Background(), ImageFromURI("x"), "x", []Feature{FeatureText})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "--- response[0]")
	assert.Contains(t, buf.String(), `"description"`)
}

func TestAnnotator_Close(t *testing.T) {
	fake := newFake()
	require.NoError(t, newTestAnnotator(fake).Close())
	assert.True(t, fake.closed)
}

func TestImageFromFile(t *testing.T) {
	_, err := ImageFromFile("/nonexistent/image.png")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "label.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG data"), 0o600))
	img, err := ImageFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG data"), img.GetContent())
	assert.Nil(t, img.GetSource())
}

func TestImageFromURI(t *testing.T) {
	img := ImageFromURI("https://example.com/a.png")
	assert.Equal(t, "https://example.com/a.png", img.GetSource().GetImageUri())
	assert.Empty(t, img.GetContent())
}

// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"os"

	"vision-scan/internal/config"
	"vision-scan/internal/fetch"
	"vision-scan/internal/observability"
	"vision-scan/internal/vision"
)

// Pipeline is a scanner together with the clients it owns.
type Pipeline struct {
	Scanner   *Scanner
	annotator *vision.Annotator
}

// NewPipeline wires the downloader, the vision client and the scanner for
// settings. The vision client is only created when some feature needs the
// service, so tesseract-only runs work without credentials.
func NewPipeline(ctx context.Context, settings config.Settings, observer *observability.StandardObserver) (*Pipeline, error) {
	if err := config.ValidateSettings(settings); err != nil {
		return nil, err
	}

	features, _, err := planFeatures(settings)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.New(settings.Download, settings.Spark)
	fetcher.SetObserver(observer)

	p := &Pipeline{}
	var annotator Annotator
	if len(features) > 0 {
		client, err := vision.NewClient(ctx, settings.Vision)
		if err != nil {
			return nil, err
		}
		p.annotator = vision.NewAnnotator(client, settings.Vision)
		p.annotator.SetObserver(observer)
		if settings.Debug {
			p.annotator.SetDumpWriter(os.Stderr)
		}
		annotator = p.annotator
	}

	p.Scanner, err = NewScanner(settings, annotator, fetcher, observer)
	if err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the vision client, if one was created.
func (p *Pipeline) Close() error {
	if p.annotator == nil {
		return nil
	}
	return p.annotator.Close()
}

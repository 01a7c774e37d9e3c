// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package fetch downloads images from the web and from Spark content URLs.
package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mvdan/xurls"
	"golang.org/x/oauth2"

	"vision-scan/internal/config"
	"vision-scan/internal/observability"
	"vision-scan/internal/paths"
	"vision-scan/internal/resilience"
	"vision-scan/internal/version"
)

var (
	// ErrMissingToken is returned for Spark content when no token is set.
	ErrMissingToken = errors.New("spark token not set")
	// ErrNotImage is returned when content that must be an image is not one.
	ErrNotImage = errors.New("content is not an image")
	// ErrTooLarge is returned when a body exceeds download.max_bytes.
	ErrTooLarge = errors.New("download exceeds size limit")
)

// sniffLen is how much of the body http.DetectContentType looks at.
const sniffLen = 512

// preferred extensions where mime.ExtensionsByType returns several
var preferredExt = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/tiff":      ".tiff",
	"image/bmp":       ".bmp",
	"text/html":       ".html",
	"text/plain":      ".txt",
	"application/pdf": ".pdf",
}

// Download is a file fetched into a transient directory.
type Download struct {
	URL          string // URL the content was fetched from
	Path         string // local file
	ContentType  string // media type without parameters
	Size         int64
	Spark        bool
	ResolvedFrom string // page URL when the image was found through HTML

	dir string
}

// IsImage reports whether the download holds an image.
func (d *Download) IsImage() bool {
	return d != nil && IsImageType(d.ContentType)
}

// Fetcher downloads content over HTTP.
type Fetcher struct {
	download config.DownloadConfig
	spark    config.SparkConfig
	client   *http.Client
	retry    resilience.RetryConfig
	observer *observability.StandardObserver
}

// New creates a fetcher for the download and Spark settings.
func New(download config.DownloadConfig, spark config.SparkConfig) *Fetcher {
	timeout := time.Duration(download.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if spark.ContentPrefix == "" {
		spark.ContentPrefix = config.DefaultSparkContentPrefix
	}
	return &Fetcher{
		download: download,
		spark:    spark,
		client:   &http.Client{Timeout: timeout},
		retry:    resilience.DownloadRetryConfig(),
	}
}

// SetObserver sets the observability component
func (f *Fetcher) SetObserver(observer *observability.StandardObserver) {
	f.observer = observer
}

// SetHTTPClient replaces the HTTP client.
func (f *Fetcher) SetHTTPClient(client *http.Client) {
	f.client = client
}

// SetRetryConfig overrides the retry policy.
func (f *Fetcher) SetRetryConfig(rc resilience.RetryConfig) {
	f.retry = rc
}

// AlwaysDownload reports whether images are downloaded instead of being
// handed to the vision service by URL.
func (f *Fetcher) AlwaysDownload() bool {
	return f.download.Always
}

// IsSpark reports whether rawURL is Spark content.
func (f *Fetcher) IsSpark(rawURL string) bool {
	return strings.HasPrefix(rawURL, f.spark.ContentPrefix)
}

// IsURL reports whether s is an http or https URL rather than a local path.
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || xurls.Strict.FindString(s) != s {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsImageType reports whether a media type is an image.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(mediaType(contentType), "image/")
}

// Probe issues a HEAD request and returns the media type.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) (string, error) {
	resp, err := resilience.RetryWithResult(ctx, f.retry, func(ctx context.Context) (*http.Response, error) {
		return f.do(ctx, f.client, http.MethodHead, rawURL, nil)
	})
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	return mediaType(resp.Header.Get("Content-Type")), nil
}

// Fetch downloads rawURL. Spark content is fetched with the bearer token
// and must be an image. An HTML page is resolved to its og:image or first
// img once when download.resolve_html is set.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	var finishTiming func(bool, map[string]interface{})
	if f.observer != nil {
		finishTiming = f.observer.StartTiming("fetch", "download", rawURL)
	}

	d, err := f.fetch(ctx, rawURL, f.download.ResolveHTML)
	if finishTiming != nil {
		meta := map[string]interface{}{}
		if d != nil {
			meta["content_type"] = d.ContentType
			meta["bytes"] = d.Size
		}
		if err != nil {
			meta["error"] = err.Error()
		}
		finishTiming(err == nil, meta)
	}
	return d, err
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string, resolveHTML bool) (*Download, error) {
	spark := f.IsSpark(rawURL)
	client := f.client
	headers := map[string]string{}

	if spark {
		token := os.Getenv(f.spark.TokenEnv)
		if token == "" {
			return nil, fmt.Errorf("%w: set %s", ErrMissingToken, f.spark.TokenEnv)
		}
		client = &http.Client{
			Timeout: f.client.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
				Base:   f.client.Transport,
			},
		}
		headers["Cache-Control"] = "no-cache"
	}

	resp, err := resilience.RetryWithResult(ctx, f.retry, func(ctx context.Context) (*http.Response, error) {
		return f.do(ctx, client, http.MethodGet, rawURL, headers)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	d, err := f.save(resp, rawURL, spark)
	if err != nil {
		return nil, err
	}

	if spark && !d.IsImage() {
		f.Cleanup(d)
		return nil, fmt.Errorf("%w: %s is %s", ErrNotImage, rawURL, d.ContentType)
	}

	if resolveHTML && d.ContentType == "text/html" {
		imageURL, err := findImageURL(d.Path, resp.Request.URL)
		if err != nil || imageURL == "" {
			return d, nil
		}
		f.observer.Detail("fetch", fmt.Sprintf("resolved %s to %s", rawURL, imageURL))
		resolved, err := f.fetch(ctx, imageURL, false)
		if err != nil {
			f.Cleanup(d)
			return nil, fmt.Errorf("failed to fetch image linked from %s: %w", rawURL, err)
		}
		f.Cleanup(d)
		resolved.ResolvedFrom = rawURL
		return resolved, nil
	}
	return d, nil
}

func (f *Fetcher) do(ctx context.Context, client *http.Client, method, rawURL string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, resilience.NewPermanentError("invalid URL", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, sniffLen))
		resp.Body.Close()
		return nil, &resilience.HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (f *Fetcher) save(resp *http.Response, rawURL string, spark bool) (*Download, error) {
	body := bufio.NewReaderSize(resp.Body, sniffLen)
	contentType := mediaType(resp.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		head, _ := body.Peek(sniffLen)
		if len(head) > 0 {
			contentType = mediaType(http.DetectContentType(head))
		}
	}

	name := filenameFor(resp, rawURL, spark, contentType)

	base := f.download.Dir
	if base == "" {
		base = paths.GetDownloadDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	dir, err := os.MkdirTemp(base, "fetch-")
	if err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	d := &Download{
		URL:         rawURL,
		Path:        filepath.Join(dir, name),
		ContentType: contentType,
		Spark:       spark,
		dir:         dir,
	}

	out, err := os.Create(d.Path)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to create %s: %w", d.Path, err)
	}

	var src io.Reader = body
	if f.download.MaxBytes > 0 {
		src = io.LimitReader(body, f.download.MaxBytes+1)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && f.download.MaxBytes > 0 && n > f.download.MaxBytes {
		err = fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.download.MaxBytes)
	}
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to download %s: %w", rawURL, err)
	}

	d.Size = n
	return d, nil
}

// Cleanup removes a transient download unless download.keep_files is set.
func (f *Fetcher) Cleanup(d *Download) error {
	if d == nil || d.dir == "" || f.download.KeepFiles {
		return nil
	}
	if err := os.RemoveAll(d.dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", d.dir, err)
	}
	d.dir = ""
	return nil
}

func filenameFor(resp *http.Response, rawURL string, spark bool, contentType string) string {
	var name string
	if spark {
		if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
			name = paths.SafeFilename(params["filename"])
		}
		if name == "" {
			name = "spark-content"
		}
	} else {
		if u, err := url.Parse(rawURL); err == nil {
			name = paths.SafeFilename(path.Base(u.Path))
		}
		if name == "" {
			name = "download"
		}
	}

	if filepath.Ext(name) == "" {
		name += extensionFor(contentType)
	}
	return name
}

func extensionFor(contentType string) string {
	if ext, ok := preferredExt[contentType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mt
}

// findImageURL returns the og:image of an HTML page, or its first img.
func findImageURL(htmlPath string, base *url.URL) (string, error) {
	file, err := os.Open(htmlPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		return "", err
	}

	ref, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content")
	if !ok || strings.TrimSpace(ref) == "" {
		ref, ok = doc.Find("img[src]").First().Attr("src")
	}
	if !ok || strings.TrimSpace(ref) == "" {
		return "", nil
	}

	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", nil
	}
	return u.String(), nil
}

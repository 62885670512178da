package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotText is returned when an object body is not valid UTF-8.
var ErrNotText = errors.New("object body is not text")

type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Fetcher reads object content through presigned GET URLs, so the download
// itself carries no credentials.
type Fetcher struct {
	presigner Presigner
	http      *http.Client
	bucket    string
	expiry    time.Duration
}

func NewFetcher(p Presigner, hc *http.Client, bucket string, expiry time.Duration) *Fetcher {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Fetcher{presigner: p, http: hc, bucket: bucket, expiry: expiry}
}

func NewFetcherFromConfig(cfg aws.Config, bucket string, expiry time.Duration) *Fetcher {
	return NewFetcher(s3.NewPresignClient(s3.NewFromConfig(cfg)), http.DefaultClient, bucket, expiry)
}

func (f *Fetcher) Bucket() string { return f.bucket }

// Presign returns a GET URL for key valid for the configured expiry.
func (f *Fetcher) Presign(ctx context.Context, key string) (string, error) {
	req, err := f.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(f.expiry))
	if err != nil {
		return "", fmt.Errorf("s3 presign GetObject %s/%s: %w", f.bucket, key, err)
	}
	return req.URL, nil
}

// FetchText downloads url without credentials and returns the body as text.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	res, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("get object: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("get object failed: http %d: %s", res.StatusCode, truncate(string(raw), 200))
	}
	if !utf8.Valid(raw) {
		return "", ErrNotText
	}
	return string(raw), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

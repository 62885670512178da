package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/signer/awsv2"
)

// Client sends search requests to an OpenSearch domain through the
// opensearch-go transport, SigV4-signed with the function's credentials.
// An aws.Config without credentials sends unsigned requests.
type Client struct {
	os *opensearch.Client
}

// NewClient builds a client for endpoint. service is "es" for managed
// domains and "aoss" for serverless collections. rt may be nil.
func NewClient(cfg aws.Config, endpoint, service string, rt http.RoundTripper) (*Client, error) {
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("parse search endpoint: %w", err)
	}

	osCfg := opensearch.Config{
		Addresses:    []string{endpoint},
		Transport:    rt,
		DisableRetry: true,
	}
	if cfg.Credentials != nil {
		signer, err := awsv2.NewSignerWithService(cfg, service)
		if err != nil {
			return nil, fmt.Errorf("build sigv4 signer: %w", err)
		}
		osCfg.Signer = signer
	}

	c, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("build opensearch client: %w", err)
	}
	return &Client{os: c}, nil
}

func NewClientFromConfig(cfg aws.Config, endpoint, service string) (*Client, error) {
	return NewClient(cfg, endpoint, service, nil)
}

// Do returns the backend status and raw body. Non-200 statuses are not errors here.
func (c *Client) Do(ctx context.Context, r Request) (int, []byte, error) {
	body, err := r.EncodeBody()
	if err != nil {
		return 0, nil, fmt.Errorf("encode search body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.ResourcePath, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build search request: %w", err)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	res, err := c.os.Perform(req)
	if err != nil {
		return 0, nil, fmt.Errorf("search %s %s: %w", r.Method, r.ResourcePath, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("read search response: %w", err)
	}
	return res.StatusCode, raw, nil
}

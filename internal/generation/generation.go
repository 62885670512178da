package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ContentSeparator joins the per-file base64 blobs in file_content_base64.
// The endpoint has always received comma-joined content, so the separator is
// part of the wire format.
const ContentSeparator = ","

var ErrGenerationFailed = errors.New("failed to generate questions")

// Request is the body POSTed to the question generation endpoint.
type Request struct {
	Prompt            string `json:"prompt"`
	Filename          string `json:"filename"`
	FileContentBase64 string `json:"file_content_base64"`
}

type Generator interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

// StatusError reports a non-2xx response from the endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http %d", ErrGenerationFailed, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrGenerationFailed }

// EncodeText base64-encodes one file's text content.
func EncodeText(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

func JoinContent(parts []string) string {
	return strings.Join(parts, ContentSeparator)
}

// DecodeContent reverses JoinContent and EncodeText.
func DecodeContent(joined string) ([]string, error) {
	if joined == "" {
		return nil, nil
	}
	parts := strings.Split(joined, ContentSeparator)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		b, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return nil, fmt.Errorf("decode content part %d: %w", i, err)
		}
		out = append(out, string(b))
	}
	return out, nil
}

// HTTPGenerator posts requests to a fixed endpoint and returns the JSON body untouched.
type HTTPGenerator struct {
	endpoint string
	http     *http.Client
}

func NewHTTPGenerator(endpoint string, hc *http.Client) *HTTPGenerator {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPGenerator{endpoint: endpoint, http: hc}
}

func (g *HTTPGenerator) Generate(ctx context.Context, r Request) (json.RawMessage, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", g.endpoint, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read generation response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: res.StatusCode, Body: string(raw)}
	}

	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("generation response is not JSON: %s", truncate(string(raw), 200))
	}
	return json.RawMessage(raw), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

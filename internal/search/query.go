package search

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	ResourcePath = "/movie/_search"
	PageFrom     = 0
	PageSize     = 50
)

var (
	ErrUnexpectedStatus  = errors.New("search backend returned non-200 status")
	ErrMalformedResponse = errors.New("malformed search response")
)

// Query is the resolver's GraphQL arguments.
type Query struct {
	Title string `json:"title"`
}

// Event is the direct Lambda resolver payload sent by the GraphQL API.
type Event struct {
	Arguments Query `json:"arguments"`
}

type RequestBody struct {
	From  int        `json:"from"`
	Size  int        `json:"size"`
	Query MatchQuery `json:"query"`
}

type MatchQuery struct {
	Match TitleMatch `json:"match"`
}

type TitleMatch struct {
	Title string `json:"title"`
}

// Request is a search call before it is bound to a domain endpoint.
type Request struct {
	Method       string
	ResourcePath string
	Headers      map[string]string
	Body         RequestBody
}

// BuildRequest returns the same request shape for every title. The title is
// passed through unvalidated.
func BuildRequest(title string) Request {
	return Request{
		Method:       http.MethodGet,
		ResourcePath: ResourcePath,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: RequestBody{
			From:  PageFrom,
			Size:  PageSize,
			Query: MatchQuery{Match: TitleMatch{Title: title}},
		},
	}
}

// EncodeBody renders the body without HTML escaping so the title reaches the
// backend byte for byte.
func (r Request) EncodeBody() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.Body); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// StatusError carries the backend status for anything other than 200.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http %d", ErrUnexpectedStatus, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

type searchResponse struct {
	Hits *struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ParseResponse maps hits.hits to their _source documents, in backend order.
// Only status 200 yields documents.
func ParseResponse(statusCode int, body []byte) ([]json.RawMessage, error) {
	if statusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: statusCode, Body: string(body)}
	}

	var res searchResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if res.Hits == nil || res.Hits.Hits == nil {
		return nil, fmt.Errorf("%w: missing hits.hits", ErrMalformedResponse)
	}

	docs := make([]json.RawMessage, 0, len(res.Hits.Hits))
	for _, h := range res.Hits.Hits {
		if h.Source == nil {
			docs = append(docs, json.RawMessage("null"))
			continue
		}
		docs = append(docs, h.Source)
	}
	return docs, nil
}

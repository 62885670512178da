package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyassist/internal/config"
	"studyassist/internal/search"
)

type fakeQuestions struct {
	paths []string
	err   error
}

func (f *fakeQuestions) Generate(_ context.Context, paths []string) (json.RawMessage, error) {
	f.paths = paths
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"questions":["q1"]}`), nil
}

type fakeSearch struct {
	query search.Query
}

func (f *fakeSearch) Resolve(_ context.Context, q search.Query) ([]json.RawMessage, error) {
	f.query = q
	return []json.RawMessage{json.RawMessage(`{"title":"Heat"}`)}, nil
}

func run(t *testing.T, f Factory, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(f)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQuestionsCommand(t *testing.T) {
	fq := &fakeQuestions{}
	var got Overrides
	f := Factory{Questions: func(_ context.Context, o Overrides) (QuestionsRunner, error) {
		got = o
		return fq, nil
	}}

	out, err := run(t, f, "questions", "--bucket", "notes", "--compact", "a.txt", "b.txt")
	require.NoError(t, err)

	assert.Equal(t, "{\"questions\":[\"q1\"]}\n", out)
	assert.Equal(t, []string{"a.txt", "b.txt"}, fq.paths)
	assert.Equal(t, "notes", got.Bucket)
}

func TestQuestionsCommandRequiresPath(t *testing.T) {
	_, err := run(t, Factory{}, "questions")
	assert.Error(t, err)
}

func TestQuestionsCommandPropagatesError(t *testing.T) {
	f := Factory{Questions: func(context.Context, Overrides) (QuestionsRunner, error) {
		return &fakeQuestions{err: errors.New("failed to process file a.txt")}, nil
	}}
	_, err := run(t, f, "questions", "a.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.txt")
}

func TestSearchCommand(t *testing.T) {
	fs := &fakeSearch{}
	f := Factory{Search: func(_ context.Context, o Overrides) (SearchRunner, error) {
		assert.Equal(t, "https://search.example.com", o.SearchEndpoint)
		return fs, nil
	}}

	out, err := run(t, f, "search", "--endpoint", "https://search.example.com", "Heat")
	require.NoError(t, err)
	assert.Equal(t, "Heat", fs.query.Title)
	assert.JSONEq(t, `[{"title":"Heat"}]`, out)
}

func TestApplyOverrides(t *testing.T) {
	cfg := &config.Config{
		Region:                  "us-west-2",
		Bucket:                  "default",
		GenerationEndpointParam: "/study/endpoint",
		SearchEndpointParam:     "/study/search",
		LogLevel:                "info",
	}
	apply(cfg, Overrides{
		Region:             "eu-west-1",
		GenerationEndpoint: "https://local/filequery",
		SearchEndpoint:     "https://local-search",
		LogLevel:           "debug",
	})

	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "default", cfg.Bucket)
	assert.Equal(t, "https://local/filequery", cfg.GenerationEndpoint)
	assert.Empty(t, cfg.GenerationEndpointParam)
	assert.Equal(t, "https://local-search", cfg.SearchEndpoint)
	assert.Empty(t, cfg.SearchEndpointParam)
	assert.Equal(t, "debug", cfg.LogLevel)
}

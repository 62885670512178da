package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryTable struct {
	items  map[string]map[string]ddbtypes.AttributeValue
	tables []string
	err    error
}

func newMemoryTable() *memoryTable {
	return &memoryTable{items: map[string]map[string]ddbtypes.AttributeValue{}}
}

func (m *memoryTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.tables = append(m.tables, aws.ToString(in.TableName))
	if m.err != nil {
		return nil, m.err
	}
	pk := in.Key["PK"].(*ddbtypes.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: m.items[pk]}, nil
}

func (m *memoryTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.tables = append(m.tables, aws.ToString(in.TableName))
	if m.err != nil {
		return nil, m.err
	}
	pk := in.Item["PK"].(*ddbtypes.AttributeValueMemberS).Value
	m.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestMakePKIsStableAndDistinct(t *testing.T) {
	a := Key{Prompt: "p", Filename: "f", Content: "WA=="}
	b := Key{Prompt: "p", Filename: "f", Content: "WQ=="}

	assert.Equal(t, MakePK(a), MakePK(a))
	assert.NotEqual(t, MakePK(a), MakePK(b))
	assert.Len(t, MakePK(a), len("QUESTIONS#")+64)
}

func TestMakePKSeparatesGenerators(t *testing.T) {
	httpKey := Key{Generator: "http:https://example.com/filequery", Prompt: "p", Filename: "f", Content: "WA=="}
	haiku := httpKey
	haiku.Generator = "bedrock:anthropic.claude-3-haiku"
	sonnet := httpKey
	sonnet.Generator = "bedrock:anthropic.claude-3-5-sonnet"

	assert.NotEqual(t, MakePK(httpKey), MakePK(haiku))
	assert.NotEqual(t, MakePK(haiku), MakePK(sonnet))
}

func TestPutThenGet(t *testing.T) {
	tbl := newMemoryTable()
	c := New(tbl, "QuestionCache", 600)
	now := time.Date(2026, 1, 19, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	k := Key{Prompt: "p", Filename: "f", Content: "WA==,WQ=="}

	_, ok, err := c.Get(context.Background(), k)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(context.Background(), k, json.RawMessage(`{"questions":["q1"]}`)))

	item := tbl.items[MakePK(k)]
	assert.Equal(t, "1768817400", item["ExpiresAt"].(*ddbtypes.AttributeValueMemberN).Value)

	body, ok, err := c.Get(context.Background(), k)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"questions":["q1"]}`, string(body))
	assert.Equal(t, []string{"QuestionCache", "QuestionCache", "QuestionCache"}, tbl.tables)
}

func TestGetTreatsExpiredItemAsMiss(t *testing.T) {
	tbl := newMemoryTable()
	c := New(tbl, "QuestionCache", 60)
	start := time.Date(2026, 1, 19, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return start }

	k := Key{Content: "WA=="}
	require.NoError(t, c.Put(context.Background(), k, json.RawMessage(`{}`)))

	c.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, ok, err := c.Get(context.Background(), k)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheErrors(t *testing.T) {
	tbl := newMemoryTable()
	tbl.err = errors.New("throttled")
	c := New(tbl, "QuestionCache", 60)

	_, _, err := c.Get(context.Background(), Key{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache GetItem")

	err = c.Put(context.Background(), Key{}, json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache PutItem")
}

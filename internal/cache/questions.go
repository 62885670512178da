package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Key identifies one generation request. Content is the joined base64 batch.
// Generator names the backend that produced the body, e.g. "bedrock:<model>".
type Key struct {
	Generator string
	Prompt    string
	Filename  string
	Content   string
}

// Item mirrors the DynamoDB record. ExpiresAt is the table's TTL attribute.
type Item struct {
	PK        string `dynamodbav:"PK"`
	Payload   string `dynamodbav:"Payload"`
	CreatedAt int64  `dynamodbav:"CreatedAt"`
	ExpiresAt int64  `dynamodbav:"ExpiresAt"`
}

// QuestionCache stores generation endpoint responses keyed by a hash of the request.
type QuestionCache struct {
	ddb   Client
	table string
	ttl   time.Duration
	now   func() time.Time
}

func New(ddb Client, table string, ttlSeconds int64) *QuestionCache {
	return &QuestionCache{
		ddb:   ddb,
		table: table,
		ttl:   time.Duration(ttlSeconds) * time.Second,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func HashKeyMaterial(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func MakePK(k Key) string {
	material := strings.Join([]string{
		"generator=" + k.Generator,
		"prompt=" + k.Prompt,
		"filename=" + k.Filename,
		"content=" + k.Content,
	}, "|")
	return "QUESTIONS#" + HashKeyMaterial(material)
}

// Get returns the cached body for k. DynamoDB deletes expired items lazily,
// so an item past ExpiresAt counts as a miss.
func (c *QuestionCache) Get(ctx context.Context, k Key) (json.RawMessage, bool, error) {
	out, err := c.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: MakePK(k)},
		},
		ConsistentRead: aws.Bool(false),
	})
	if err != nil {
		return nil, false, fmt.Errorf("cache GetItem: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}

	var it Item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, false, nil
	}
	if it.ExpiresAt > 0 && it.ExpiresAt <= c.now().Unix() {
		return nil, false, nil
	}
	if !json.Valid([]byte(it.Payload)) {
		return nil, false, nil
	}
	return json.RawMessage(it.Payload), true, nil
}

func (c *QuestionCache) Put(ctx context.Context, k Key, body json.RawMessage) error {
	now := c.now().Unix()
	item, err := attributevalue.MarshalMap(Item{
		PK:        MakePK(k),
		Payload:   string(body),
		CreatedAt: now,
		ExpiresAt: now + int64(c.ttl/time.Second),
	})
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}

	_, err = c.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("cache PutItem: %w", err)
	}
	return nil
}

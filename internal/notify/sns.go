package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type SNSClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Outcome is the message published after each get-questions invocation.
type Outcome struct {
	Status     string   `json:"status"`
	Paths      []string `json:"paths"`
	Cached     bool     `json:"cached"`
	Error      string   `json:"error,omitempty"`
	FailedPath string   `json:"failed_path,omitempty"`
	At         string   `json:"at"`
}

type Publisher struct {
	sns      SNSClient
	topicArn string
	now      func() time.Time
}

func NewPublisher(c SNSClient, topicArn string) *Publisher {
	return &Publisher{sns: c, topicArn: topicArn, now: func() time.Time { return time.Now().UTC() }}
}

func (p *Publisher) Publish(ctx context.Context, o Outcome) error {
	if o.At == "" {
		o.At = p.now().Format(time.RFC3339)
	}
	b, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	_, err = p.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicArn),
		Subject:  aws.String(fmt.Sprintf("Study questions: %s", o.Status)),
		Message:  aws.String(string(b)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"status": {DataType: aws.String("String"), StringValue: aws.String(o.Status)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns Publish: %w", err)
	}
	return nil
}

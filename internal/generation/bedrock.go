package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	bedrockruntime "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

type BedrockClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockGenerator asks a Claude model on Bedrock for questions directly,
// for deployments without the filequery endpoint.
type BedrockGenerator struct {
	client    BedrockClient
	modelID   string
	maxTokens int
}

func NewBedrockGenerator(c BedrockClient, modelID string) *BedrockGenerator {
	return &BedrockGenerator{client: c, modelID: modelID, maxTokens: 2000}
}

func (g *BedrockGenerator) Generate(ctx context.Context, r Request) (json.RawMessage, error) {
	files, err := DecodeContent(r.FileContentBase64)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        g.maxTokens,
		"temperature":       0.2,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": BuildPrompt(r.Prompt, r.Filename, files)},
				},
			},
		},
	}
	body, _ := json.Marshal(payload)

	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock InvokeModel: %w", err)
	}

	var raw struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(out.Body, &raw); err != nil {
		return nil, fmt.Errorf("bedrock response unmarshal: %w", err)
	}

	var text string
	for _, c := range raw.Content {
		if c.Type == "text" {
			text += c.Text
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty model reply", ErrGenerationFailed)
	}

	if obj := extractFirstJSONObject(text); obj != "" && json.Valid([]byte(obj)) {
		return json.RawMessage(obj), nil
	}
	wrapped, _ := json.Marshal(map[string]string{"response": text})
	return wrapped, nil
}

// BuildPrompt lays out the instruction followed by each file's text.
func BuildPrompt(prompt, filename string, files []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(prompt))
	b.WriteString("\n\nReply with a JSON object only.\n")
	for i, f := range files {
		fmt.Fprintf(&b, "\n--- %s (part %d) ---\n%s\n", filename, i+1, f)
	}
	return b.String()
}

// extractFirstJSONObject finds the first balanced {...} block. Braces inside
// strings are not special-cased.
func extractFirstJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

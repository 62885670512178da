package params

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolve returns fallback when name is empty, otherwise the decrypted
// value of the Parameter Store parameter.
func Resolve(ctx context.Context, c SSMClient, name, fallback string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback, nil
	}

	out, err := c.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm GetParameter %s: %w", name, err)
	}
	if out.Parameter == nil {
		return "", fmt.Errorf("ssm parameter %s has no value", name)
	}

	v := strings.TrimSpace(aws.ToString(out.Parameter.Value))
	if v == "" {
		return "", fmt.Errorf("ssm parameter %s is empty", name)
	}
	return v, nil
}

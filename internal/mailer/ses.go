// Package mailer implements the email transport against AWS SES v2.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	appconfig "github.com/luminahr/pulse-engage/internal/config"
	"github.com/luminahr/pulse-engage/internal/dispatch"
)

// sesAPI is the slice of the SES v2 client the transport uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESTransport sends notifications through AWS SES v2. It implements
// dispatch.Transport: provider rejections of a single message come back as
// *dispatch.RecipientError, anything else (credentials, connectivity,
// provider-side throttling) as a plain error the dispatcher treats as
// systemic.
type SESTransport struct {
	client    sesAPI
	fromName  string
	fromEmail string
}

// NewSESTransport creates a transport from application config.
func NewSESTransport(ctx context.Context, cfg appconfig.SESConfig) (*SESTransport, error) {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKey,
		cfg.SecretKey,
		"", // session token (empty for static creds)
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESTransport{
		client:    sesv2.NewFromConfig(awsCfg),
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
	}, nil
}

// Send transmits one email and returns the SES message id.
func (t *SESTransport) Send(ctx context.Context, email dispatch.OutboundEmail) (string, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", t.fromName, t.fromEmail)),
		Destination: &types.Destination{
			ToAddresses: []string{email.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(email.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(email.Body)},
				},
			},
		},
	}

	out, err := t.client.SendEmail(ctx, input)
	if err != nil {
		if reason, ok := recipientRejection(err); ok {
			return "", &dispatch.RecipientError{Reason: reason}
		}
		return "", fmt.Errorf("ses send: %w", err)
	}

	return aws.ToString(out.MessageId), nil
}

// recipientRejection reports whether the SES error is scoped to the message
// being sent rather than to the sending account or connection.
func recipientRejection(err error) (string, bool) {
	var rejected *types.MessageRejected
	if errors.As(err, &rejected) {
		return aws.ToString(rejected.Message), true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "MessageRejected", "BadRequestException":
			return apiErr.ErrorMessage(), true
		}
	}
	return "", false
}

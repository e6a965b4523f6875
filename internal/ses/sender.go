// Package ses delivers email through the AWS SES v2 API.
package ses

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
)

// API is the subset of *sesv2.Client used by Sender.
type API interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Sender implements sending.EmailSender with a single SendEmail call per
// message. It does not retry.
type Sender struct {
	client API
	from   domain.SubscriberEmail
	log    *logger.Logger
}

// NewSender creates an SES sender that sends from the given address.
func NewSender(client API, from domain.SubscriberEmail, log *logger.Logger) *Sender {
	return &Sender{client: client, from: from, log: log}
}

// NewSenderFromConfig builds the SES v2 client from an aws.Config.
func NewSenderFromConfig(cfg aws.Config, from domain.SubscriberEmail, log *logger.Logger) *Sender {
	return NewSender(sesv2.NewFromConfig(cfg), from, log)
}

func utf8Content(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}

// SendEmail delivers a single message through AWS SES.
func (s *Sender) SendEmail(ctx context.Context, to domain.SubscriberEmail, subject, htmlBody, textBody string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from.String()),
		Destination:      &types.Destination{ToAddresses: []string{to.String()}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8Content(subject),
				Body: &types.Body{
					Html: utf8Content(htmlBody),
					Text: utf8Content(textBody),
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", logger.RedactEmail(to.String()), err)
	}

	s.log.Debug("email sent via ses", "recipient", to.String(), "message_id", aws.ToString(result.MessageId))
	return nil
}

package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// ErrNoQueue is returned when a publish is attempted without a queue URL.
var ErrNoQueue = errors.New("release queue not configured")

// ReleaseCommand is the payload sent from API -> SQS -> worker.
type ReleaseCommand struct {
	RunKey        string `json:"run_key"`
	Force         bool   `json:"force,omitempty"`
	Trigger       string `json:"trigger,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Publisher wraps an SQS client and a queue URL.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// Enabled reports whether the publisher has somewhere to send to.
func (p *Publisher) Enabled() bool {
	return p != nil && p.SQS != nil && p.QueueURL != ""
}

// SendReleaseCommand enqueues a release command. The run key and correlation id
// are mirrored into message attributes for filtering and tracing.
func (p *Publisher) SendReleaseCommand(ctx context.Context, cmd ReleaseCommand) error {
	if !p.Enabled() {
		return ErrNoQueue
	}
	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal release command: %w", err)
	}
	messageBody := string(body)

	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &messageBody,
	}
	attributes := map[string]string{
		"run_key":        cmd.RunKey,
		"correlation_id": cmd.CorrelationID,
	}
	msgAttrs := map[string]sqstypes.MessageAttributeValue{}
	for k, v := range attributes {
		if v == "" {
			continue
		}
		msgAttrs[k] = sqstypes.MessageAttributeValue{
			DataType:    awsString("String"),
			StringValue: awsString(v),
		}
	}
	if len(msgAttrs) > 0 {
		input.MessageAttributes = msgAttrs
	}

	if _, err := p.SQS.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// awsString helper
func awsString(s string) *string { return &s }

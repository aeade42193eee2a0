package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/wishwall/internal/aws"
	"github.com/imrishuroy/wishwall/internal/logging"
	"github.com/imrishuroy/wishwall/internal/release"
)

// Processor turns queued release commands into release runs.
type Processor struct {
	releaser release.Releaser
	log      *zap.Logger
}

// NewProcessor creates a worker processor around a releaser.
func NewProcessor(releaser release.Releaser, log *zap.Logger) *Processor {
	return &Processor{releaser: releaser, log: log}
}

// Handle processes an SQS batch in order. The first failure is returned so
// Lambda redelivers the batch; releasing twice is harmless.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	p.log.Info("received sqs batch", zap.Int("records", len(ev.Records)))
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.Error("worker error", zap.String("message_id", rec.MessageId), zap.Error(err))
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var cmd aws.ReleaseCommand
	if err := json.Unmarshal([]byte(rec.Body), &cmd); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	log := p.log.With(
		zap.String("message_id", rec.MessageId),
		zap.String("run_key", cmd.RunKey),
		zap.String("correlation_id", cmd.CorrelationID),
	)
	ctx = logging.NewContext(ctx, log)

	res, err := p.releaser.Release(ctx, release.Options{
		RunKey:  cmd.RunKey,
		Force:   cmd.Force,
		Trigger: release.TriggerQueue,
	})
	if err != nil {
		return fmt.Errorf("release run %q: %w", res.RunKey, err)
	}

	log.Info("release command processed", zap.Int("updated", res.Updated), zap.Bool("skipped", res.Skipped))
	return nil
}

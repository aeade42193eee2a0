package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/wishwall/internal/app"
	"github.com/imrishuroy/wishwall/internal/config"
	"github.com/imrishuroy/wishwall/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wishwall worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := checkBackend(cfg); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	p := NewProcessor(a.Releaser, logger.Named("worker"))

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = fmt.Sprintf(`{"run_key":%q,"trigger":"queue","force":true}`, cfg.ReleaseRunKey)
		}
		ev := events.SQSEvent{Records: []events.SQSMessage{{MessageId: "local-1", Body: body}}}
		if err := p.Handle(context.Background(), ev); err != nil {
			return fmt.Errorf("local handler: %w", err)
		}
		logger.Info("local release finished")
		return nil
	}

	lambda.Start(p.Handle)
	return nil
}

// checkBackend refuses to consume queue messages against an in-memory store,
// which would belong to this process only and never hold the API's wishes.
func checkBackend(cfg config.Config) error {
	if !cfg.RunLocal && cfg.UseInMemoryStore {
		return errors.New("worker needs the DynamoDB store: set USE_IN_MEMORY_STORE=false")
	}
	return nil
}

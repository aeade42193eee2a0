package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/imrishuroy/wishwall/internal/aws"
)

// Config holds process configuration. Every field maps to an environment variable.
type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	RunLocal  bool   `env:"RUN_LOCAL" envDefault:"false"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	UseInMemoryStore bool   `env:"USE_IN_MEMORY_STORE" envDefault:"true"`
	SeedDemoWishes   bool   `env:"SEED_DEMO_WISHES" envDefault:"true"`
	WishesTable      string `env:"DYNAMODB_TABLE" envDefault:"Wishes"`
	ReleaseRunsTable string `env:"RELEASE_RUNS_TABLE" envDefault:"WishReleaseRuns"`
	ReleaseQueueURL  string `env:"RELEASE_QUEUE_URL"`
	MaxWishesPerUser int    `env:"MAX_WISH_PER_USER" envDefault:"3"`
	// WishRetention sets the DynamoDB ttl of new wishes.
	WishRetention time.Duration `env:"WISH_RETENTION" envDefault:"720h"`

	// REGION wins over AWS_REGION.
	Region              string `env:"REGION"`
	AWSRegion           string `env:"AWS_REGION"`
	AWSEndpointOverride string `env:"AWS_ENDPOINT_OVERRIDE"`

	// Release moments are China Standard Time.
	CountdownTarget  time.Time `env:"CNY_COUNTDOWN_TARGET" envDefault:"2027-02-05T23:59:59+08:00"`
	ReleaseTime      time.Time `env:"CNY_RELEASE_TIME" envDefault:"2027-02-06T00:00:00+08:00"`
	ReleaseMessage   string    `env:"RELEASE_MESSAGE" envDefault:"愿所有美好如期而至，新年快乐！"`
	ReleaseAPIKey    string    `env:"RELEASE_API_KEY"`
	ReleaseRunKey    string    `env:"RELEASE_RUN_KEY" envDefault:"cny-2027"`
	ReleaseSchedule  string    `env:"RELEASE_SCHEDULE" envDefault:"CRON_TZ=Asia/Shanghai 0 0 6 2 *"`
	SchedulerEnabled bool      `env:"RELEASE_SCHEDULER_ENABLED" envDefault:"true"`

	MetricsNamespace  string `env:"METRICS_NAMESPACE" envDefault:"WishWall"`
	CloudWatchMetrics bool   `env:"CLOUDWATCH_METRICS" envDefault:"false"`
}

// Load reads the given dotenv files (".env" when none are given) into the
// process environment, then parses the environment. Missing files are ignored;
// variables already set win over file values.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.MaxWishesPerUser <= 0 {
		return fmt.Errorf("MAX_WISH_PER_USER must be positive, got %d", c.MaxWishesPerUser)
	}
	if !c.ReleaseTime.After(c.CountdownTarget) {
		return fmt.Errorf("CNY_RELEASE_TIME %s must be after CNY_COUNTDOWN_TARGET %s",
			c.ReleaseTime.Format(time.RFC3339), c.CountdownTarget.Format(time.RFC3339))
	}
	if c.ReleaseRunKey == "" {
		return errors.New("RELEASE_RUN_KEY must not be empty")
	}
	if !c.UseInMemoryStore && c.WishesTable == "" {
		return errors.New("DYNAMODB_TABLE is required when USE_IN_MEMORY_STORE=false")
	}
	// the worker runs in another process and cannot see an in-memory store
	if c.UseInMemoryStore && c.ReleaseQueueURL != "" {
		return errors.New("RELEASE_QUEUE_URL requires USE_IN_MEMORY_STORE=false")
	}
	if c.WishRetention <= 0 {
		return fmt.Errorf("WISH_RETENTION must be positive, got %s", c.WishRetention)
	}
	return nil
}

// AWSSettings returns the region and endpoint the AWS clients are built with.
func (c Config) AWSSettings() aws.Settings {
	region := c.Region
	if region == "" {
		region = c.AWSRegion
	}
	return aws.Settings{Region: region, EndpointOverride: c.AWSEndpointOverride}
}

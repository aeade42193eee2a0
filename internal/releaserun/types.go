package releaserun

import (
	"context"
	"time"
)

// Status values for release runs
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// Record is the shape persisted in the release runs table, one per run key.
type Record struct {
	RunKey    string    `dynamodbav:"runKey" json:"runKey"` // PK
	Status    string    `dynamodbav:"status" json:"status"`
	Trigger   string    `dynamodbav:"trigger,omitempty" json:"trigger,omitempty"` // api | schedule | queue
	Updated   int       `dynamodbav:"updated" json:"updated"`                     // wishes released across all attempts
	Attempts  int       `dynamodbav:"attempts" json:"attempts"`
	Note      string    `dynamodbav:"note,omitempty" json:"note,omitempty"`
	CreatedAt time.Time `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
	ExpiresAt int64     `dynamodbav:"expiresAt" json:"-"` // TTL epoch seconds
}

// Ledger tracks release runs so a finished run is not repeated and a failed
// one can be resumed.
type Ledger interface {
	// Begin creates an IN_PROGRESS record. created is false when the key already exists.
	Begin(ctx context.Context, key, trigger string) (created bool, err error)
	// Get returns (nil, nil) when the key is unknown.
	Get(ctx context.Context, key string) (*Record, error)
	// Retry flips an existing record back to IN_PROGRESS and bumps its attempts.
	Retry(ctx context.Context, key, trigger string) error
	// MarkDone and MarkFailed add updated to the running total.
	MarkDone(ctx context.Context, key string, updated int) error
	MarkFailed(ctx context.Context, key string, updated int, note string) error
}

// DefaultTTLWindow keeps run records around well past the release season.
const DefaultTTLWindow = 90 * 24 * time.Hour

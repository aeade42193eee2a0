package wishes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxActivePerUser is the number of active wishes a user may hold at once.
	MaxActivePerUser = 3
	DefaultListLimit = 20
	MaxListLimit     = 50
	// RetentionWindow drives the DynamoDB ttl attribute.
	RetentionWindow = 30 * 24 * time.Hour
)

// ErrQuotaExceeded is returned by CreateWish when the user already holds the
// maximum number of active wishes.
var ErrQuotaExceeded = errors.New("wish limit exceeded")

// Store is the wish persistence contract shared by the in-memory and DynamoDB backends.
//
// CreateWish counts then writes without a lock spanning both steps on the
// DynamoDB backend, so concurrent submissions from one user may overshoot the
// quota slightly. That race is accepted.
type Store interface {
	ListByStatus(ctx context.Context, status Status, limit int, cursor string) (ListResult, error)
	CountByUserAndStatus(ctx context.Context, userID string, status Status) (int, error)
	CreateWish(ctx context.Context, input CreateInput) (Wish, error)
	// ReleaseAllActive moves every active wish to released, one item at a time.
	// On failure it returns the number released so far with the error; calling
	// it again finishes the job.
	ReleaseAllActive(ctx context.Context) (int, error)
}

// Option configures a store.
type Option func(*options)

type options struct {
	maxActive int
	retention time.Duration
	nowFunc   func() time.Time
	newID     func() string
}

func defaultOptions() options {
	return options{
		maxActive: MaxActivePerUser,
		retention: RetentionWindow,
		nowFunc:   time.Now,
		newID:     uuid.NewString,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMaxActive overrides the per-user active quota.
func WithMaxActive(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxActive = n
		}
	}
}

// WithRetention overrides the ttl window on persisted wishes.
func WithRetention(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retention = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.nowFunc = now }
}

// WithIDGenerator overrides uuid.NewString.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// ClampLimit bounds a requested page size to [1, MaxListLimit]. Zero or negative
// means DefaultListLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}

func newWish(o options, input CreateInput) Wish {
	return Wish{
		WishID:    o.newID(),
		UserID:    input.UserID,
		Nickname:  input.Nickname,
		Content:   input.Content,
		Contact:   input.Contact,
		Gender:    input.Gender,
		CreatedAt: o.nowFunc().UnixMilli(),
		Status:    StatusActive,
	}
}

package metrics

import (
	"context"
)

// Recorder receives wish wall business events.
type Recorder interface {
	WishCreated(ctx context.Context)
	QuotaRejected(ctx context.Context)
	WishesReleased(ctx context.Context, n int)
	ReleaseFailed(ctx context.Context)
}

// Nop discards everything.
type Nop struct{}

func (Nop) WishCreated(context.Context)         {}
func (Nop) QuotaRejected(context.Context)       {}
func (Nop) WishesReleased(context.Context, int) {}
func (Nop) ReleaseFailed(context.Context)       {}

// Multi fans events out to several recorders.
type Multi []Recorder

func (m Multi) WishCreated(ctx context.Context) {
	for _, r := range m {
		r.WishCreated(ctx)
	}
}

func (m Multi) QuotaRejected(ctx context.Context) {
	for _, r := range m {
		r.QuotaRejected(ctx)
	}
}

func (m Multi) WishesReleased(ctx context.Context, n int) {
	for _, r := range m {
		r.WishesReleased(ctx, n)
	}
}

func (m Multi) ReleaseFailed(ctx context.Context) {
	for _, r := range m {
		r.ReleaseFailed(ctx)
	}
}

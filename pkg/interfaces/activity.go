package interfaces

import (
	"context"

	usertypes "github.com/goliatone/go-users/pkg/types"
)

// ActivityRecord is the go-users activity record written for every successful transition.
type ActivityRecord = usertypes.ActivityRecord

// ActivitySink persists activity records. go-users activity repositories satisfy it.
type ActivitySink interface {
	Log(ctx context.Context, record ActivityRecord) error
}

// ActivitySinkFunc adapts a function to ActivitySink.
type ActivitySinkFunc func(ctx context.Context, record ActivityRecord) error

// Log calls f.
func (f ActivitySinkFunc) Log(ctx context.Context, record ActivityRecord) error {
	return f(ctx, record)
}

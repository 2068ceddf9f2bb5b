// Package sink publishes fused signals to downstream consumers.
package sink

import (
	"context"
	"time"

	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/sentiment"
)

// Record is one analysis result handed to every sink
type Record struct {
	Signal    core.FusedSignal
	Sentiment *sentiment.Result // Full news breakdown, nil when the sentiment strategy did not run
}

// Sink receives published records. ttl is how long the result stays valid;
// zero means no expiry. Sinks that cannot expire data ignore it.
type Sink interface {
	Name() string
	Publish(ctx context.Context, rec Record, ttl time.Duration) error
}

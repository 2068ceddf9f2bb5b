package news

import (
	"context"
	"time"

	"github.com/newthinker/sigfuse/internal/core"
)

// Static serves a fixed article list, filtered by symbol terms and age
type Static struct {
	items []core.NewsItem
	dir   Directory
	now   func() time.Time
}

// NewStatic creates a news provider with static items
func NewStatic(items []core.NewsItem, dir Directory) *Static {
	return &Static{items: items, dir: dir, now: time.Now}
}

func (s *Static) Name() string {
	return "static"
}

func (s *Static) Articles(ctx context.Context, symbol string, hoursBack int) ([]core.NewsItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Filter(s.items, s.dir.Terms(symbol), cutoff(s.now(), hoursBack)), nil
}

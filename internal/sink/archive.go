package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/sentiment"
	"github.com/newthinker/sigfuse/internal/storage/archive"
)

const archiveRoot = "signals"

// archived is the on-disk document
type archived struct {
	Signal    core.FusedSignal  `json:"signal"`
	Sentiment *sentiment.Result `json:"sentiment,omitempty"`
}

// Archive keeps every fused signal as a JSON document laid out as
// signals/YYYY/MM/DD/SYMBOL/ID.json. It never expires records.
type Archive struct {
	store archive.Storage
}

// NewArchive creates an archive sink over store
func NewArchive(store archive.Storage) *Archive {
	return &Archive{store: store}
}

func (a *Archive) Name() string {
	return "archive"
}

// Key returns the storage key for sig
func Key(sig core.FusedSignal) string {
	day := sig.GeneratedAt.UTC().Format("2006/01/02")
	return path.Join(archiveRoot, day, sig.Symbol, sig.ID+".json")
}

func (a *Archive) Publish(ctx context.Context, rec Record, _ time.Duration) error {
	if rec.Signal.ID == "" {
		return core.WrapError(core.ErrSinkFailed, fmt.Errorf("archive: signal for %s has no id", rec.Signal.Symbol))
	}

	data, err := json.MarshalIndent(archived{Signal: rec.Signal, Sentiment: rec.Sentiment}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding archive record: %w", err)
	}
	if err := a.store.Write(ctx, Key(rec.Signal), data); err != nil {
		return core.WrapError(core.ErrSinkFailed, fmt.Errorf("archive: %w", err))
	}
	return nil
}

// Day loads the signals archived on day, optionally for one symbol, in key
// order.
func (a *Archive) Day(ctx context.Context, day time.Time, symbol string) ([]Record, error) {
	prefix := path.Join(archiveRoot, day.UTC().Format("2006/01/02"))
	if symbol != "" {
		prefix = path.Join(prefix, symbol)
	}

	keys, err := a.store.List(ctx, prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", prefix, err)
	}

	records := make([]Record, 0, len(keys))
	for _, k := range keys {
		if !strings.HasSuffix(k, ".json") {
			continue
		}
		data, err := a.store.Read(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", k, err)
		}
		var doc archived
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", k, err)
		}
		records = append(records, Record{Signal: doc.Signal, Sentiment: doc.Sentiment})
	}
	return records, nil
}

// Prune deletes archived days strictly before cutoff and returns how many
// documents were removed.
func (a *Archive) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	keys, err := a.store.List(ctx, archiveRoot+"/")
	if err != nil {
		return 0, fmt.Errorf("listing archive: %w", err)
	}

	limit := cutoff.UTC().Format("2006/01/02")
	removed := 0
	for _, k := range keys {
		parts := strings.SplitN(strings.TrimPrefix(k, archiveRoot+"/"), "/", 4)
		if len(parts) < 4 {
			continue
		}
		if strings.Join(parts[:3], "/") >= limit {
			continue
		}
		if err := a.store.Delete(ctx, k); err != nil {
			return removed, fmt.Errorf("deleting %s: %w", k, err)
		}
		removed++
	}
	return removed, nil
}

// Package news fetches articles mentioning a symbol.
package news

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/sentiment"
)

// Provider returns recent articles relevant to a symbol
type Provider interface {
	Name() string
	Articles(ctx context.Context, symbol string, hoursBack int) ([]core.NewsItem, error)
}

// Directory maps symbols to the company names used as extra search terms,
// e.g. AAPL -> ["Apple Inc.", "Apple"].
type Directory map[string][]string

// Terms returns the search terms for symbol: the upper-cased symbol first,
// then its known names, deduplicated.
func (d Directory) Terms(symbol string) []string {
	terms := []string{strings.ToUpper(symbol)}
	for _, name := range d[symbol] {
		name = strings.TrimSpace(name)
		if name != "" && !slices.Contains(terms, name) {
			terms = append(terms, name)
		}
	}
	return terms
}

// Filter keeps items published at or after cutoff that mention any term.
// Items without a publish time are kept.
func Filter(items []core.NewsItem, terms []string, cutoff time.Time) []core.NewsItem {
	var out []core.NewsItem
	for _, item := range items {
		if !item.PublishedAt.IsZero() && item.PublishedAt.Before(cutoff) {
			continue
		}
		if !sentiment.Mentions(item.Text(), terms) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func cutoff(now time.Time, hoursBack int) time.Time {
	if hoursBack <= 0 {
		hoursBack = 24
	}
	return now.Add(-time.Duration(hoursBack) * time.Hour)
}

package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/sigfuse/internal/core"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Headlines</title>
  <item>
    <title>Apple unveils record buyback</title>
    <description>Shares of AAPL jumped.</description>
    <link>https://example.com/a</link>
    <pubDate>Sat, 01 Jun 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Apple supplier warns</title>
    <link>https://example.com/b</link>
    <pubDate>Tue, 28 May 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Oil prices steady</title>
    <link>https://example.com/c</link>
    <pubDate>Sat, 01 Jun 2024 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>AAPL options activity</title>
    <link>https://example.com/d</link>
  </item>
</channel>
</rss>`

func newTestRSS(t *testing.T, handler http.HandlerFunc, extra ...Feed) (*RSS, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	feeds := append([]Feed{{Name: "test", URL: srv.URL + "/feed"}}, extra...)
	r := NewRSS(feeds,
		WithDirectory(Directory{"AAPL": {"Apple"}}),
		WithFeedInterval(0),
		WithClient(srv.Client()),
	)
	r.now = func() time.Time { return testNow }
	return r, &hits
}

func TestRSS_Articles(t *testing.T) {
	r, _ := newTestRSS(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFixture))
	})

	got, err := r.Articles(context.Background(), "AAPL", 24)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "Apple unveils record buyback", got[0].Title)
	assert.Equal(t, "Shares of AAPL jumped.", got[0].Body)
	assert.Equal(t, "test", got[0].Source)
	assert.Equal(t, "https://example.com/a", got[0].URL)
	assert.Equal(t, "AAPL options activity", got[1].Title)
	assert.Equal(t, testNow, got[1].PublishedAt, "undated items get the fetch time")
}

func TestRSS_ScanReused(t *testing.T) {
	r, hits := newTestRSS(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(rssFixture))
	})
	ctx := context.Background()

	_, err := r.Articles(ctx, "AAPL", 24)
	require.NoError(t, err)
	_, err = r.Articles(ctx, "MSFT", 24)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	r.now = func() time.Time { return testNow.Add(time.Hour) }
	_, err = r.Articles(ctx, "AAPL", 24)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestRSS_PartialFailure(t *testing.T) {
	r, _ := newTestRSS(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(rssFixture))
	}, Feed{Name: "broken", URL: "http://127.0.0.1:1/unreachable"})

	got, err := r.Articles(context.Background(), "AAPL", 24)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRSS_AllFeedsFail(t *testing.T) {
	r, _ := newTestRSS(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := r.Articles(context.Background(), "AAPL", 24)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrProviderFailed))
}

func TestDefaultFeeds(t *testing.T) {
	feeds := DefaultFeeds()
	require.Len(t, feeds, 4)
	for _, f := range feeds {
		assert.NotEmpty(t, f.Name)
		assert.Contains(t, f.URL, "http")
	}
}

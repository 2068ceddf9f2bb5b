// internal/api/handlers.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/sigfuse/internal/api/response"
	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/marketdata"
	"github.com/newthinker/sigfuse/internal/sink"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListSignals filters the recent history by symbol, action, from, to,
// limit and offset.
func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := listQuery{
		Symbol: strings.ToUpper(q.Get("symbol")),
		Action: strings.ToUpper(q.Get("action")),
		From:   q.Get("from"),
		To:     q.Get("to"),
	}

	var err error
	if query.Limit, err = parseInt(q.Get("limit")); err != nil {
		response.Error(w, err)
		return
	}
	if query.Offset, err = parseInt(q.Get("offset")); err != nil {
		response.Error(w, err)
		return
	}
	if err := check(r.Context(), &query); err != nil {
		response.Error(w, err)
		return
	}

	filter := sink.ListFilter{
		Symbol: query.Symbol,
		Action: core.Action(query.Action),
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if filter.From, err = parseTime(query.From); err != nil {
		response.Error(w, err)
		return
	}
	if filter.To, err = parseTime(query.To); err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"signals": s.deps.Signals.List(filter),
		"total":   s.deps.Signals.Count(filter),
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

func (s *Server) handleLatestSignals(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, s.deps.Signals.Latest())
}

func (s *Server) handleGetSignal(w http.ResponseWriter, r *http.Request) {
	sig, err := s.deps.Signals.Get(r.PathValue("id"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, sig)
}

// handleAnalyze runs one analysis synchronously. The result is published to
// the configured sinks like any scheduled analysis.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	symbol, err := pathSymbol(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	rec := s.deps.Analyzer.Run(r.Context(), symbol)
	response.JSON(w, http.StatusOK, map[string]any{
		"signal":    rec.Signal,
		"sentiment": rec.Sentiment,
	})
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	symbol, err := pathSymbol(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	report, err := s.deps.Analyzer.Train(r.Context(), symbol)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, report)
}

func (s *Server) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	symbols := s.deps.Watcher.Watchlist()
	response.JSON(w, http.StatusOK, map[string]any{
		"symbols": symbols,
		"count":   len(symbols),
	})
}

func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decodeBody(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if err := marketdata.ValidateSymbol(symbol); err != nil {
		response.Error(w, core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	s.deps.Watcher.Add(symbol)
	response.JSON(w, http.StatusCreated, map[string]any{
		"symbol": symbol,
		"added":  true,
	})
}

func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if !s.deps.Watcher.Remove(symbol) {
		response.Error(w, core.WrapError(core.ErrNotFound, fmt.Errorf("%s is not watched", symbol)))
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"symbol":  symbol,
		"removed": true,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, s.deps.Watcher.Stats())
}

func pathSymbol(r *http.Request) (string, error) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	if err := marketdata.ValidateSymbol(symbol); err != nil {
		return "", core.WrapError(core.ErrConfigInvalid, err)
	}
	return symbol, nil
}

func badRequest(format string, args ...any) error {
	return core.WrapError(core.ErrConfigInvalid, fmt.Errorf(format, args...))
}

// parseTime accepts RFC 3339 or a bare date
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, badRequest("invalid time %q", v)
}

func parseInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("invalid number %q", v)
	}
	return n, nil
}

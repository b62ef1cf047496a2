package api

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"

	"github.com/cryptoview/pricewatch/interfaces"
	"github.com/cryptoview/pricewatch/watchlist"
)

const defaultHistoryDays = "7"

// handleMarkets returns the watch-list snapshot, fetching it when asked to
// or when nothing has been fetched yet. ?symbols=btc,eth filters the rows.
func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watchlist == nil {
		s.sendError(w, r, fmt.Errorf("%w: watch list disabled", errUnavailable))
		return
	}

	snap, ok := s.deps.Watchlist.Snapshot()
	cacheStatus := interfaces.CacheStatusHit
	if !ok || getParamLowercase(r, "refresh") == "true" {
		var err error
		snap, err = s.deps.Watchlist.Refresh(r.Context())
		if err != nil {
			s.sendError(w, r, err)
			return
		}
		cacheStatus = interfaces.CacheStatusMiss
	}

	if symbols := splitParamLowercase(r.URL.Query().Get("symbols")); len(symbols) > 0 {
		snap = filterSnapshot(snap, symbols)
	}

	s.setCacheStatusHeader(w, cacheStatus)
	s.sendJSONResponse(w, snap)
}

func filterSnapshot(snap watchlist.Snapshot, symbols []string) watchlist.Snapshot {
	coins := make([]watchlist.Coin, 0, len(symbols))
	for _, c := range snap.Coins {
		if slices.Contains(symbols, strings.ToLower(c.Symbol)) {
			coins = append(coins, c)
		}
	}
	snap.Coins = coins
	return snap
}

// handleSearch proxies a coin search, spacing upstream searches apart
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Search == nil {
		s.sendError(w, r, fmt.Errorf("%w: search disabled", errUnavailable))
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		s.sendError(w, r, fmt.Errorf("%w: query is required", errBadRequest))
		return
	}

	if err := s.searchLimiter.Wait(r.Context()); err != nil {
		s.sendError(w, r, fmt.Errorf("%w: search aborted while waiting for its slot: %v", errUnavailable, err))
		return
	}

	result, err := s.deps.Search.Search(r.Context(), query)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSONResponse(w, result)
}

func (s *Server) handleCoinDetails(w http.ResponseWriter, r *http.Request) {
	if s.deps.Details == nil {
		s.sendError(w, r, fmt.Errorf("%w: coin details disabled", errUnavailable))
		return
	}
	coinID := strings.ToLower(mux.Vars(r)["id"])

	details, err := s.deps.Details.GetDetails(r.Context(), coinID, s.currencyParam(r))
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSONResponse(w, details)
}

func (s *Server) handleCoinHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Details == nil {
		s.sendError(w, r, fmt.Errorf("%w: coin details disabled", errUnavailable))
		return
	}
	coinID := strings.ToLower(mux.Vars(r)["id"])
	days := getParamLowercase(r, "days")
	if days == "" {
		days = defaultHistoryDays
	}

	points, err := s.deps.Details.GetHistory(r.Context(), coinID, s.currencyParam(r), days)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSONResponse(w, points)
}

// currencyParam is vs_currency, falling back to the user's currency
func (s *Server) currencyParam(r *http.Request) string {
	if currency := getParamLowercase(r, "vs_currency"); currency != "" {
		return currency
	}
	if s.deps.Settings != nil {
		if current, err := s.deps.Settings.Load(r.Context()); err == nil {
			return strings.ToLower(current.CurrencyOrDefault())
		}
	}
	return "usd"
}

// setCacheStatusHeader sets the Cache-Status header based on cache status
func (s *Server) setCacheStatusHeader(w http.ResponseWriter, cacheStatus interfaces.CacheStatus) {
	if cacheStatus != "" {
		w.Header().Set("Cache-Status", cacheStatus.String())
	}
}

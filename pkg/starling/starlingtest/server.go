// Package starlingtest provides an in-memory fake of the Starling public API
// for tests and local emulation.
package starlingtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shunichi-ikebuchi/starling-sync/pkg/starling"
)

type contextKey string

const contextKeyFixture contextKey = "fixture"

// Fixture is the data served for one bearer token.
type Fixture struct {
	Accounts     []starling.Account             `json:"accounts"`
	Balance      starling.Balance               `json:"balance"`
	SavingsGoals []starling.SavingsGoal         `json:"savingsGoals"`
	Feeds        map[string][]starling.FeedItem `json:"feeds"` // keyed by category uid
}

// Server is a fake API keyed by bearer token. Safe for concurrent use.
type Server struct {
	mu       sync.RWMutex
	fixtures map[string]*Fixture
	failures map[string]int // path prefix -> status code
	requests []string
}

// NewServer creates an empty Server.
func NewServer() *Server {
	return &Server{
		fixtures: make(map[string]*Fixture),
		failures: make(map[string]int),
	}
}

// LoadFile reads fixtures keyed by token from a JSON file.
func LoadFile(path string) (*Server, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}

	var fixtures map[string]*Fixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to parse fixture file: %w", err)
	}

	s := NewServer()
	for token, f := range fixtures {
		s.SetFixture(token, f)
	}
	return s, nil
}

// SetFixture registers the data served for token.
func (s *Server) SetFixture(token string, f *Fixture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Feeds == nil {
		f.Feeds = make(map[string][]starling.FeedItem)
	}
	s.fixtures[token] = f
}

// FailPath makes every request whose path starts with prefix answer status.
func (s *Server) FailPath(prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[prefix] = status
}

// Requests returns the request URIs served so far.
func (s *Server) Requests() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.requests...)
}

// Start serves the fake API on a local test server. Callers must Close it.
func (s *Server) Start() *httptest.Server {
	return httptest.NewServer(s.Router())
}

// Router returns the chi router serving the API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v2", func(r chi.Router) {
		r.Use(s.auth)

		r.Get("/accounts", s.handleAccounts)
		r.Get("/accounts/{accountUid}/balance", s.handleBalance)
		r.Get("/account/{accountUid}/spaces", s.handleSpaces)
		r.Get("/feed/account/{accountUid}/category/{categoryUid}", s.handleFeedSince)
		r.Get("/feed/account/{accountUid}/category/{categoryUid}/transactions-between", s.handleFeedBetween)
	})

	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.RequestURI())
		status := 0
		for prefix, code := range s.failures {
			if strings.HasPrefix(r.URL.Path, prefix) {
				status = code
			}
		}
		s.mu.Unlock()

		if status != 0 {
			writeJSONError(w, status, "forced_failure", "Injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
			return
		}

		s.mu.RLock()
		f, ok := s.fixtures[parts[1]]
		s.mu.RUnlock()
		if !ok {
			writeJSONError(w, http.StatusForbidden, "invalid_token", "Unknown access token")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyFixture, f)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func fixtureFrom(r *http.Request) *Fixture {
	return r.Context().Value(contextKeyFixture).(*Fixture)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	f := fixtureFrom(r)
	writeJSON(w, starling.AccountsResponse{Accounts: f.Accounts})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	f := fixtureFrom(r)
	if !ownsAccount(f, chi.URLParam(r, "accountUid")) {
		writeJSONError(w, http.StatusNotFound, "not_found", "Account not found")
		return
	}
	writeJSON(w, f.Balance)
}

func (s *Server) handleSpaces(w http.ResponseWriter, r *http.Request) {
	f := fixtureFrom(r)
	if !ownsAccount(f, chi.URLParam(r, "accountUid")) {
		writeJSONError(w, http.StatusNotFound, "not_found", "Account not found")
		return
	}
	// a nil slice encodes as null, which the API does for accounts without goals
	writeJSON(w, starling.SpacesResponse{SavingsGoals: f.SavingsGoals})
}

func (s *Server) handleFeedSince(w http.ResponseWriter, r *http.Request) {
	f := fixtureFrom(r)
	if !ownsAccount(f, chi.URLParam(r, "accountUid")) {
		writeJSONError(w, http.StatusNotFound, "not_found", "Account not found")
		return
	}

	since, err := time.Parse(time.RFC3339, r.URL.Query().Get("changesSince"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid changesSince")
		return
	}

	items := filterItems(f.Feeds[chi.URLParam(r, "categoryUid")], func(item starling.FeedItem) bool {
		ts := item.UpdatedAt
		if ts == "" {
			ts = item.TransactionTime
		}
		t, err := time.Parse(time.RFC3339, ts)
		return err != nil || !t.Before(since)
	})
	writeJSON(w, starling.FeedItemsResponse{FeedItems: items})
}

func (s *Server) handleFeedBetween(w http.ResponseWriter, r *http.Request) {
	f := fixtureFrom(r)
	if !ownsAccount(f, chi.URLParam(r, "accountUid")) {
		writeJSONError(w, http.StatusNotFound, "not_found", "Account not found")
		return
	}

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("minTransactionTimestamp"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid minTransactionTimestamp")
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("maxTransactionTimestamp"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid maxTransactionTimestamp")
		return
	}

	items := filterItems(f.Feeds[chi.URLParam(r, "categoryUid")], func(item starling.FeedItem) bool {
		t, err := time.Parse(time.RFC3339, item.TransactionTime)
		return err != nil || (!t.Before(from) && t.Before(to))
	})
	writeJSON(w, starling.FeedItemsResponse{FeedItems: items})
}

// filterItems keeps matching items, newest first like the real feed.
func filterItems(items []starling.FeedItem, keep func(starling.FeedItem) bool) []starling.FeedItem {
	out := []starling.FeedItem{}
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TransactionTime > out[j].TransactionTime
	})
	return out
}

func ownsAccount(f *Fixture, uid string) bool {
	for _, acc := range f.Accounts {
		if acc.AccountUID == uid {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(starling.ErrorResponse{Error: code, ErrorDescription: description})
}

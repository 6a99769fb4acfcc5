// Package feed collects feed items across the spaces of an account.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/araddon/dateparse"

	"github.com/shunichi-ikebuchi/starling-sync/pkg/starling"
)

// Window selects how the fetch window is expressed to the API.
type Window string

const (
	// WindowBetween fetches items with a transaction time in [since, until).
	WindowBetween Window = "between"
	// WindowChangesSince fetches items changed since since; until is ignored.
	WindowChangesSince Window = "changes-since"
)

// Source is the subset of the API client the normalizer needs.
type Source interface {
	SavingsGoals(ctx context.Context, accountUID string) ([]starling.SavingsGoal, error)
	FeedItemsBetween(ctx context.Context, accountUID, categoryUID string, from, to time.Time) ([]starling.FeedItem, error)
	FeedItemsSince(ctx context.Context, accountUID, categoryUID string, since time.Time) ([]starling.FeedItem, error)
}

// Normalizer fetches and merges the feeds of every space of an account.
type Normalizer struct {
	src    Source
	window Window
}

// NewNormalizer creates a Normalizer. An empty window means WindowBetween.
func NewNormalizer(src Source, window Window) *Normalizer {
	if window == "" {
		window = WindowBetween
	}
	return &Normalizer{src: src, window: window}
}

// Window returns the window strategy.
func (n *Normalizer) Window() Window {
	return n.window
}

// Spaces returns the category uids to fetch: the default category
// followed by every savings goal.
func (n *Normalizer) Spaces(ctx context.Context, account starling.Account) ([]string, error) {
	goals, err := n.src.SavingsGoals(ctx, account.AccountUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}

	spaces := make([]string, 0, len(goals)+1)
	spaces = append(spaces, account.DefaultCategory)
	for _, g := range goals {
		if g.SavingsGoalUID != "" {
			spaces = append(spaces, g.SavingsGoalUID)
		}
	}
	return spaces, nil
}

// Fetch returns the feed items of all spaces, sorted by ascending
// transaction time. Spaces are fetched sequentially.
func (n *Normalizer) Fetch(ctx context.Context, account starling.Account, since, until time.Time) ([]starling.FeedItem, error) {
	spaces, err := n.Spaces(ctx, account)
	if err != nil {
		return nil, err
	}

	var items []starling.FeedItem
	for _, space := range spaces {
		got, err := n.fetchSpace(ctx, account.AccountUID, space, since, until)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch feed of space %s: %w", space, err)
		}
		slog.Debug("Fetched space", "space", space, "items", len(got))
		items = append(items, got...)
	}

	Sort(items)
	return items, nil
}

func (n *Normalizer) fetchSpace(ctx context.Context, accountUID, space string, since, until time.Time) ([]starling.FeedItem, error) {
	switch n.window {
	case WindowChangesSince:
		return n.src.FeedItemsSince(ctx, accountUID, space, since)
	case WindowBetween:
		return n.src.FeedItemsBetween(ctx, accountUID, space, since, until)
	default:
		return nil, fmt.Errorf("unknown window strategy %q", n.window)
	}
}

// Sort stable-sorts items by ascending transaction time. Items whose
// time cannot be parsed sort first, ordered lexically.
func Sort(items []starling.FeedItem) {
	keys := make(map[string]time.Time, len(items))
	for _, item := range items {
		if _, ok := keys[item.TransactionTime]; ok {
			continue
		}
		t, err := dateparse.ParseIn(item.TransactionTime, time.UTC)
		if err != nil {
			t = time.Time{}
		}
		keys[item.TransactionTime] = t
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := keys[items[i].TransactionTime], keys[items[j].TransactionTime]
		if a.Equal(b) {
			return items[i].TransactionTime < items[j].TransactionTime
		}
		return a.Before(b)
	})
}

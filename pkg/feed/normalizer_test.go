package feed

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shunichi-ikebuchi/starling-sync/pkg/starling"
)

type fakeSource struct {
	goals    []starling.SavingsGoal
	goalsErr error
	feeds    map[string][]starling.FeedItem
	failOn   string
	calls    []string
}

func (f *fakeSource) SavingsGoals(ctx context.Context, accountUID string) ([]starling.SavingsGoal, error) {
	return f.goals, f.goalsErr
}

func (f *fakeSource) FeedItemsBetween(ctx context.Context, accountUID, categoryUID string, from, to time.Time) ([]starling.FeedItem, error) {
	f.calls = append(f.calls, "between:"+categoryUID)
	return f.feed(categoryUID)
}

func (f *fakeSource) FeedItemsSince(ctx context.Context, accountUID, categoryUID string, since time.Time) ([]starling.FeedItem, error) {
	f.calls = append(f.calls, "since:"+categoryUID)
	return f.feed(categoryUID)
}

func (f *fakeSource) feed(category string) ([]starling.FeedItem, error) {
	if category == f.failOn {
		return nil, errors.New("boom")
	}
	return f.feeds[category], nil
}

func item(uid, ts string) starling.FeedItem {
	return starling.FeedItem{FeedItemUID: uid, TransactionTime: ts}
}

var account = starling.Account{AccountUID: "acc", DefaultCategory: "main"}

func uids(items []starling.FeedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.FeedItemUID
	}
	return out
}

func TestFetchMergesAndSorts(t *testing.T) {
	src := &fakeSource{
		goals: []starling.SavingsGoal{{SavingsGoalUID: "goal"}},
		feeds: map[string][]starling.FeedItem{
			"main": {item("m2", "2024-01-03T10:00:00.000Z"), item("m1", "2024-01-01T10:00:00.000Z")},
			"goal": {item("g1", "2024-01-02T10:00:00.000Z")},
		},
	}

	items, err := NewNormalizer(src, WindowBetween).Fetch(context.Background(), account, time.Time{}, time.Now())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	got := uids(items)
	expected := []string{"m1", "g1", "m2"}
	if len(got) != len(expected) {
		t.Fatalf("Fetch() = %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Fetch()[%d] = %s, expected %s", i, got[i], expected[i])
		}
	}
	if len(src.calls) != 2 || src.calls[0] != "between:main" || src.calls[1] != "between:goal" {
		t.Errorf("calls = %v", src.calls)
	}
}

func TestFetchWindowStrategy(t *testing.T) {
	tests := []struct {
		window   Window
		expected string
	}{
		{"", "between:main"},
		{WindowBetween, "between:main"},
		{WindowChangesSince, "since:main"},
	}

	for _, tt := range tests {
		t.Run(string(tt.window), func(t *testing.T) {
			src := &fakeSource{}
			n := NewNormalizer(src, tt.window)
			expectedWindow := tt.window
			if expectedWindow == "" {
				expectedWindow = WindowBetween
			}
			if got := n.Window(); got != expectedWindow {
				t.Errorf("Window() = %q, expected %q", got, expectedWindow)
			}
			if _, err := n.Fetch(context.Background(), account, time.Time{}, time.Now()); err != nil {
				t.Fatal(err)
			}
			if len(src.calls) != 1 || src.calls[0] != tt.expected {
				t.Errorf("calls = %v, expected [%s]", src.calls, tt.expected)
			}
		})
	}

	if _, err := NewNormalizer(&fakeSource{}, "weekly").Fetch(context.Background(), account, time.Time{}, time.Now()); err == nil {
		t.Error("Fetch() with unknown window returned nil error")
	}
}

func TestFetchWithoutSavingsGoals(t *testing.T) {
	src := &fakeSource{feeds: map[string][]starling.FeedItem{"main": {item("m1", "2024-01-01T00:00:00Z")}}}

	items, err := NewNormalizer(src, WindowBetween).Fetch(context.Background(), account, time.Time{}, time.Now())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Fetch() returned %d items, expected 1", len(items))
	}
}

func TestFetchErrors(t *testing.T) {
	goalsErr := errors.New("spaces down")
	if _, err := NewNormalizer(&fakeSource{goalsErr: goalsErr}, WindowBetween).Fetch(context.Background(), account, time.Time{}, time.Now()); !errors.Is(err, goalsErr) {
		t.Errorf("Fetch() error = %v, expected spaces error", err)
	}

	src := &fakeSource{goals: []starling.SavingsGoal{{SavingsGoalUID: "goal"}}, failOn: "goal"}
	_, err := NewNormalizer(src, WindowBetween).Fetch(context.Background(), account, time.Time{}, time.Now())
	if err == nil || !strings.Contains(err.Error(), "space goal") {
		t.Errorf("Fetch() error = %v, expected failing space in message", err)
	}
}

func TestSort(t *testing.T) {
	items := []starling.FeedItem{
		item("late", "2024-02-01T00:00:00.000Z"),
		item("offset", "2024-01-15T01:00:00+02:00"),
		item("bad", "garbage"),
		item("early", "2024-01-14T23:30:00.000Z"),
		item("tie-b", "2024-01-20T00:00:00.000Z"),
		item("tie-a", "2024-01-20T00:00:00.000Z"),
	}

	Sort(items)

	expected := []string{"bad", "offset", "early", "tie-b", "tie-a", "late"}
	got := uids(items)
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("Sort() = %v, expected %v", got, expected)
		}
	}
}

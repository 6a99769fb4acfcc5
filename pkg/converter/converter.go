package converter

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/starling-sync/pkg/beancount"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/starling"
)

// SourceTag is the metadata source of every generated entry.
const SourceTag = "starling-api"

// UnknownPayee is used when the feed item has no counterparty.
const UnknownPayee = "FIXME"

// UserMetaKey is the metadata key for the acting user on joint accounts.
const UserMetaKey = "user"

// DefaultStatuses are the feed item statuses that become transactions.
var DefaultStatuses = []string{
	starling.StatusSettled,
	starling.StatusRefunded,
	starling.StatusReversed,
}

// Per-item data errors.
var (
	ErrInvalidTime      = errors.New("invalid transaction time")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// Options configures a Converter for one account.
type Options struct {
	Account  string            // ledger account, e.g. "Joint:Main"
	Joint    bool              // attach acting-user metadata
	Users    map[string]string // application user uid -> display name
	Statuses []string          // accepted statuses; nil means DefaultStatuses
}

// Converter converts feed items to Beancount transactions.
type Converter struct {
	mapper   *Mapper
	account  string
	joint    bool
	users    map[string]string
	statuses map[string]bool
}

// ItemError is a data error isolated to one feed item.
type ItemError struct {
	Ordinal     int
	FeedItemUID string
	Err         error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("feed item %d (%s): %v", e.Ordinal, e.FeedItemUID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// Result is the outcome of converting a sorted feed.
type Result struct {
	Transactions []beancount.Transaction
	Items        []starling.FeedItem // source item of each transaction
	Filtered     int
	Errors       []*ItemError
}

// NewConverter creates a new Converter.
func NewConverter(mapper *Mapper, opts Options) *Converter {
	statuses := opts.Statuses
	if len(statuses) == 0 {
		statuses = DefaultStatuses
	}
	accepted := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		accepted[s] = true
	}

	users := make(map[string]string, len(opts.Users))
	for k, v := range opts.Users {
		users[k] = v
	}

	return &Converter{
		mapper:   mapper,
		account:  opts.Account,
		joint:    opts.Joint,
		users:    users,
		statuses: accepted,
	}
}

// Account returns the ledger account of the converter.
func (c *Converter) Account() string {
	return c.account
}

// Statuses returns the accepted statuses, sorted.
func (c *Converter) Statuses() []string {
	out := make([]string, 0, len(c.statuses))
	for s := range c.statuses {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Accept reports whether a feed item becomes a transaction.
// Internal transfers and items with a non-accepted status are filtered out.
func (c *Converter) Accept(item starling.FeedItem) bool {
	if item.Source == starling.SourceInternalTransfer {
		return false
	}
	return c.statuses[item.Status]
}

// Convert converts a sorted feed. Ordinals are positions in items, so
// filtered and failing items still consume their ordinal.
func (c *Converter) Convert(items []starling.FeedItem) Result {
	var res Result
	for i, item := range items {
		slog.Debug("Feed item", "ordinal", i, "item", item)

		if !c.Accept(item) {
			res.Filtered++
			continue
		}

		txn, err := c.ConvertItem(item, i)
		if err != nil {
			itemErr := &ItemError{Ordinal: i, FeedItemUID: item.FeedItemUID, Err: err}
			slog.Warn("Skipping feed item", "ordinal", i, "feed_item_uid", item.FeedItemUID, "error", err)
			res.Errors = append(res.Errors, itemErr)
			continue
		}

		res.Transactions = append(res.Transactions, txn)
		res.Items = append(res.Items, item)
	}
	return res
}

// ConvertItem converts a single accepted feed item. It does not apply Accept.
func (c *Converter) ConvertItem(item starling.FeedItem, ordinal int) (beancount.Transaction, error) {
	date, err := ParseDate(item.TransactionTime)
	if err != nil {
		return beancount.Transaction{}, err
	}

	amount, err := SignedAmount(item.Amount, item.Direction)
	if err != nil {
		return beancount.Transaction{}, err
	}

	payee := item.CounterPartyName
	if payee == "" {
		payee = UnknownPayee
	}

	if !c.mapper.HasMapping(item.SpendingCategory) {
		slog.Debug("Unmapped spending category, using DEFAULT", "feed_item_uid", item.FeedItemUID,
			"category", item.SpendingCategory)
	}

	meta := beancount.Metadata{Source: SourceTag, Ordinal: ordinal}
	if user := c.actingUser(item); user != "" {
		meta.Extra = map[string]string{UserMetaKey: user}
	}

	return beancount.Transaction{
		Meta:      meta,
		Date:      date,
		Flag:      beancount.FlagOK,
		Payee:     payee,
		Narration: strings.Join(strings.Fields(item.Reference), " "),
		Postings: []beancount.Posting{
			{Account: c.account, Amount: beancount.NewAmount(amount, item.Amount.Currency)},
			{Account: c.mapper.Resolve(item.SpendingCategory)},
		},
	}, nil
}

// actingUser returns the display name of the acting user on joint accounts.
// User uids are never exposed: unknown uids and non-joint accounts yield "".
func (c *Converter) actingUser(item starling.FeedItem) string {
	uid := item.TransactingApplicationUserUID
	if uid == "" || !c.joint {
		return ""
	}

	name, ok := c.users[uid]
	if !ok {
		slog.Warn("Unknown application user, omitting user metadata", "feed_item_uid", item.FeedItemUID)
		return ""
	}
	return name
}

// ParseDate parses a feed timestamp leniently and returns its calendar date.
func ParseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTime)
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidTime, s, err)
	}
	return beancount.Day(t), nil
}

// SignedAmount converts minor units to an exact decimal, negative for OUT.
func SignedAmount(a starling.CurrencyAndAmount, direction string) (decimal.Decimal, error) {
	if a.Currency == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: missing currency", ErrInvalidAmount)
	}
	if a.MinorUnits < 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: negative minor units %d", ErrInvalidAmount, a.MinorUnits)
	}

	amount := MajorUnits(a)
	switch direction {
	case starling.DirectionIn:
		return amount, nil
	case starling.DirectionOut:
		return amount.Neg(), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
}

// MajorUnits converts minor units using the currency's fraction digits
// (2 for GBP, so minor units / 100). Unknown currencies use 2.
func MajorUnits(a starling.CurrencyAndAmount) decimal.Decimal {
	fraction := 2
	if cur := money.GetCurrency(strings.ToUpper(a.Currency)); cur != nil {
		fraction = cur.Fraction
	}
	return decimal.New(a.MinorUnits, -int32(fraction))
}

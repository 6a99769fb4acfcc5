// Package starling provides a Starling Bank public API client and types.
package starling

// Direction of a feed item.
const (
	DirectionIn  = "IN"
	DirectionOut = "OUT"
)

// Feed item sources and statuses used by the sync pipeline.
const (
	SourceInternalTransfer = "INTERNAL_TRANSFER"

	StatusSettled      = "SETTLED"
	StatusRefunded     = "REFUNDED"
	StatusReversed     = "REVERSED"
	StatusDeclined     = "DECLINED"
	StatusAccountCheck = "ACCOUNT_CHECK"
	StatusPending      = "PENDING"
	StatusUpcoming     = "UPCOMING"
)

// CurrencyAndAmount is an amount in minor units (pence for GBP).
type CurrencyAndAmount struct {
	Currency   string `json:"currency"`
	MinorUnits int64  `json:"minorUnits"`
}

// Account represents an account from /api/v2/accounts.
type Account struct {
	AccountUID      string `json:"accountUid"`
	AccountType     string `json:"accountType,omitempty"`
	DefaultCategory string `json:"defaultCategory"`
	Currency        string `json:"currency,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
	Name            string `json:"name,omitempty"`
}

// AccountsResponse represents the response from /api/v2/accounts.
type AccountsResponse struct {
	Accounts []Account `json:"accounts"`
}

// Balance represents the response from /api/v2/accounts/{accountUid}/balance.
type Balance struct {
	ClearedBalance        CurrencyAndAmount `json:"clearedBalance"`
	EffectiveBalance      CurrencyAndAmount `json:"effectiveBalance"`
	PendingTransactions   CurrencyAndAmount `json:"pendingTransactions"`
	TotalClearedBalance   CurrencyAndAmount `json:"totalClearedBalance"`
	TotalEffectiveBalance CurrencyAndAmount `json:"totalEffectiveBalance"`
}

// SavingsGoal is a savings space; its uid doubles as a feed category.
type SavingsGoal struct {
	SavingsGoalUID string             `json:"savingsGoalUid"`
	Name           string             `json:"name,omitempty"`
	TotalSaved     *CurrencyAndAmount `json:"totalSaved,omitempty"`
	State          string             `json:"state,omitempty"`
}

// SpacesResponse represents the response from /api/v2/account/{accountUid}/spaces.
type SpacesResponse struct {
	SavingsGoals []SavingsGoal `json:"savingsGoals"`
}

// FeedItem represents a transaction feed item.
type FeedItem struct {
	FeedItemUID                   string             `json:"feedItemUid"`
	CategoryUID                   string             `json:"categoryUid,omitempty"`
	Amount                        CurrencyAndAmount  `json:"amount"`
	SourceAmount                  *CurrencyAndAmount `json:"sourceAmount,omitempty"`
	Direction                     string             `json:"direction"`
	UpdatedAt                     string             `json:"updatedAt,omitempty"`
	TransactionTime               string             `json:"transactionTime"`
	SettlementTime                string             `json:"settlementTime,omitempty"`
	Source                        string             `json:"source"`
	Status                        string             `json:"status"`
	TransactingApplicationUserUID string             `json:"transactingApplicationUserUid,omitempty"`
	CounterPartyType              string             `json:"counterPartyType,omitempty"`
	CounterPartyName              string             `json:"counterPartyName,omitempty"`
	Reference                     string             `json:"reference"`
	Country                       string             `json:"country,omitempty"`
	SpendingCategory              string             `json:"spendingCategory"`
	UserNote                      string             `json:"userNote,omitempty"`
}

// FeedItemsResponse represents a feed listing response.
type FeedItemsResponse struct {
	FeedItems []FeedItem `json:"feedItems"`
}

// ErrorResponse represents an API error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

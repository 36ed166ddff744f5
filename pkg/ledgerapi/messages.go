// Package ledgerapi defines the wire messages of splitledger.v1.LedgerService
// and Connect constructors for serving and calling it with a JSON codec.
//
// Amounts are int64 minor units of the accompanying currency.
package ledgerapi

import (
	"time"

	"github.com/shopspring/decimal"
)

type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	CreatedAt int64    `json:"createdAt"`
}

type LineItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	TotalPrice  int64  `json:"totalPrice"`
	Quantity    int    `json:"quantity,omitempty"`
}

type Receipt struct {
	ID         string      `json:"id"`
	GroupID    string      `json:"groupId"`
	Title      string      `json:"title,omitempty"`
	Currency   string      `json:"currency"`
	Subtotal   int64       `json:"subtotal"`
	Tax        int64       `json:"tax,omitempty"`
	Tip        int64       `json:"tip,omitempty"`
	ServiceFee int64       `json:"serviceFee,omitempty"`
	Total      int64       `json:"total"`
	PayerID    string      `json:"payerId"`
	LineItems  []*LineItem `json:"lineItems"`
	CreatedAt  int64       `json:"createdAt,omitempty"`
}

type Debt struct {
	ID               string `json:"id"`
	GroupID          string `json:"groupId"`
	ReceiptID        string `json:"receiptId,omitempty"`
	FromMember       string `json:"fromMember"`
	ToMember         string `json:"toMember"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Formatted        string `json:"formatted"`
	Settled          bool   `json:"settled"`
	SettledAt        int64  `json:"settledAt,omitempty"`
	SettlementReason string `json:"settlementReason,omitempty"`
	CreatedAt        int64  `json:"createdAt"`
}

// ExchangeRates mirrors money.ExchangeRateSet. Rates are decimal strings.
type ExchangeRates struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"fetchedAt"`
}

type MemberBalance struct {
	MemberID     string `json:"memberId"`
	Currency     string `json:"currency,omitempty"`
	Credit       int64  `json:"credit"`
	Debit        int64  `json:"debit"`
	Net          int64  `json:"net"`
	NetFormatted string `json:"netFormatted,omitempty"`
}

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type CreateReceiptRequest struct {
	Receipt *Receipt `json:"receipt"`
}

type CreateReceiptResponse struct {
	Receipt *Receipt `json:"receipt"`
}

type SetClaimRequest struct {
	ReceiptID  string  `json:"receiptId"`
	LineItemID string  `json:"lineItemId"`
	MemberID   string  `json:"memberId"`
	Portion    float64 `json:"portion"`
}

type SetClaimResponse struct {
	Shares map[string]int64 `json:"shares"`
	Debts  []*Debt          `json:"debts"`
}

type DeleteClaimRequest struct {
	ReceiptID  string `json:"receiptId"`
	LineItemID string `json:"lineItemId"`
	MemberID   string `json:"memberId"`
}

type DeleteClaimResponse struct {
	Shares map[string]int64 `json:"shares"`
	Debts  []*Debt          `json:"debts"`
}

type AllocateSharesRequest struct {
	ReceiptID string `json:"receiptId"`
}

type AllocateSharesResponse struct {
	Currency        string            `json:"currency"`
	Subtotals       map[string]int64  `json:"subtotals"`
	Shares          map[string]int64  `json:"shares"`
	Formatted       map[string]string `json:"formatted"`
	ClaimedTotal    int64             `json:"claimedTotal"`
	Remainder       int64             `json:"remainder,omitempty"`
	RemainderMember string            `json:"remainderMember,omitempty"`
}

type DeriveDebtsRequest struct {
	ReceiptID string `json:"receiptId"`
}

type DeriveDebtsResponse struct {
	Debts []*Debt `json:"debts"`
}

// SimplifyGroupDebtsRequest simplifies one currency, or every currency with
// unsettled debts when Currency is empty.
type SimplifyGroupDebtsRequest struct {
	GroupID  string `json:"groupId"`
	Currency string `json:"currency,omitempty"`
}

type Simplification struct {
	Currency       string   `json:"currency"`
	RetiredDebtIDs []string `json:"retiredDebtIds"`
	Debts          []*Debt  `json:"debts"`
}

// SimplifyGroupDebtsResponse has no results when there was nothing to simplify.
type SimplifyGroupDebtsResponse struct {
	Results []*Simplification `json:"results"`
}

// GetGroupBalancesRequest optionally asks for each member's net position
// converted into DisplayCurrency using Rates.
type GetGroupBalancesRequest struct {
	GroupID         string         `json:"groupId"`
	DisplayCurrency string         `json:"displayCurrency,omitempty"`
	Rates           *ExchangeRates `json:"rates,omitempty"`
}

type GetGroupBalancesResponse struct {
	Balances         []*MemberBalance  `json:"balances"`
	DisplayCurrency  string            `json:"displayCurrency,omitempty"`
	DisplayTotals    map[string]int64  `json:"displayTotals,omitempty"`
	DisplayFormatted map[string]string `json:"displayFormatted,omitempty"`
}

type ListGroupDebtsRequest struct {
	GroupID        string `json:"groupId"`
	IncludeSettled bool   `json:"includeSettled,omitempty"`
}

type ListGroupDebtsResponse struct {
	Debts []*Debt `json:"debts"`
}

type SettleDebtRequest struct {
	DebtID string `json:"debtId"`
}

type SettleDebtResponse struct {
	Debt *Debt `json:"debt"`
}

type ConvertMoneyRequest struct {
	Amount int64          `json:"amount"`
	From   string         `json:"from"`
	To     string         `json:"to"`
	Rates  *ExchangeRates `json:"rates"`
}

type ConvertMoneyResponse struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
}

type FormatMoneyRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type FormatMoneyResponse struct {
	Formatted string `json:"formatted"`
}

// Package service implements the Connect handlers for splitledger.v1.LedgerService.
package service

import (
	"errors"
	"sort"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/ledgerapi"
)

// LedgerService implements ledgerapi.LedgerServiceHandler.
type LedgerService struct {
	ledgerapi.UnimplementedLedgerServiceHandler
	ledger *ledger.Ledger
}

// NewLedgerService creates a new LedgerService backed by l.
func NewLedgerService(l *ledger.Ledger) *LedgerService {
	return &LedgerService{ledger: l}
}

// connectError maps ledger errors onto Connect codes.
func connectError(err error) error {
	switch {
	case errors.Is(err, calculator.ErrInvalidReceipt),
		errors.Is(err, calculator.ErrInvalidClaim),
		errors.Is(err, money.ErrUnknownCurrency),
		errors.Is(err, money.ErrInvalidAmount):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, money.ErrRateUnavailable),
		errors.Is(err, storage.ErrAlreadySettled),
		errors.Is(err, storage.ErrPrecisionChanged):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, storage.ErrConcurrentMutation):
		return connect.NewError(connect.CodeAborted, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func toAPIGroup(g *models.Group) *ledgerapi.Group {
	return &ledgerapi.Group{
		ID:        g.ID,
		Name:      g.Name,
		Members:   g.Members,
		CreatedAt: g.CreatedAt,
	}
}

func toAPIReceipt(r *models.Receipt) *ledgerapi.Receipt {
	items := make([]*ledgerapi.LineItem, len(r.LineItems))
	for i, item := range r.LineItems {
		items[i] = &ledgerapi.LineItem{
			ID:          item.ID,
			Description: item.Description,
			TotalPrice:  item.TotalPrice,
			Quantity:    item.Quantity,
		}
	}
	return &ledgerapi.Receipt{
		ID:         r.ID,
		GroupID:    r.GroupID,
		Title:      r.Title,
		Currency:   r.Currency,
		Subtotal:   r.Subtotal,
		Tax:        r.Tax,
		Tip:        r.Tip,
		ServiceFee: r.ServiceFee,
		Total:      r.Total,
		PayerID:    r.PayerID,
		LineItems:  items,
		CreatedAt:  r.CreatedAt,
	}
}

func fromAPIReceipt(r *ledgerapi.Receipt) *models.Receipt {
	items := make([]models.LineItem, 0, len(r.LineItems))
	for _, item := range r.LineItems {
		if item == nil {
			continue
		}
		items = append(items, models.LineItem{
			ID:          item.ID,
			Description: item.Description,
			TotalPrice:  item.TotalPrice,
			Quantity:    item.Quantity,
		})
	}
	return &models.Receipt{
		GroupID:    r.GroupID,
		Title:      r.Title,
		Currency:   r.Currency,
		Subtotal:   r.Subtotal,
		Tax:        r.Tax,
		Tip:        r.Tip,
		ServiceFee: r.ServiceFee,
		Total:      r.Total,
		PayerID:    r.PayerID,
		LineItems:  items,
	}
}

func (s *LedgerService) toAPIDebts(debts []*models.Debt) []*ledgerapi.Debt {
	out := make([]*ledgerapi.Debt, len(debts))
	for i, d := range debts {
		out[i] = s.toAPIDebt(d)
	}
	return out
}

func (s *LedgerService) toAPIDebt(d *models.Debt) *ledgerapi.Debt {
	return &ledgerapi.Debt{
		ID:               d.ID,
		GroupID:          d.GroupID,
		ReceiptID:        d.ReceiptID,
		FromMember:       d.FromMember,
		ToMember:         d.ToMember,
		Amount:           d.Amount,
		Currency:         d.Currency,
		Formatted:        s.ledger.Format(d.Amount, d.Currency),
		Settled:          d.Settled,
		SettledAt:        d.SettledAt,
		SettlementReason: string(d.SettlementReason),
		CreatedAt:        d.CreatedAt,
	}
}

// fromAPIRates converts wire rates; nil means an empty set, which only
// supports same-currency conversion.
func fromAPIRates(r *ledgerapi.ExchangeRates) money.ExchangeRateSet {
	if r == nil {
		return money.ExchangeRateSet{}
	}
	return money.ExchangeRateSet{
		Base:      r.Base,
		Rates:     r.Rates,
		FetchedAt: r.FetchedAt,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

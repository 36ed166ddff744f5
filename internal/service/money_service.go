package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/pkg/ledgerapi"
)

// ConvertMoney converts an amount for display using caller-supplied rates.
func (s *LedgerService) ConvertMoney(ctx context.Context, req *connect.Request[ledgerapi.ConvertMoneyRequest]) (*connect.Response[ledgerapi.ConvertMoneyResponse], error) {
	slog.Debug("ConvertMoney request received",
		"amount", req.Msg.Amount,
		"from", req.Msg.From,
		"to", req.Msg.To,
	)

	from, err := money.NormalizeCode(req.Msg.From)
	if err != nil {
		return nil, connectError(err)
	}
	to, err := money.NormalizeCode(req.Msg.To)
	if err != nil {
		return nil, connectError(err)
	}

	converted, err := s.ledger.Convert(req.Msg.Amount, from, to, fromAPIRates(req.Msg.Rates))
	if err != nil {
		slog.Warn("ConvertMoney failed", "from", from, "to", to, "error", err)
		return nil, connectError(err)
	}

	return connect.NewResponse(&ledgerapi.ConvertMoneyResponse{
		Amount:    converted,
		Currency:  to,
		Formatted: s.ledger.Format(converted, to),
	}), nil
}

// FormatMoney renders an amount with the server's locale.
func (s *LedgerService) FormatMoney(ctx context.Context, req *connect.Request[ledgerapi.FormatMoneyRequest]) (*connect.Response[ledgerapi.FormatMoneyResponse], error) {
	code, err := money.NormalizeCode(req.Msg.Currency)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&ledgerapi.FormatMoneyResponse{
		Formatted: s.ledger.Format(req.Msg.Amount, code),
	}), nil
}

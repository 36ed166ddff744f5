package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/pkg/ledgerapi"
)

// CreateGroup creates a new group.
func (s *LedgerService) CreateGroup(ctx context.Context, req *connect.Request[ledgerapi.CreateGroupRequest]) (*connect.Response[ledgerapi.CreateGroupResponse], error) {
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	if req.Msg.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group name is required"))
	}

	group, err := s.ledger.CreateGroup(ctx, req.Msg.Name, req.Msg.Members)
	if err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, connectError(err)
	}

	slog.Info("Group created", "group_id", group.ID)
	return connect.NewResponse(&ledgerapi.CreateGroupResponse{
		Group: toAPIGroup(group),
	}), nil
}

// SimplifyGroupDebts collapses a group's unsettled debts. Currencies with
// nothing to simplify are left out of the response.
func (s *LedgerService) SimplifyGroupDebts(ctx context.Context, req *connect.Request[ledgerapi.SimplifyGroupDebtsRequest]) (*connect.Response[ledgerapi.SimplifyGroupDebtsResponse], error) {
	slog.Info("SimplifyGroupDebts request received",
		"group_id", req.Msg.GroupID,
		"currency", req.Msg.Currency,
	)

	var results []*ledger.Simplification
	if req.Msg.Currency == "" {
		all, err := s.ledger.SimplifyGroup(ctx, req.Msg.GroupID)
		if err != nil {
			slog.Error("SimplifyGroupDebts failed", "group_id", req.Msg.GroupID, "error", err)
			return nil, connectError(err)
		}
		results = all
	} else {
		if _, err := s.ledger.GetGroup(ctx, req.Msg.GroupID); err != nil {
			slog.Error("SimplifyGroupDebts failed", "group_id", req.Msg.GroupID, "error", err)
			return nil, connectError(err)
		}
		one, err := s.ledger.Simplify(ctx, req.Msg.GroupID, req.Msg.Currency)
		if err != nil {
			slog.Error("SimplifyGroupDebts failed", "group_id", req.Msg.GroupID, "error", err)
			return nil, connectError(err)
		}
		results = []*ledger.Simplification{one}
	}

	resp := &ledgerapi.SimplifyGroupDebtsResponse{}
	for _, res := range results {
		if res.NoOp {
			continue
		}
		resp.Results = append(resp.Results, &ledgerapi.Simplification{
			Currency:       res.Currency,
			RetiredDebtIDs: res.Retired,
			Debts:          s.toAPIDebts(res.Created),
		})
	}
	return connect.NewResponse(resp), nil
}

// GetGroupBalances returns each member's credit, debit and net per currency,
// optionally with net positions converted into a display currency.
func (s *LedgerService) GetGroupBalances(ctx context.Context, req *connect.Request[ledgerapi.GetGroupBalancesRequest]) (*connect.Response[ledgerapi.GetGroupBalancesResponse], error) {
	slog.Info("GetGroupBalances request received",
		"group_id", req.Msg.GroupID,
		"display_currency", req.Msg.DisplayCurrency,
	)

	balances, summary, err := s.ledger.Balances(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("GetGroupBalances failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connectError(err)
	}

	resp := &ledgerapi.GetGroupBalancesResponse{}
	for _, mb := range summary {
		b := &ledgerapi.MemberBalance{
			MemberID: mb.MemberID,
			Currency: mb.Currency,
			Credit:   mb.Credit,
			Debit:    mb.Debit,
			Net:      mb.Net,
		}
		if mb.Currency != "" {
			b.NetFormatted = s.ledger.Format(mb.Net, mb.Currency)
		}
		resp.Balances = append(resp.Balances, b)
	}

	if req.Msg.DisplayCurrency != "" {
		display, err := money.NormalizeCode(req.Msg.DisplayCurrency)
		if err != nil {
			return nil, connectError(err)
		}
		rates := fromAPIRates(req.Msg.Rates)

		resp.DisplayCurrency = display
		resp.DisplayTotals = make(map[string]int64, len(balances))
		resp.DisplayFormatted = make(map[string]string, len(balances))
		for _, member := range sortedKeys(balances) {
			var total int64
			for _, ccy := range sortedKeys(balances[member]) {
				converted, err := s.ledger.Convert(balances[member][ccy], ccy, display, rates)
				if err != nil {
					slog.Error("GetGroupBalances failed", "group_id", req.Msg.GroupID, "error", err)
					return nil, connectError(err)
				}
				total += converted
			}
			resp.DisplayTotals[member] = total
			resp.DisplayFormatted[member] = s.ledger.Format(total, display)
		}
	}

	return connect.NewResponse(resp), nil
}

// ListGroupDebts lists a group's debts, newest first.
func (s *LedgerService) ListGroupDebts(ctx context.Context, req *connect.Request[ledgerapi.ListGroupDebtsRequest]) (*connect.Response[ledgerapi.ListGroupDebtsResponse], error) {
	slog.Info("ListGroupDebts request received",
		"group_id", req.Msg.GroupID,
		"include_settled", req.Msg.IncludeSettled,
	)

	debts, err := s.ledger.Debts(ctx, req.Msg.GroupID, req.Msg.IncludeSettled)
	if err != nil {
		slog.Error("ListGroupDebts failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connectError(err)
	}

	return connect.NewResponse(&ledgerapi.ListGroupDebtsResponse{
		Debts: s.toAPIDebts(debts),
	}), nil
}

// SettleDebt records that a debt was paid.
func (s *LedgerService) SettleDebt(ctx context.Context, req *connect.Request[ledgerapi.SettleDebtRequest]) (*connect.Response[ledgerapi.SettleDebtResponse], error) {
	slog.Info("SettleDebt request received", "debt_id", req.Msg.DebtID)

	debt, err := s.ledger.SettleDebt(ctx, req.Msg.DebtID)
	if err != nil {
		slog.Error("SettleDebt failed", "debt_id", req.Msg.DebtID, "error", err)
		return nil, connectError(err)
	}

	return connect.NewResponse(&ledgerapi.SettleDebtResponse{
		Debt: s.toAPIDebt(debt),
	}), nil
}

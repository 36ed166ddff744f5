package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/ledgerapi"
)

// CreateReceipt records a confirmed receipt with its line items.
func (s *LedgerService) CreateReceipt(ctx context.Context, req *connect.Request[ledgerapi.CreateReceiptRequest]) (*connect.Response[ledgerapi.CreateReceiptResponse], error) {
	if req.Msg.Receipt == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("receipt is required"))
	}
	slog.Info("CreateReceipt request received",
		"group_id", req.Msg.Receipt.GroupID,
		"currency", req.Msg.Receipt.Currency,
		"items_count", len(req.Msg.Receipt.LineItems),
	)

	receipt := fromAPIReceipt(req.Msg.Receipt)
	if err := s.ledger.CreateReceipt(ctx, receipt); err != nil {
		slog.Error("CreateReceipt failed", "group_id", receipt.GroupID, "error", err)
		return nil, connectError(err)
	}

	slog.Info("Receipt created", "receipt_id", receipt.ID, "title", receipt.Title)
	return connect.NewResponse(&ledgerapi.CreateReceiptResponse{
		Receipt: toAPIReceipt(receipt),
	}), nil
}

// SetClaim records a member's portion of a line item and returns the
// receipt's re-derived shares and debts.
func (s *LedgerService) SetClaim(ctx context.Context, req *connect.Request[ledgerapi.SetClaimRequest]) (*connect.Response[ledgerapi.SetClaimResponse], error) {
	slog.Info("SetClaim request received",
		"receipt_id", req.Msg.ReceiptID,
		"line_item_id", req.Msg.LineItemID,
		"member_id", req.Msg.MemberID,
		"portion", req.Msg.Portion,
	)

	d, err := s.ledger.SetClaim(ctx, req.Msg.ReceiptID, models.Claim{
		LineItemID: req.Msg.LineItemID,
		MemberID:   req.Msg.MemberID,
		Portion:    req.Msg.Portion,
	})
	if err != nil {
		slog.Error("SetClaim failed", "receipt_id", req.Msg.ReceiptID, "error", err)
		return nil, connectError(err)
	}

	return connect.NewResponse(&ledgerapi.SetClaimResponse{
		Shares: d.Allocation.Shares,
		Debts:  s.toAPIDebts(d.Debts),
	}), nil
}

// DeleteClaim removes a member's claim and returns the receipt's re-derived
// shares and debts.
func (s *LedgerService) DeleteClaim(ctx context.Context, req *connect.Request[ledgerapi.DeleteClaimRequest]) (*connect.Response[ledgerapi.DeleteClaimResponse], error) {
	slog.Info("DeleteClaim request received",
		"receipt_id", req.Msg.ReceiptID,
		"line_item_id", req.Msg.LineItemID,
		"member_id", req.Msg.MemberID,
	)

	d, err := s.ledger.DeleteClaim(ctx, req.Msg.ReceiptID, req.Msg.LineItemID, req.Msg.MemberID)
	if err != nil {
		slog.Error("DeleteClaim failed", "receipt_id", req.Msg.ReceiptID, "error", err)
		return nil, connectError(err)
	}

	return connect.NewResponse(&ledgerapi.DeleteClaimResponse{
		Shares: d.Allocation.Shares,
		Debts:  s.toAPIDebts(d.Debts),
	}), nil
}

// AllocateShares previews member shares for a receipt without writing debts.
func (s *LedgerService) AllocateShares(ctx context.Context, req *connect.Request[ledgerapi.AllocateSharesRequest]) (*connect.Response[ledgerapi.AllocateSharesResponse], error) {
	slog.Info("AllocateShares request received", "receipt_id", req.Msg.ReceiptID)

	receipt, alloc, err := s.ledger.Allocate(ctx, req.Msg.ReceiptID)
	if err != nil {
		slog.Error("AllocateShares failed", "receipt_id", req.Msg.ReceiptID, "error", err)
		return nil, connectError(err)
	}

	formatted := make(map[string]string, len(alloc.Shares))
	for member, share := range alloc.Shares {
		formatted[member] = s.ledger.Format(share, receipt.Currency)
	}
	slog.Debug("Shares allocated",
		"receipt_id", receipt.ID,
		"claimed_total", alloc.ClaimedTotal,
		"sum", alloc.Sum(),
		"total", receipt.Total,
	)

	return connect.NewResponse(&ledgerapi.AllocateSharesResponse{
		Currency:        receipt.Currency,
		Subtotals:       alloc.Subtotals,
		Shares:          alloc.Shares,
		Formatted:       formatted,
		ClaimedTotal:    alloc.ClaimedTotal,
		Remainder:       alloc.Remainder,
		RemainderMember: alloc.RemainderMember,
	}), nil
}

// DeriveDebts recomputes and stores a receipt's debts from its current claims.
func (s *LedgerService) DeriveDebts(ctx context.Context, req *connect.Request[ledgerapi.DeriveDebtsRequest]) (*connect.Response[ledgerapi.DeriveDebtsResponse], error) {
	slog.Info("DeriveDebts request received", "receipt_id", req.Msg.ReceiptID)

	d, err := s.ledger.DeriveReceipt(ctx, req.Msg.ReceiptID)
	if err != nil {
		slog.Error("DeriveDebts failed", "receipt_id", req.Msg.ReceiptID, "error", err)
		return nil, connectError(err)
	}

	return connect.NewResponse(&ledgerapi.DeriveDebtsResponse{
		Debts: s.toAPIDebts(d.Debts),
	}), nil
}

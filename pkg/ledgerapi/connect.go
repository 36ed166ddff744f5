package ledgerapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// LedgerServiceName is the fully-qualified name of the service.
const LedgerServiceName = "splitledger.v1.LedgerService"

// Procedure paths, as mounted on the HTTP mux.
const (
	CreateGroupProcedure        = "/" + LedgerServiceName + "/CreateGroup"
	CreateReceiptProcedure      = "/" + LedgerServiceName + "/CreateReceipt"
	SetClaimProcedure           = "/" + LedgerServiceName + "/SetClaim"
	DeleteClaimProcedure        = "/" + LedgerServiceName + "/DeleteClaim"
	AllocateSharesProcedure     = "/" + LedgerServiceName + "/AllocateShares"
	DeriveDebtsProcedure        = "/" + LedgerServiceName + "/DeriveDebts"
	SimplifyGroupDebtsProcedure = "/" + LedgerServiceName + "/SimplifyGroupDebts"
	GetGroupBalancesProcedure   = "/" + LedgerServiceName + "/GetGroupBalances"
	ListGroupDebtsProcedure     = "/" + LedgerServiceName + "/ListGroupDebts"
	SettleDebtProcedure         = "/" + LedgerServiceName + "/SettleDebt"
	ConvertMoneyProcedure       = "/" + LedgerServiceName + "/ConvertMoney"
	FormatMoneyProcedure        = "/" + LedgerServiceName + "/FormatMoney"
)

// LedgerServiceHandler is implemented by the server.
type LedgerServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	CreateReceipt(context.Context, *connect.Request[CreateReceiptRequest]) (*connect.Response[CreateReceiptResponse], error)
	SetClaim(context.Context, *connect.Request[SetClaimRequest]) (*connect.Response[SetClaimResponse], error)
	DeleteClaim(context.Context, *connect.Request[DeleteClaimRequest]) (*connect.Response[DeleteClaimResponse], error)
	AllocateShares(context.Context, *connect.Request[AllocateSharesRequest]) (*connect.Response[AllocateSharesResponse], error)
	DeriveDebts(context.Context, *connect.Request[DeriveDebtsRequest]) (*connect.Response[DeriveDebtsResponse], error)
	SimplifyGroupDebts(context.Context, *connect.Request[SimplifyGroupDebtsRequest]) (*connect.Response[SimplifyGroupDebtsResponse], error)
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error)
	ListGroupDebts(context.Context, *connect.Request[ListGroupDebtsRequest]) (*connect.Response[ListGroupDebtsResponse], error)
	SettleDebt(context.Context, *connect.Request[SettleDebtRequest]) (*connect.Response[SettleDebtResponse], error)
	ConvertMoney(context.Context, *connect.Request[ConvertMoneyRequest]) (*connect.Response[ConvertMoneyResponse], error)
	FormatMoney(context.Context, *connect.Request[FormatMoneyRequest]) (*connect.Response[FormatMoneyResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler serving every procedure of
// svc. It returns the path to mount the handler on.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CreateGroupProcedure, connect.NewUnaryHandler(CreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(CreateReceiptProcedure, connect.NewUnaryHandler(CreateReceiptProcedure, svc.CreateReceipt, opts...))
	mux.Handle(SetClaimProcedure, connect.NewUnaryHandler(SetClaimProcedure, svc.SetClaim, opts...))
	mux.Handle(DeleteClaimProcedure, connect.NewUnaryHandler(DeleteClaimProcedure, svc.DeleteClaim, opts...))
	mux.Handle(AllocateSharesProcedure, connect.NewUnaryHandler(AllocateSharesProcedure, svc.AllocateShares, opts...))
	mux.Handle(DeriveDebtsProcedure, connect.NewUnaryHandler(DeriveDebtsProcedure, svc.DeriveDebts, opts...))
	mux.Handle(SimplifyGroupDebtsProcedure, connect.NewUnaryHandler(SimplifyGroupDebtsProcedure, svc.SimplifyGroupDebts, opts...))
	mux.Handle(GetGroupBalancesProcedure, connect.NewUnaryHandler(GetGroupBalancesProcedure, svc.GetGroupBalances, opts...))
	mux.Handle(ListGroupDebtsProcedure, connect.NewUnaryHandler(ListGroupDebtsProcedure, svc.ListGroupDebts, opts...))
	mux.Handle(SettleDebtProcedure, connect.NewUnaryHandler(SettleDebtProcedure, svc.SettleDebt, opts...))
	mux.Handle(ConvertMoneyProcedure, connect.NewUnaryHandler(ConvertMoneyProcedure, svc.ConvertMoney, opts...))
	mux.Handle(FormatMoneyProcedure, connect.NewUnaryHandler(FormatMoneyProcedure, svc.FormatMoney, opts...))

	return "/" + LedgerServiceName + "/", mux
}

// LedgerServiceClient calls a LedgerService over Connect.
type LedgerServiceClient struct {
	createGroup        *connect.Client[CreateGroupRequest, CreateGroupResponse]
	createReceipt      *connect.Client[CreateReceiptRequest, CreateReceiptResponse]
	setClaim           *connect.Client[SetClaimRequest, SetClaimResponse]
	deleteClaim        *connect.Client[DeleteClaimRequest, DeleteClaimResponse]
	allocateShares     *connect.Client[AllocateSharesRequest, AllocateSharesResponse]
	deriveDebts        *connect.Client[DeriveDebtsRequest, DeriveDebtsResponse]
	simplifyGroupDebts *connect.Client[SimplifyGroupDebtsRequest, SimplifyGroupDebtsResponse]
	getGroupBalances   *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
	listGroupDebts     *connect.Client[ListGroupDebtsRequest, ListGroupDebtsResponse]
	settleDebt         *connect.Client[SettleDebtRequest, SettleDebtResponse]
	convertMoney       *connect.Client[ConvertMoneyRequest, ConvertMoneyResponse]
	formatMoney        *connect.Client[FormatMoneyRequest, FormatMoneyResponse]
}

// NewLedgerServiceClient returns a client for the service at baseURL
// (e.g. "http://localhost:8080").
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &LedgerServiceClient{
		createGroup:        connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+CreateGroupProcedure, opts...),
		createReceipt:      connect.NewClient[CreateReceiptRequest, CreateReceiptResponse](httpClient, baseURL+CreateReceiptProcedure, opts...),
		setClaim:           connect.NewClient[SetClaimRequest, SetClaimResponse](httpClient, baseURL+SetClaimProcedure, opts...),
		deleteClaim:        connect.NewClient[DeleteClaimRequest, DeleteClaimResponse](httpClient, baseURL+DeleteClaimProcedure, opts...),
		allocateShares:     connect.NewClient[AllocateSharesRequest, AllocateSharesResponse](httpClient, baseURL+AllocateSharesProcedure, opts...),
		deriveDebts:        connect.NewClient[DeriveDebtsRequest, DeriveDebtsResponse](httpClient, baseURL+DeriveDebtsProcedure, opts...),
		simplifyGroupDebts: connect.NewClient[SimplifyGroupDebtsRequest, SimplifyGroupDebtsResponse](httpClient, baseURL+SimplifyGroupDebtsProcedure, opts...),
		getGroupBalances:   connect.NewClient[GetGroupBalancesRequest, GetGroupBalancesResponse](httpClient, baseURL+GetGroupBalancesProcedure, opts...),
		listGroupDebts:     connect.NewClient[ListGroupDebtsRequest, ListGroupDebtsResponse](httpClient, baseURL+ListGroupDebtsProcedure, opts...),
		settleDebt:         connect.NewClient[SettleDebtRequest, SettleDebtResponse](httpClient, baseURL+SettleDebtProcedure, opts...),
		convertMoney:       connect.NewClient[ConvertMoneyRequest, ConvertMoneyResponse](httpClient, baseURL+ConvertMoneyProcedure, opts...),
		formatMoney:        connect.NewClient[FormatMoneyRequest, FormatMoneyResponse](httpClient, baseURL+FormatMoneyProcedure, opts...),
	}
}

func (c *LedgerServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) CreateReceipt(ctx context.Context, req *connect.Request[CreateReceiptRequest]) (*connect.Response[CreateReceiptResponse], error) {
	return c.createReceipt.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) SetClaim(ctx context.Context, req *connect.Request[SetClaimRequest]) (*connect.Response[SetClaimResponse], error) {
	return c.setClaim.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) DeleteClaim(ctx context.Context, req *connect.Request[DeleteClaimRequest]) (*connect.Response[DeleteClaimResponse], error) {
	return c.deleteClaim.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) AllocateShares(ctx context.Context, req *connect.Request[AllocateSharesRequest]) (*connect.Response[AllocateSharesResponse], error) {
	return c.allocateShares.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) DeriveDebts(ctx context.Context, req *connect.Request[DeriveDebtsRequest]) (*connect.Response[DeriveDebtsResponse], error) {
	return c.deriveDebts.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) SimplifyGroupDebts(ctx context.Context, req *connect.Request[SimplifyGroupDebtsRequest]) (*connect.Response[SimplifyGroupDebtsResponse], error) {
	return c.simplifyGroupDebts.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListGroupDebts(ctx context.Context, req *connect.Request[ListGroupDebtsRequest]) (*connect.Response[ListGroupDebtsResponse], error) {
	return c.listGroupDebts.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) SettleDebt(ctx context.Context, req *connect.Request[SettleDebtRequest]) (*connect.Response[SettleDebtResponse], error) {
	return c.settleDebt.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ConvertMoney(ctx context.Context, req *connect.Request[ConvertMoneyRequest]) (*connect.Response[ConvertMoneyResponse], error) {
	return c.convertMoney.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) FormatMoney(ctx context.Context, req *connect.Request[FormatMoneyRequest]) (*connect.Response[FormatMoneyResponse], error) {
	return c.formatMoney.CallUnary(ctx, req)
}

// UnimplementedLedgerServiceHandler returns CodeUnimplemented from every method.
type UnimplementedLedgerServiceHandler struct{}

func unimplemented(procedure string) error {
	return connect.NewError(connect.CodeUnimplemented, errors.New(procedure+" is not implemented"))
}

func (UnimplementedLedgerServiceHandler) CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return nil, unimplemented(CreateGroupProcedure)
}

func (UnimplementedLedgerServiceHandler) CreateReceipt(context.Context, *connect.Request[CreateReceiptRequest]) (*connect.Response[CreateReceiptResponse], error) {
	return nil, unimplemented(CreateReceiptProcedure)
}

func (UnimplementedLedgerServiceHandler) SetClaim(context.Context, *connect.Request[SetClaimRequest]) (*connect.Response[SetClaimResponse], error) {
	return nil, unimplemented(SetClaimProcedure)
}

func (UnimplementedLedgerServiceHandler) DeleteClaim(context.Context, *connect.Request[DeleteClaimRequest]) (*connect.Response[DeleteClaimResponse], error) {
	return nil, unimplemented(DeleteClaimProcedure)
}

func (UnimplementedLedgerServiceHandler) AllocateShares(context.Context, *connect.Request[AllocateSharesRequest]) (*connect.Response[AllocateSharesResponse], error) {
	return nil, unimplemented(AllocateSharesProcedure)
}

func (UnimplementedLedgerServiceHandler) DeriveDebts(context.Context, *connect.Request[DeriveDebtsRequest]) (*connect.Response[DeriveDebtsResponse], error) {
	return nil, unimplemented(DeriveDebtsProcedure)
}

func (UnimplementedLedgerServiceHandler) SimplifyGroupDebts(context.Context, *connect.Request[SimplifyGroupDebtsRequest]) (*connect.Response[SimplifyGroupDebtsResponse], error) {
	return nil, unimplemented(SimplifyGroupDebtsProcedure)
}

func (UnimplementedLedgerServiceHandler) GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return nil, unimplemented(GetGroupBalancesProcedure)
}

func (UnimplementedLedgerServiceHandler) ListGroupDebts(context.Context, *connect.Request[ListGroupDebtsRequest]) (*connect.Response[ListGroupDebtsResponse], error) {
	return nil, unimplemented(ListGroupDebtsProcedure)
}

func (UnimplementedLedgerServiceHandler) SettleDebt(context.Context, *connect.Request[SettleDebtRequest]) (*connect.Response[SettleDebtResponse], error) {
	return nil, unimplemented(SettleDebtProcedure)
}

func (UnimplementedLedgerServiceHandler) ConvertMoney(context.Context, *connect.Request[ConvertMoneyRequest]) (*connect.Response[ConvertMoneyResponse], error) {
	return nil, unimplemented(ConvertMoneyProcedure)
}

func (UnimplementedLedgerServiceHandler) FormatMoney(context.Context, *connect.Request[FormatMoneyRequest]) (*connect.Response[FormatMoneyResponse], error) {
	return nil, unimplemented(FormatMoneyProcedure)
}

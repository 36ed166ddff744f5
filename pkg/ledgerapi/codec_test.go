package ledgerapi

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestCodec_PlainMessages(t *testing.T) {
	codec := Codec{}
	req := &GetGroupBalancesRequest{
		GroupID:         "g1",
		DisplayCurrency: "EUR",
		Rates: &ExchangeRates{
			Base:      "USD",
			Rates:     map[string]decimal.Decimal{"EUR": decimal.RequireFromString("0.9")},
			FetchedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	data, err := codec.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, key := range []string{`"groupId":"g1"`, `"displayCurrency":"EUR"`, `"EUR":"0.9"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("encoded %s missing %s", data, key)
		}
	}

	var got GetGroupBalancesRequest
	if err := codec.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.GroupID != "g1" || !got.Rates.Rates["EUR"].Equal(decimal.RequireFromString("0.9")) {
		t.Errorf("decoded %+v", got)
	}
}

func TestCodec_EmptyBodyIsZeroMessage(t *testing.T) {
	var req ListGroupDebtsRequest
	if err := (Codec{}).Unmarshal(nil, &req); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if req.GroupID != "" || req.IncludeSettled {
		t.Errorf("expected zero message, got %+v", req)
	}
}

func TestCodec_ProtoMessages(t *testing.T) {
	codec := Codec{}

	data, err := codec.Marshal(wrapperspb.Int64(4400))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	// protojson writes int64 as a string
	if strings.TrimSpace(string(data)) != `"4400"` {
		t.Errorf("encoded %s, want \"4400\"", data)
	}

	got := &wrapperspb.Int64Value{}
	if err := codec.Unmarshal(data, got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.GetValue() != 4400 {
		t.Errorf("decoded %d, want 4400", got.GetValue())
	}
}

func TestCodec_InvalidJSON(t *testing.T) {
	var req FormatMoneyRequest
	if err := (Codec{}).Unmarshal([]byte("{"), &req); err == nil {
		t.Error("expected error for truncated body")
	}
}

package models

// SettlementReason records why a debt stopped being outstanding.
type SettlementReason string

const (
	// ReasonPayment means a member confirmed a real-world payment.
	ReasonPayment SettlementReason = "payment"

	// ReasonSimplified means the netting engine retired the debt and
	// replaced it with an equivalent simplified debt. No money moved.
	ReasonSimplified SettlementReason = "simplified"
)

// Debt is a directed amount one member owes another in one currency.
// FromMember never equals ToMember and Amount is always positive.
type Debt struct {
	// ID is the unique identifier for the debt (UUID format).
	ID string

	// GroupID is the group the debt belongs to.
	GroupID string

	// ReceiptID is the receipt the debt was derived from. Empty for debts
	// created by simplification.
	ReceiptID string

	// FromMember owes Amount to ToMember.
	FromMember string
	ToMember   string

	// Amount is in minor units of Currency.
	Amount   int64
	Currency string

	// Settled is set once the debt is no longer outstanding. A settled debt
	// is immutable except for Settled, SettledAt and SettlementReason.
	Settled          bool
	SettledAt        int64
	SettlementReason SettlementReason

	// CreatedAt is the Unix timestamp when the debt was recorded.
	CreatedAt int64
}

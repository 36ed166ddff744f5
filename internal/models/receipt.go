package models

// Receipt is a confirmed purchase paid by one member of a group.
type Receipt struct {
	// ID is the unique identifier for the receipt (UUID format).
	ID string

	// GroupID is the group the receipt is shared in.
	GroupID string

	// Title is a free-form label ("Dinner at Lua", "Groceries").
	Title string

	// Currency is the ISO 4217 code every amount on the receipt is in.
	// Debts derived from the receipt are always in this currency.
	Currency string

	// Subtotal is the sum of line items before fees.
	Subtotal int64

	Tax        int64
	Tip        int64
	ServiceFee int64

	// Total is what the payer actually paid. Expected to equal
	// Subtotal+Tax+Tip+ServiceFee, but receipts where it doesn't are
	// tolerated rather than rejected.
	Total int64

	// PayerID is the member who paid the receipt.
	PayerID string

	// LineItems are the individual items on the receipt.
	LineItems []LineItem

	// CreatedAt is the Unix timestamp when the receipt was recorded.
	CreatedAt int64
}

// FeesBalance reports whether Total equals Subtotal plus all fees.
func (r *Receipt) FeesBalance() bool {
	return r.Total == r.Subtotal+r.Tax+r.Tip+r.ServiceFee
}

// LineItem is a single priced line on a receipt.
type LineItem struct {
	// ID is the unique identifier for the item (UUID format).
	ID string

	// ReceiptID is the receipt this item belongs to.
	ReceiptID string

	// Description is the item name as printed ("Pad thai", "2x Beer").
	Description string

	// TotalPrice is the price of the whole line, all units included.
	TotalPrice int64

	// Quantity is informational; TotalPrice already covers every unit.
	Quantity int
}

// Claim is a member's weighted interest in a line item. Several members may
// claim the same item; each pays TotalPrice * Portion / sum of all portions.
type Claim struct {
	LineItemID string
	MemberID   string

	// Portion is a positive weight. Equal portions split the item evenly.
	Portion float64
}

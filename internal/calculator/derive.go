package calculator

import (
	"fmt"
	"sort"

	"github.com/mmynk/splitledger/internal/models"
)

// DeriveDebts turns a receipt's member shares into debts owed to the payer.
//
// Every member with a positive share other than the payer owes their share
// to the payer, in the receipt currency. The payer's own share is netted out
// and never appears as a debt. Debts are returned ordered by member ID and
// carry no ID or timestamp; the store assigns those on insert.
func DeriveDebts(receipt *models.Receipt, shares map[string]int64) ([]*models.Debt, error) {
	if receipt.PayerID == "" {
		return nil, fmt.Errorf("%w: receipt %s has no payer", ErrInvalidReceipt, receipt.ID)
	}

	members := make([]string, 0, len(shares))
	for m := range shares {
		members = append(members, m)
	}
	sort.Strings(members)

	var debts []*models.Debt
	for _, m := range members {
		amount := shares[m]
		if amount <= 0 || m == receipt.PayerID {
			continue
		}
		debts = append(debts, &models.Debt{
			GroupID:    receipt.GroupID,
			ReceiptID:  receipt.ID,
			FromMember: m,
			ToMember:   receipt.PayerID,
			Amount:     amount,
			Currency:   receipt.Currency,
		})
	}
	return debts, nil
}

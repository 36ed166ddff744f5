package calculator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// RemainderPolicy decides who absorbs the rounding drift between the sum of
// member shares and the receipt total.
type RemainderPolicy string

const (
	// RemainderNone leaves the drift in place. Shares may differ from the
	// total by a few minor units.
	RemainderNone RemainderPolicy = "none"

	// RemainderToPayer adds the drift to the payer's share.
	RemainderToPayer RemainderPolicy = "payer"

	// RemainderToLargestClaimant adds the drift to the member with the
	// largest pre-fee subtotal (lowest member ID on ties).
	RemainderToLargestClaimant RemainderPolicy = "largest_claimant"
)

// ParseRemainderPolicy parses a policy name; the empty string means RemainderNone.
func ParseRemainderPolicy(s string) (RemainderPolicy, error) {
	switch RemainderPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", RemainderNone:
		return RemainderNone, nil
	case RemainderToPayer:
		return RemainderToPayer, nil
	case RemainderToLargestClaimant:
		return RemainderToLargestClaimant, nil
	}
	return "", fmt.Errorf("unknown remainder policy %q", s)
}

// Allocation is the result of allocating one receipt.
type Allocation struct {
	// Subtotals is each claimant's share of claimed items before fees.
	Subtotals map[string]int64

	// Shares is each claimant's share including proportional fees.
	Shares map[string]int64

	// ClaimedTotal is the summed price of every item with at least one claim.
	ClaimedTotal int64

	// Remainder is what the remainder policy added to RemainderMember's
	// share. Zero under RemainderNone.
	Remainder       int64
	RemainderMember string
}

// Sum returns the sum of all member shares.
func (a *Allocation) Sum() int64 {
	var sum int64
	for _, s := range a.Shares {
		sum += s
	}
	return sum
}

// Allocator turns claims into member shares.
type Allocator struct {
	Remainder RemainderPolicy
}

// AllocateShares allocates a receipt with the source behavior: no remainder
// correction.
func AllocateShares(receipt *models.Receipt, items []models.LineItem, claims []models.Claim) (map[string]int64, error) {
	alloc, err := Allocator{Remainder: RemainderNone}.Allocate(receipt, items, claims)
	if err != nil {
		return nil, err
	}
	return alloc.Shares, nil
}

// Allocate computes each claimant's share of a receipt.
//
// Algorithm, per member m:
//   - item share = round(price * portion(m) / sum of portions on the item)
//   - subtotal(m) = sum of m's item shares
//   - share(m) = round(subtotal(m) * total / subtotal)
//
// Every step rounds half away from zero. Items nobody claimed contribute
// nothing. Claims on items that aren't in items are ignored.
func (a Allocator) Allocate(receipt *models.Receipt, items []models.LineItem, claims []models.Claim) (*Allocation, error) {
	if receipt.Subtotal <= 0 {
		return nil, fmt.Errorf("%w: subtotal must be positive, got %d", ErrInvalidReceipt, receipt.Subtotal)
	}
	if receipt.Total <= 0 {
		return nil, fmt.Errorf("%w: total must be positive, got %d", ErrInvalidReceipt, receipt.Total)
	}

	// portions[itemID][memberID]
	portions := make(map[string]map[string]float64, len(items))
	for _, item := range items {
		portions[item.ID] = nil
	}
	for _, c := range claims {
		if math.IsNaN(c.Portion) || math.IsInf(c.Portion, 0) || c.Portion <= 0 {
			return nil, fmt.Errorf("%w: portion %v for member %s on item %s", ErrInvalidClaim, c.Portion, c.MemberID, c.LineItemID)
		}
		byMember, known := portions[c.LineItemID]
		if !known {
			continue
		}
		if byMember == nil {
			byMember = make(map[string]float64)
			portions[c.LineItemID] = byMember
		}
		byMember[c.MemberID] += c.Portion
	}

	alloc := &Allocation{
		Subtotals: make(map[string]int64),
		Shares:    make(map[string]int64),
	}

	for _, item := range items {
		byMember := portions[item.ID]
		if len(byMember) == 0 {
			continue
		}

		sum := decimal.Zero
		for _, p := range byMember {
			sum = sum.Add(decimal.NewFromFloat(p))
		}

		price := decimal.NewFromInt(item.TotalPrice)
		for member, p := range byMember {
			share := price.Mul(decimal.NewFromFloat(p)).Div(sum).Round(0).IntPart()
			alloc.Subtotals[member] += share
		}
		alloc.ClaimedTotal += item.TotalPrice
	}

	for member, sub := range alloc.Subtotals {
		alloc.Shares[member] = applyFees(sub, receipt)
	}

	if a.Remainder != "" && a.Remainder != RemainderNone {
		a.absorbRemainder(alloc, receipt)
	}

	return alloc, nil
}

// applyFees scales a pre-fee subtotal by total/subtotal.
func applyFees(sub int64, receipt *models.Receipt) int64 {
	return decimal.NewFromInt(sub).
		Mul(decimal.NewFromInt(receipt.Total)).
		Div(decimal.NewFromInt(receipt.Subtotal)).
		Round(0).
		IntPart()
}

// absorbRemainder assigns the rounding drift to one member so that shares
// sum exactly to the fee-scaled value of the claimed items.
func (a Allocator) absorbRemainder(alloc *Allocation, receipt *models.Receipt) {
	if len(alloc.Shares) == 0 {
		return
	}
	remainder := applyFees(alloc.ClaimedTotal, receipt) - alloc.Sum()
	if remainder == 0 {
		return
	}

	largest := largestClaimant(alloc.Subtotals)
	target := largest
	if a.Remainder == RemainderToPayer && receipt.PayerID != "" {
		target = receipt.PayerID
	}
	// never push a share below zero; the largest claimant can always absorb it
	if alloc.Shares[target]+remainder < 0 {
		target = largest
	}

	alloc.Shares[target] += remainder
	alloc.Remainder = remainder
	alloc.RemainderMember = target
}

func largestClaimant(subtotals map[string]int64) string {
	members := make([]string, 0, len(subtotals))
	for m := range subtotals {
		members = append(members, m)
	}
	sort.Strings(members)

	best := ""
	for _, m := range members {
		if best == "" || subtotals[m] > subtotals[best] {
			best = m
		}
	}
	return best
}

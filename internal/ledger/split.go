package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Split and payment methods recorded on a transaction.
const (
	WayEqual        = "Equal"
	WayUnEqual      = "UnEqual"
	WayByPercentage = "ByPercentage"
)

// ValidWay reports whether a paid/split method tag is one we store.
func ValidWay(way string) bool {
	return way == WayEqual || way == WayUnEqual || way == WayByPercentage
}

// EqualShares divides amount evenly among members. The division runs in
// decimal and rounds down; the leftover minor units are handed out one each
// to members in sorted ID order so the shares always total exactly amount.
func EqualShares(amount int64, members []string) (map[string]int64, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: no members to split among", ErrInvalidTransaction)
	}
	count := decimal.NewFromInt(int64(len(members)))
	base := decimal.NewFromInt(amount).Div(count).Floor().IntPart()
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	shares := make(map[string]int64, len(sorted))
	remainder := amount - base*int64(len(sorted))
	for _, member := range sorted {
		share := base
		if remainder > 0 {
			share++
			remainder--
		}
		shares[member] = share
	}
	return shares, nil
}

// PercentageShares converts member percentages into minor-unit shares of
// amount using banker's rounding, then pushes any rounding residue onto the
// largest share so the result totals exactly amount. Percentages must sum
// to 100.
func PercentageShares(amount int64, percents map[string]string) (map[string]int64, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	}
	if len(percents) == 0 {
		return nil, fmt.Errorf("%w: no percentages given", ErrInvalidTransaction)
	}
	hundred := decimal.NewFromInt(100)
	total := decimal.Zero
	parsed := make(map[string]decimal.Decimal, len(percents))
	for member, raw := range percents {
		pct, err := decimal.NewFromString(raw)
		if err != nil || pct.IsNegative() {
			return nil, fmt.Errorf("%w: invalid percentage for %s", ErrInvalidTransaction, member)
		}
		parsed[member] = pct
		total = total.Add(pct)
	}
	if !total.Equal(hundred) {
		return nil, fmt.Errorf("%w: percentages sum to %s, want 100", ErrInvalidTransaction, total)
	}
	amountDec := decimal.NewFromInt(amount)
	shares := make(map[string]int64, len(parsed))
	var assigned int64
	largest := ""
	for member, pct := range parsed {
		share := amountDec.Mul(pct).Div(hundred).RoundBank(0).IntPart()
		shares[member] = share
		assigned += share
		if largest == "" || shares[member] > shares[largest] ||
			(shares[member] == shares[largest] && member < largest) {
			largest = member
		}
	}
	shares[largest] += amount - assigned
	if shares[largest] < 0 {
		return nil, fmt.Errorf("%w: rounding produced a negative share", ErrInvalidTransaction)
	}
	return shares, nil
}

// Package ledger holds the balance reconciliation core: pure functions that
// move a group's per-member running balances when a transaction is applied or
// reverted. The balances map doubles as the set of current members; its keys
// are member user IDs and its values are minor units.
package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// SumTolerance is how far the paid (and split) total may drift from the
// transaction amount, in minor units. Percentage and unequal splits can lose
// or gain one minor unit to rounding; anything beyond that is a client bug.
const SumTolerance = 1

// Amounts carries the two parallel maps of one transaction: who contributed
// money and who owes a share, both keyed by member user ID in minor units.
type Amounts struct {
	Paid  map[string]int64
	Split map[string]int64
}

// Sum totals one side of an amounts map.
func Sum(values map[string]int64) int64 {
	var total int64
	for _, value := range values {
		total += value
	}
	return total
}

// Validate checks a transaction's amounts against the current member set.
// Every referenced member must be a key of balances, the amount must be
// positive, paid and split totals must agree exactly (the zero-sum invariant
// depends on it), and each total may differ from amount by at most
// SumTolerance minor units.
func Validate(balances map[string]int64, amount int64, a Amounts) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	}
	if len(a.Paid) == 0 || len(a.Split) == 0 {
		return fmt.Errorf("%w: paid and split amounts are required", ErrInvalidTransaction)
	}
	for member := range a.Paid {
		if _, ok := balances[member]; !ok {
			return fmt.Errorf("%w: payer %s is not a group member", ErrInvalidTransaction, member)
		}
	}
	for member := range a.Split {
		if _, ok := balances[member]; !ok {
			return fmt.Errorf("%w: participant %s is not a group member", ErrInvalidTransaction, member)
		}
	}
	paidSum := Sum(a.Paid)
	splitSum := Sum(a.Split)
	if paidSum != splitSum {
		return fmt.Errorf("%w: paid total %d does not match split total %d", ErrInvalidTransaction, paidSum, splitSum)
	}
	if diff := paidSum - amount; diff > SumTolerance || diff < -SumTolerance {
		return fmt.Errorf("%w: paid total %d does not match amount %d", ErrInvalidTransaction, paidSum, amount)
	}
	return nil
}

// Apply credits each payer and debits each split participant. Because paid
// and split totals are equal, the sum of all balances is unchanged: a
// zero-sum ledger stays zero-sum.
func Apply(balances map[string]int64, amount int64, a Amounts) error {
	if err := Validate(balances, amount, a); err != nil {
		return err
	}
	for member, value := range a.Paid {
		balances[member] += value
	}
	for member, value := range a.Split {
		balances[member] -= value
	}
	return nil
}

// Revert is the exact inverse of Apply. It runs the same validation so that
// a revert against a corrupted member set fails loudly instead of leaving
// balances half-moved.
func Revert(balances map[string]int64, amount int64, a Amounts) error {
	if err := Validate(balances, amount, a); err != nil {
		return err
	}
	for member, value := range a.Paid {
		balances[member] -= value
	}
	for member, value := range a.Split {
		balances[member] += value
	}
	return nil
}

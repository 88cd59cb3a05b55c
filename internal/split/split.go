// split.go
//
// Shared expenses, shopping lists and workout cards backend
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of gestionale.
// gestionale is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// gestionale is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with gestionale.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package split turns an expense and its division policy into per-participant owed
// amounts and aggregates a group's expenses into net balances.
//
// All money is handled as shopspring decimals rounded to cents with banker's rounding.
// Shares of a single expense always reconcile to the rounded expense total.
package split

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Policy is the rule used to divide an expense across its participants
type Policy string

// Division policies
const (
	Equal        Policy = "Equal"
	ExactAmounts Policy = "ExactAmounts"
	Percentage   Policy = "Percentage"
)

var (
	ErrNoParticipants = errors.New("expense has no participants")
	ErrUnknownPolicy  = errors.New("unknown division policy")
	ErrInvalidSplit   = errors.New("invalid split")
)

var (
	hundred   = decimal.NewFromInt(100)
	tolerance = decimal.New(1, -2)
)

// MaxAmount is the exclusive upper bound for an expense or participant amount; stored
// columns are decimal(12,2).
var MaxAmount = decimal.New(1, 10)

// Participant is one user's row on an expense. Amount is read under ExactAmounts,
// Percentage under Percentage; both may be nil.
type Participant struct {
	UserID     uint64
	Amount     *decimal.Decimal
	Percentage *decimal.Decimal
}

// Expense is the engine's view of a stored expense
type Expense struct {
	ID           uint64
	Amount       decimal.Decimal
	Policy       Policy
	PaidBy       uint64
	Participants []Participant
}

// Share is the amount a participant owes for one expense
type Share struct {
	UserID uint64
	Owed   decimal.Decimal
}

// Balance is a member's position across a group's expenses
type Balance struct {
	UserID    uint64
	TotalPaid decimal.Decimal
	TotalOwed decimal.Decimal
	Net       decimal.Decimal
}

// Round applies the engine's rounding rule: banker's rounding to cents.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// ParsePolicy accepts the canonical policy names and the legacy Italian labels.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equal", "uguale":
		return Equal, nil
	case "exactamounts", "exact_amounts", "importi esatti":
		return ExactAmounts, nil
	case "percentage", "percentuale":
		return Percentage, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Shares computes the owed share of every participant, in participant order.
//
// Equal splits distribute the leftover cents one at a time to the first participants.
// Percentage splits give the rounding residual to the last participant holding a
// percentage so the shares add up to the rounded percentage total.
func Shares(e Expense) ([]Share, error) {
	amount := Round(e.Amount)
	shares := make([]Share, len(e.Participants))

	switch e.Policy {
	case Equal:
		n := int64(len(e.Participants))
		if n == 0 {
			return nil, ErrNoParticipants
		}
		cents := amount.Shift(2)
		base, rem := cents.QuoRem(decimal.NewFromInt(n), 0)
		extra := rem.IntPart()
		one := decimal.New(1, 0)
		for i, p := range e.Participants {
			c := base
			switch {
			case extra > 0 && int64(i) < extra:
				c = c.Add(one)
			case extra < 0 && int64(i) < -extra:
				c = c.Sub(one)
			}
			shares[i] = Share{UserID: p.UserID, Owed: c.Shift(-2)}
		}

	case ExactAmounts:
		for i, p := range e.Participants {
			owed := decimal.Zero
			if p.Amount != nil {
				owed = Round(*p.Amount)
			}
			shares[i] = Share{UserID: p.UserID, Owed: owed}
		}

	case Percentage:
		total := decimal.Zero
		pctSum := decimal.Zero
		last := -1
		for i, p := range e.Participants {
			owed := decimal.Zero
			if p.Percentage != nil {
				owed = Round(amount.Mul(*p.Percentage).Div(hundred))
				pctSum = pctSum.Add(*p.Percentage)
				last = i
			}
			shares[i] = Share{UserID: p.UserID, Owed: owed}
			total = total.Add(owed)
		}
		if last >= 0 {
			target := Round(amount.Mul(pctSum).Div(hundred))
			if diff := target.Sub(total); !diff.IsZero() {
				shares[last].Owed = shares[last].Owed.Add(diff)
			}
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, e.Policy)
	}

	return shares, nil
}

// OwedShare returns what userID owes for the expense. A user who is not a participant owes zero.
func OwedShare(e Expense, userID uint64) (decimal.Decimal, error) {
	shares, err := Shares(e)
	if err != nil {
		return decimal.Zero, err
	}
	owed := decimal.Zero
	for _, s := range shares {
		if s.UserID == userID {
			owed = owed.Add(s.Owed)
		}
	}
	return owed, nil
}

// GroupBalances aggregates paid and owed amounts for every member, returned in
// memberIDs order. Payers and participants outside memberIDs are not reported.
// An expense with no participants still counts toward its payer's TotalPaid.
func GroupBalances(memberIDs []uint64, expenses []Expense) ([]Balance, error) {
	balances := make([]Balance, len(memberIDs))
	index := make(map[uint64]int, len(memberIDs))
	for i, id := range memberIDs {
		balances[i] = Balance{UserID: id, TotalPaid: decimal.Zero, TotalOwed: decimal.Zero, Net: decimal.Zero}
		if _, dup := index[id]; !dup {
			index[id] = i
		}
	}

	for _, e := range expenses {
		if i, ok := index[e.PaidBy]; ok {
			balances[i].TotalPaid = balances[i].TotalPaid.Add(Round(e.Amount))
		}

		shares, err := Shares(e)
		if errors.Is(err, ErrNoParticipants) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", e.ID, err)
		}
		for _, s := range shares {
			if i, ok := index[s.UserID]; ok {
				balances[i].TotalOwed = balances[i].TotalOwed.Add(s.Owed)
			}
		}
	}

	for i := range balances {
		balances[i].Net = balances[i].TotalPaid.Sub(balances[i].TotalOwed)
	}
	return balances, nil
}

// Validate checks an expense before it is stored: positive amount below MaxAmount, a known policy, at
// least one participant, no duplicate participants, and participant values that
// reconcile with the amount (ExactAmounts) or with 100 (Percentage) within one cent.
func Validate(e Expense) error {
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidSplit)
	}
	if !e.Amount.LessThan(MaxAmount) {
		return fmt.Errorf("%w: amount must be less than %s", ErrInvalidSplit, MaxAmount.String())
	}
	if len(e.Participants) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSplit, ErrNoParticipants)
	}

	seen := make(map[uint64]struct{}, len(e.Participants))
	for _, p := range e.Participants {
		if _, dup := seen[p.UserID]; dup {
			return fmt.Errorf("%w: user %d appears more than once", ErrInvalidSplit, p.UserID)
		}
		seen[p.UserID] = struct{}{}
	}

	switch e.Policy {
	case Equal:
		return nil

	case ExactAmounts:
		sum := decimal.Zero
		for _, p := range e.Participants {
			if p.Amount == nil {
				return fmt.Errorf("%w: user %d has no amount", ErrInvalidSplit, p.UserID)
			}
			if p.Amount.IsNegative() {
				return fmt.Errorf("%w: user %d has a negative amount", ErrInvalidSplit, p.UserID)
			}
			if !p.Amount.LessThan(MaxAmount) {
				return fmt.Errorf("%w: user %d amount must be less than %s", ErrInvalidSplit, p.UserID, MaxAmount.String())
			}
			sum = sum.Add(*p.Amount)
		}
		if sum.Sub(e.Amount).Abs().GreaterThan(tolerance) {
			return fmt.Errorf("%w: amounts add up to %s, expected %s", ErrInvalidSplit, sum.StringFixed(2), e.Amount.StringFixed(2))
		}
		return nil

	case Percentage:
		sum := decimal.Zero
		for _, p := range e.Participants {
			if p.Percentage == nil {
				return fmt.Errorf("%w: user %d has no percentage", ErrInvalidSplit, p.UserID)
			}
			if p.Percentage.IsNegative() || p.Percentage.GreaterThan(hundred) {
				return fmt.Errorf("%w: user %d percentage out of range", ErrInvalidSplit, p.UserID)
			}
			sum = sum.Add(*p.Percentage)
		}
		if sum.Sub(hundred).Abs().GreaterThan(tolerance) {
			return fmt.Errorf("%w: percentages add up to %s, expected 100", ErrInvalidSplit, sum.String())
		}
		return nil
	}

	return fmt.Errorf("%w: %q", ErrUnknownPolicy, e.Policy)
}

package split

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func participants(ids ...uint64) []Participant {
	ps := make([]Participant, len(ids))
	for i, id := range ids {
		ps[i] = Participant{UserID: id}
	}
	return ps
}

func sumShares(shares []Share) decimal.Decimal {
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(s.Owed)
	}
	return total
}

func TestSharesEqualReconciles(t *testing.T) {
	amounts := []string{"0.01", "1", "10", "33.33", "99.99", "100", "100.01", "1234.56", "0.07"}

	for _, amount := range amounts {
		for n := 1; n <= 12; n++ {
			t.Run(fmt.Sprintf("%s/%d", amount, n), func(t *testing.T) {
				ids := make([]uint64, n)
				for i := range ids {
					ids[i] = uint64(i + 1)
				}
				e := Expense{Amount: d(amount), Policy: Equal, Participants: participants(ids...)}

				shares, err := Shares(e)
				if err != nil {
					t.Fatalf("Shares() error: %v", err)
				}
				if len(shares) != n {
					t.Fatalf("expected %d shares, got %d", n, len(shares))
				}
				if got := sumShares(shares); !got.Equal(d(amount)) {
					t.Errorf("shares add up to %s, expected %s", got, amount)
				}

				// no two shares differ by more than one cent
				lo, hi := shares[0].Owed, shares[0].Owed
				for _, s := range shares {
					if s.Owed.LessThan(lo) {
						lo = s.Owed
					}
					if s.Owed.GreaterThan(hi) {
						hi = s.Owed
					}
				}
				if hi.Sub(lo).GreaterThan(d("0.01")) {
					t.Errorf("shares spread %s..%s exceeds one cent", lo, hi)
				}
			})
		}
	}
}

func TestSharesEqualNoParticipants(t *testing.T) {
	_, err := Shares(Expense{Amount: d("10"), Policy: Equal})
	if !errors.Is(err, ErrNoParticipants) {
		t.Errorf("expected ErrNoParticipants, got %v", err)
	}
}

func TestSharesEqualLargeAmounts(t *testing.T) {
	for _, amount := range []string{"9999999999.99", "100000000000000000000", "92233720368547758.09"} {
		for _, n := range []int{2, 3, 7} {
			t.Run(fmt.Sprintf("%s/%d", amount, n), func(t *testing.T) {
				ids := make([]uint64, n)
				for i := range ids {
					ids[i] = uint64(i + 1)
				}
				shares, err := Shares(Expense{Amount: d(amount), Policy: Equal, Participants: participants(ids...)})
				if err != nil {
					t.Fatalf("Shares() error: %v", err)
				}
				if got := sumShares(shares); !got.Equal(d(amount)) {
					t.Errorf("shares add up to %s, expected %s", got, amount)
				}
				for _, s := range shares {
					if s.Owed.IsNegative() {
						t.Errorf("negative share %s for user %d", s.Owed, s.UserID)
					}
				}
			})
		}
	}
}

func TestSharesPercentageResidualSkipsMissingPercentage(t *testing.T) {
	e := Expense{Amount: d("10"), Policy: Percentage, Participants: []Participant{
		{UserID: 1, Percentage: dp("33.333")},
		{UserID: 2, Percentage: dp("33.333")},
		{UserID: 3},
	}}

	shares, err := Shares(e)
	if err != nil {
		t.Fatalf("Shares() error: %v", err)
	}
	if !shares[2].Owed.IsZero() {
		t.Errorf("participant without a percentage owes %s, expected 0", shares[2].Owed)
	}
	want := Round(d("10").Mul(d("66.666")).Div(d("100")))
	if got := sumShares(shares); !got.Equal(want) {
		t.Errorf("shares add up to %s, expected %s", got, want)
	}
}

func TestSharesPercentageReconciles(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		pcts   []string
	}{
		{"thirty seventy", "90", []string{"30", "70"}},
		{"thirds", "100", []string{"33.33", "33.33", "33.34"}},
		{"odd cents", "10.01", []string{"50", "50"}},
		{"many", "77.77", []string{"10", "20", "30", "15", "25"}},
		{"single", "12.34", []string{"100"}},
		{"uneven thirds", "0.10", []string{"33.34", "33.33", "33.33"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := make([]Participant, len(tt.pcts))
			for i, p := range tt.pcts {
				ps[i] = Participant{UserID: uint64(i + 1), Percentage: dp(p)}
			}
			e := Expense{Amount: d(tt.amount), Policy: Percentage, Participants: ps}

			if err := Validate(e); err != nil {
				t.Fatalf("Validate() error: %v", err)
			}
			shares, err := Shares(e)
			if err != nil {
				t.Fatalf("Shares() error: %v", err)
			}
			if got := sumShares(shares); !got.Equal(d(tt.amount)) {
				t.Errorf("shares add up to %s, expected %s", got, tt.amount)
			}
		})
	}
}

func TestOwedShare(t *testing.T) {
	tests := []struct {
		name    string
		expense Expense
		user    uint64
		want    string
	}{
		{
			name:    "equal",
			expense: Expense{Amount: d("100"), Policy: Equal, Participants: participants(1, 2)},
			user:    2,
			want:    "50",
		},
		{
			name: "exact",
			expense: Expense{Amount: d("30"), Policy: ExactAmounts, Participants: []Participant{
				{UserID: 1, Amount: dp("12.50")},
				{UserID: 2, Amount: dp("17.50")},
			}},
			user: 2,
			want: "17.5",
		},
		{
			name: "exact unset defaults to zero",
			expense: Expense{Amount: d("30"), Policy: ExactAmounts, Participants: []Participant{
				{UserID: 1, Amount: dp("30")},
				{UserID: 2},
			}},
			user: 2,
			want: "0",
		},
		{
			name: "percentage",
			expense: Expense{Amount: d("90"), Policy: Percentage, Participants: []Participant{
				{UserID: 1, Percentage: dp("30")},
				{UserID: 2, Percentage: dp("70")},
			}},
			user: 1,
			want: "27",
		},
		{
			name: "percentage unset defaults to zero",
			expense: Expense{Amount: d("90"), Policy: Percentage, Participants: []Participant{
				{UserID: 1, Percentage: dp("100")},
				{UserID: 2},
			}},
			user: 2,
			want: "0",
		},
		{
			name:    "not a participant",
			expense: Expense{Amount: d("100"), Policy: Equal, Participants: participants(1, 2)},
			user:    3,
			want:    "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OwedShare(tt.expense, tt.user)
			if err != nil {
				t.Fatalf("OwedShare() error: %v", err)
			}
			if !got.Equal(d(tt.want)) {
				t.Errorf("OwedShare() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOwedShareUnknownPolicy(t *testing.T) {
	_, err := OwedShare(Expense{Amount: d("1"), Policy: "Whatever", Participants: participants(1)}, 1)
	if !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("expected ErrUnknownPolicy, got %v", err)
	}
}

func TestGroupBalancesNoExpenses(t *testing.T) {
	for n := 0; n <= 5; n++ {
		members := make([]uint64, n)
		for i := range members {
			members[i] = uint64(10 + i)
		}

		balances, err := GroupBalances(members, nil)
		if err != nil {
			t.Fatalf("GroupBalances() error: %v", err)
		}
		if len(balances) != n {
			t.Fatalf("expected %d balances, got %d", n, len(balances))
		}
		for i, b := range balances {
			if b.UserID != members[i] {
				t.Errorf("balance %d is for user %d, expected %d", i, b.UserID, members[i])
			}
			if !b.TotalPaid.IsZero() || !b.TotalOwed.IsZero() || !b.Net.IsZero() {
				t.Errorf("expected zero balance for user %d, got %+v", b.UserID, b)
			}
		}
	}
}

func TestGroupBalancesSolePayerAndParticipant(t *testing.T) {
	expenses := []Expense{
		{ID: 1, Amount: d("12.34"), Policy: Equal, PaidBy: 7, Participants: participants(7)},
		{ID: 2, Amount: d("50"), Policy: ExactAmounts, PaidBy: 7, Participants: []Participant{{UserID: 7, Amount: dp("50")}}},
		{ID: 3, Amount: d("19.99"), Policy: Percentage, PaidBy: 7, Participants: []Participant{{UserID: 7, Percentage: dp("100")}}},
	}

	balances, err := GroupBalances([]uint64{7}, expenses)
	if err != nil {
		t.Fatalf("GroupBalances() error: %v", err)
	}
	if !balances[0].Net.IsZero() {
		t.Errorf("expected net 0, got %s", balances[0].Net)
	}
	if !balances[0].TotalPaid.Equal(d("82.33")) {
		t.Errorf("expected paid 82.33, got %s", balances[0].TotalPaid)
	}
}

func TestGroupBalancesCasa(t *testing.T) {
	const a, b = 1, 2
	expenses := []Expense{
		{ID: 1, Amount: d("100.00"), Policy: Equal, PaidBy: a, Participants: participants(a, b)},
	}

	balances, err := GroupBalances([]uint64{a, b}, expenses)
	if err != nil {
		t.Fatalf("GroupBalances() error: %v", err)
	}

	want := []struct {
		user            uint64
		paid, owed, net string
	}{
		{a, "100", "50", "50"},
		{b, "0", "50", "-50"},
	}
	for i, w := range want {
		got := balances[i]
		if got.UserID != w.user {
			t.Errorf("balance %d: user %d, want %d", i, got.UserID, w.user)
		}
		if !got.TotalPaid.Equal(d(w.paid)) || !got.TotalOwed.Equal(d(w.owed)) || !got.Net.Equal(d(w.net)) {
			t.Errorf("user %d: got paid=%s owed=%s net=%s, want %s/%s/%s",
				w.user, got.TotalPaid, got.TotalOwed, got.Net, w.paid, w.owed, w.net)
		}
	}
}

func TestGroupBalancesNetSumsToZero(t *testing.T) {
	members := []uint64{1, 2, 3}
	expenses := []Expense{
		{ID: 1, Amount: d("100"), Policy: Equal, PaidBy: 1, Participants: participants(1, 2, 3)},
		{ID: 2, Amount: d("45.50"), Policy: ExactAmounts, PaidBy: 2, Participants: []Participant{
			{UserID: 1, Amount: dp("20")},
			{UserID: 3, Amount: dp("25.50")},
		}},
		{ID: 3, Amount: d("90"), Policy: Percentage, PaidBy: 3, Participants: []Participant{
			{UserID: 2, Percentage: dp("30")},
			{UserID: 3, Percentage: dp("70")},
		}},
	}

	balances, err := GroupBalances(members, expenses)
	if err != nil {
		t.Fatalf("GroupBalances() error: %v", err)
	}

	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.Net)
	}
	if !total.IsZero() {
		t.Errorf("net balances add up to %s, expected 0", total)
	}
}

func TestGroupBalancesIgnoresNonMembers(t *testing.T) {
	expenses := []Expense{
		{ID: 1, Amount: d("90"), Policy: Equal, PaidBy: 99, Participants: participants(1, 99, 2)},
	}

	balances, err := GroupBalances([]uint64{1, 2}, expenses)
	if err != nil {
		t.Fatalf("GroupBalances() error: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(balances))
	}
	for _, b := range balances {
		if !b.TotalPaid.IsZero() {
			t.Errorf("user %d should not have paid anything", b.UserID)
		}
		if !b.TotalOwed.Equal(d("30")) {
			t.Errorf("user %d owes %s, expected 30", b.UserID, b.TotalOwed)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		expense Expense
		wantErr bool
	}{
		{"equal ok", Expense{Amount: d("10"), Policy: Equal, Participants: participants(1, 2)}, false},
		{"zero amount", Expense{Amount: d("0"), Policy: Equal, Participants: participants(1)}, true},
		{"negative amount", Expense{Amount: d("-5"), Policy: Equal, Participants: participants(1)}, true},
		{"no participants", Expense{Amount: d("10"), Policy: Equal}, true},
		{"duplicate participant", Expense{Amount: d("10"), Policy: Equal, Participants: participants(1, 1)}, true},
		{"unknown policy", Expense{Amount: d("10"), Policy: "Split", Participants: participants(1)}, true},
		{"exact ok", Expense{Amount: d("10"), Policy: ExactAmounts, Participants: []Participant{
			{UserID: 1, Amount: dp("4")}, {UserID: 2, Amount: dp("6")},
		}}, false},
		{"exact within a cent", Expense{Amount: d("10"), Policy: ExactAmounts, Participants: []Participant{
			{UserID: 1, Amount: dp("3.33")}, {UserID: 2, Amount: dp("6.66")},
		}}, false},
		{"exact short", Expense{Amount: d("10"), Policy: ExactAmounts, Participants: []Participant{
			{UserID: 1, Amount: dp("4")}, {UserID: 2, Amount: dp("5")},
		}}, true},
		{"exact missing amount", Expense{Amount: d("10"), Policy: ExactAmounts, Participants: []Participant{
			{UserID: 1, Amount: dp("10")}, {UserID: 2},
		}}, true},
		{"percentage ok", Expense{Amount: d("10"), Policy: Percentage, Participants: []Participant{
			{UserID: 1, Percentage: dp("25")}, {UserID: 2, Percentage: dp("75")},
		}}, false},
		{"percentage over", Expense{Amount: d("10"), Policy: Percentage, Participants: []Participant{
			{UserID: 1, Percentage: dp("60")}, {UserID: 2, Percentage: dp("60")},
		}}, true},
		{"amount at limit", Expense{Amount: d("10000000000"), Policy: Equal, Participants: participants(1, 2)}, true},
		{"amount just below limit", Expense{Amount: d("9999999999.99"), Policy: Equal, Participants: participants(1, 2)}, false},
		{"huge amount", Expense{Amount: d("100000000000000000000"), Policy: Equal, Participants: participants(1, 2)}, true},
		{"exact value at limit", Expense{Amount: d("9999999999.99"), Policy: ExactAmounts, Participants: []Participant{
			{UserID: 1, Amount: dp("10000000000")}, {UserID: 2, Amount: dp("0")},
		}}, true},
		{"percentage out of range", Expense{Amount: d("10"), Policy: Percentage, Participants: []Participant{
			{UserID: 1, Percentage: dp("150")}, {UserID: 2, Percentage: dp("-50")},
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.expense)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSplit) && !errors.Is(err, ErrUnknownPolicy) {
				t.Errorf("unexpected error kind: %v", err)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
	}{
		{"Equal", Equal},
		{"Uguale", Equal},
		{"ExactAmounts", ExactAmounts},
		{"Importi esatti", ExactAmounts},
		{"percentage", Percentage},
		{"Percentuale", Percentage},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if err != nil {
			t.Errorf("ParsePolicy(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParsePolicy("half"); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("expected ErrUnknownPolicy, got %v", err)
	}
}

func TestNormalizeTag(t *testing.T) {
	if len(Tags) != 12 {
		t.Fatalf("expected 12 tags, got %d", len(Tags))
	}
	if got, ok := NormalizeTag("pranzo/cena"); !ok || got != "Pranzo/Cena" {
		t.Errorf("NormalizeTag(pranzo/cena) = %q, %v", got, ok)
	}
	if _, ok := NormalizeTag("Vacanze"); ok {
		t.Error("expected Vacanze to be rejected")
	}
}

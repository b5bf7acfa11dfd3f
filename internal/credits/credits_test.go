package credits

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBillableMinutes(t *testing.T) {
	cases := []struct {
		seconds int64
		want    int64
	}{
		{0, 0},
		{-5, 0},
		{1, 1},
		{59, 1},
		{60, 1},
		{61, 2},
		{125, 3},
		{180, 3},
	}
	for _, tc := range cases {
		if got := BillableMinutes(tc.seconds); got != tc.want {
			t.Errorf("BillableMinutes(%d) = %d, want %d", tc.seconds, got, tc.want)
		}
	}
}

func TestCost(t *testing.T) {
	// 125s -> 3 minutes, 3 * 10 * 2 = 60.
	if got := Cost(125, 10, 2); got != 60 {
		t.Fatalf("Cost(125, 10, 2) = %d, want 60", got)
	}
	if got := Cost(180, 10, 1); got != 30 {
		t.Fatalf("Cost(180, 10, 1) = %d, want 30", got)
	}
	if got := Cost(0, 10, 3); got != 0 {
		t.Fatalf("Cost(0, 10, 3) = %d, want 0", got)
	}
}

func TestPointsForAmount(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"10", 1000},
		{"0.5", 50},
		{"0.005", 0},
		{"9.999", 999},
	}
	for _, tc := range cases {
		amount, err := decimal.NewFromString(tc.amount)
		if err != nil {
			t.Fatalf("bad amount %q: %v", tc.amount, err)
		}
		if got := PointsForAmount(amount, 100); got != tc.want {
			t.Errorf("PointsForAmount(%s, 100) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{0, "0m"},
		{-1, "0m"},
		{59, "0m59s"},
		{60, "1m"},
		{125, "2m5s"},
		{180, "3m"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.seconds); got != tc.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

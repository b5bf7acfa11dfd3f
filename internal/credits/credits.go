package credits

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BillableMinutes rounds a duration up to whole minutes. A 61-second video
// bills as two minutes.
func BillableMinutes(durationSeconds int64) int64 {
	if durationSeconds <= 0 {
		return 0
	}
	return (durationSeconds + 59) / 60
}

// Cost is the credit price of translating one video: billable minutes times
// the per-minute rate times the number of target languages.
func Cost(durationSeconds, ratePerMinute int64, languageCount int) int64 {
	return BillableMinutes(durationSeconds) * ratePerMinute * int64(languageCount)
}

// PointsForAmount converts a currency amount into credits, truncating any
// fractional point.
func PointsForAmount(amount decimal.Decimal, pointsPerUnit int64) int64 {
	return amount.Mul(decimal.NewFromInt(pointsPerUnit)).Floor().IntPart()
}

// FormatDuration renders seconds for display. Billing never reads this back;
// duration_seconds is the source of truth.
func FormatDuration(durationSeconds int64) string {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	minutes := durationSeconds / 60
	seconds := durationSeconds % 60
	if seconds == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

package domain

import (
	"strings"
	"time"
)

// PeriodStart day / week / month / year 往回推；空或未知返回 nil 表示不限
func PeriodStart(period string, now time.Time) *time.Time {
	var t time.Time
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "day":
		t = now.AddDate(0, 0, -1)
	case "week":
		t = now.AddDate(0, 0, -7)
	case "month":
		t = now.AddDate(0, -1, 0)
	case "year":
		t = now.AddDate(-1, 0, 0)
	default:
		return nil
	}
	t = t.UTC()
	return &t
}

package repository

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DayRange 将 YYYY-MM-DD 解析为 UTC 日区间 [start, next)，半开区间。
func DayRange(date string) (start time.Time, next time.Time, err error) {
	t, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("解析日期失败: %w", err)
	}
	return t, t.AddDate(0, 0, 1), nil
}

// PreviousDay 返回 now 所在 UTC 日的前一天（YYYY-MM-DD）
func PreviousDay(now time.Time) string {
	d := now.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, 0, -1).Format(DateLayout)
}

// Package calendar 提供排课所需的纯日期运算（无状态）。
//
// 所有日期均按"日"处理：时分秒被截断，比较只看年月日。
package calendar

import "time"

// DateLayout 接口与存储统一使用的日期格式
const DateLayout = "2006-01-02"

// DateOnly 截断到当天 00:00（UTC），消除时区与时分秒对日期比较的影响
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate 解析 "2006-01-02" 格式日期
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(t), nil
}

// FormatDate 格式化为 "2006-01-02"
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FirstOccurrenceOnOrAfter 返回 start 当天或之后第一个星期为 wd 的日期。
// 不设上限，调用方需自行与区间终点比较。
func FirstOccurrenceOnOrAfter(start time.Time, wd time.Weekday) time.Time {
	d := DateOnly(start)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// WeekOf 返回 d 所在周的周一（d 为周一时返回自身）
func WeekOf(d time.Time) time.Time {
	d = DateOnly(d)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// AddWeeks 前进 n 整周（n 可为负）
func AddWeeks(d time.Time, n int) time.Time {
	return DateOnly(d).AddDate(0, 0, 7*n)
}

// MondayOffset 周一为 0、周日为 6
func MondayOffset(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// Within 判断 d 是否落在 [start, end] 闭区间内
func Within(d, start, end time.Time) bool {
	d, start, end = DateOnly(d), DateOnly(start), DateOnly(end)
	return !d.Before(start) && !d.After(end)
}

// SameDate 判断两个时间是否为同一天
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

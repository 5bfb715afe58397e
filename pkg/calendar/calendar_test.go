package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFirstOccurrenceOnOrAfter(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		wd    time.Weekday
		want  time.Time
	}{
		{"同一天", date(2026, 1, 5), time.Monday, date(2026, 1, 5)},
		{"次日", date(2026, 1, 5), time.Tuesday, date(2026, 1, 6)},
		{"跨周", date(2026, 1, 7), time.Monday, date(2026, 1, 12)},
		{"周日", date(2026, 1, 5), time.Sunday, date(2026, 1, 11)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FirstOccurrenceOnOrAfter(tt.start, tt.wd)
			if !got.Equal(tt.want) {
				t.Errorf("期望 %s，实际 %s", FormatDate(tt.want), FormatDate(got))
			}
		})
	}
}

func TestFirstOccurrenceOnOrAfter_IgnoresClock(t *testing.T) {
	start := time.Date(2026, 1, 5, 23, 30, 0, 0, time.UTC)
	got := FirstOccurrenceOnOrAfter(start, time.Monday)
	if !got.Equal(date(2026, 1, 5)) {
		t.Errorf("时分秒不应影响结果，实际 %s", got)
	}
}

func TestWeekOf(t *testing.T) {
	if got := WeekOf(date(2026, 1, 5)); !got.Equal(date(2026, 1, 5)) {
		t.Errorf("周一应返回自身，实际 %s", FormatDate(got))
	}
	if got := WeekOf(date(2026, 1, 11)); !got.Equal(date(2026, 1, 5)) {
		t.Errorf("周日应回退到周一，实际 %s", FormatDate(got))
	}
	if got := WeekOf(date(2026, 1, 1)); !got.Equal(date(2025, 12, 29)) {
		t.Errorf("跨年回退失败，实际 %s", FormatDate(got))
	}
}

func TestAddWeeksAndWithin(t *testing.T) {
	d := AddWeeks(date(2026, 1, 6), 9)
	if !d.Equal(date(2026, 3, 10)) {
		t.Errorf("期望 2026-03-10，实际 %s", FormatDate(d))
	}
	if !Within(d, date(2026, 1, 5), date(2026, 3, 15)) {
		t.Error("2026-03-10 应在学期内")
	}
	if Within(AddWeeks(d, 1), date(2026, 1, 5), date(2026, 3, 15)) {
		t.Error("2026-03-17 不应在学期内")
	}
	if !Within(date(2026, 3, 15), date(2026, 1, 5), date(2026, 3, 15)) {
		t.Error("区间端点应包含在内")
	}
}

func TestMondayOffset(t *testing.T) {
	if MondayOffset(time.Monday) != 0 || MondayOffset(time.Friday) != 4 || MondayOffset(time.Sunday) != 6 {
		t.Error("MondayOffset 计算错误")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-01-05")
	if err != nil {
		t.Fatalf("ParseDate 应成功: %v", err)
	}
	if d.Weekday() != time.Monday {
		t.Errorf("2026-01-05 应为周一，实际 %s", d.Weekday())
	}
	if _, err := ParseDate("2026/01/05"); err == nil {
		t.Error("错误格式应返回错误")
	}
}

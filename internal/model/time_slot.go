package model

import "time"

// ── 星期 ──

// Weekday 星期枚举（以字符串存储，便于阅读与接口传输）
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

// Weekdays 周一至周日
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// TeachingDays 常规教学日（周一至周五），补课分配只在这些日期中搜索
var TeachingDays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

var weekdayToTime = map[Weekday]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// Valid 是否为合法星期
func (d Weekday) Valid() bool {
	_, ok := weekdayToTime[d]
	return ok
}

// TimeWeekday 转换为 time.Weekday
func (d Weekday) TimeWeekday() time.Weekday {
	return weekdayToTime[d]
}

// WeekdayOf 返回日期对应的星期
func WeekdayOf(t time.Time) Weekday {
	return Weekdays[(int(t.Weekday())+6)%7]
}

// ── 节次 ──

// TimeSlot 每日固定教学节次
type TimeSlot string

const (
	SlotCA1 TimeSlot = "CA1"
	SlotCA2 TimeSlot = "CA2"
	SlotCA3 TimeSlot = "CA3"
	SlotCA4 TimeSlot = "CA4"
	SlotCA5 TimeSlot = "CA5"
)

// TimeSlots 全部节次，按上课先后排序
var TimeSlots = []TimeSlot{SlotCA1, SlotCA2, SlotCA3, SlotCA4, SlotCA5}

// SlotPeriod 节次起止时间（HH:MM）
type SlotPeriod struct {
	Start string
	End   string
}

var slotPeriods = map[TimeSlot]SlotPeriod{
	SlotCA1: {Start: "07:00", End: "09:30"},
	SlotCA2: {Start: "09:45", End: "12:15"},
	SlotCA3: {Start: "13:00", End: "15:30"},
	SlotCA4: {Start: "15:45", End: "18:15"},
	SlotCA5: {Start: "18:30", End: "21:00"},
}

// Valid 是否为合法节次
func (s TimeSlot) Valid() bool {
	_, ok := slotPeriods[s]
	return ok
}

// Period 返回节次起止时间；仅用于展示，冲突判断只比较节次本身
func (s TimeSlot) Period() SlotPeriod {
	return slotPeriods[s]
}

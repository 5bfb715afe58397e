package model

import "time"

// Slot 一次课的具体时间地点
type Slot struct {
	Date     time.Time `json:"date"`
	Day      Weekday   `json:"day"`
	TimeSlot TimeSlot  `json:"time_slot"`
	Room     string    `json:"room"`
}

// Placement 课次排课状态，只有以下三种取值：
//   - Unscheduled：待排的补课或线上课，没有时间地点
//   - Original：按原始排课上课
//   - Rescheduled：已调课，同时保留原始排课与调课原因
type Placement interface {
	isPlacement()
}

// Unscheduled 未排课
type Unscheduled struct{}

// Original 原始排课
type Original struct {
	Slot Slot
}

// Rescheduled 已调课
type Rescheduled struct {
	Original Slot
	Actual   Slot
	Reason   string
}

func (Unscheduled) isPlacement() {}
func (Original) isPlacement()    {}
func (Rescheduled) isPlacement() {}

// Effective 返回生效的时间地点：调课取 Actual，否则取 Original；
// 四个字段整体取自同一侧，不会混用。未排课时 ok=false，调用方应将其排除在冲突检测与日历之外。
func Effective(p Placement) (Slot, bool) {
	switch v := p.(type) {
	case Original:
		return v.Slot, true
	case Rescheduled:
		return v.Actual, true
	default:
		return Slot{}, false
	}
}

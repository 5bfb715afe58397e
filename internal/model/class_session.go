package model

import "time"

// 课次类型 / 类别 / 状态
const (
	SessionInPerson  = "IN_PERSON"
	SessionELearning = "E_LEARNING"

	CategoryFixed = "FIXED"
	CategoryExtra = "EXTRA"

	SessionScheduled = "SCHEDULED"
	SessionCompleted = "COMPLETED"
	SessionCancelled = "CANCELLED"
)

// ClassSession 课次表，对应 class_sessions
//
// Original* / Actual* 两组可空列只是存储编码，业务代码一律通过
// Placement() 读取、通过 AssignOriginal / ApplyReschedule / ClearReschedule 修改。
type ClassSession struct {
	SessionID        string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	ClassID          string     `gorm:"type:uuid;not null;index"                       json:"class_id"`
	SessionNumber    int        `gorm:"not null"                                       json:"session_number"`
	SessionType      string     `gorm:"type:varchar(20);not null"                      json:"session_type"`
	Category         *string    `gorm:"type:varchar(10)"                               json:"category,omitempty"` // 仅 IN_PERSON
	IsPending        bool       `gorm:"not null;default:false"                         json:"is_pending"`
	OriginalDate     *time.Time `gorm:"type:date"                                      json:"original_date,omitempty"`
	OriginalDay      *Weekday   `gorm:"type:varchar(10)"                               json:"original_day,omitempty"`
	OriginalSlot     *TimeSlot  `gorm:"type:varchar(10)"                               json:"original_slot,omitempty"`
	OriginalRoom     *string    `gorm:"type:varchar(30)"                               json:"original_room,omitempty"`
	ActualDate       *time.Time `gorm:"type:date"                                      json:"actual_date,omitempty"`
	ActualDay        *Weekday   `gorm:"type:varchar(10)"                               json:"actual_day,omitempty"`
	ActualSlot       *TimeSlot  `gorm:"type:varchar(10)"                               json:"actual_slot,omitempty"`
	ActualRoom       *string    `gorm:"type:varchar(30)"                               json:"actual_room,omitempty"`
	IsRescheduled    bool       `gorm:"not null;default:false"                         json:"is_rescheduled"`
	RescheduleReason string     `gorm:"type:varchar(500)"                              json:"reschedule_reason,omitempty"`
	Status           string     `gorm:"type:varchar(20);not null;default:'SCHEDULED'"  json:"status"`
	BaseModel

	// 关联
	Class *Class `gorm:"foreignKey:ClassID;references:ClassID" json:"class,omitempty"`
}

// TableName 指定表名
func (ClassSession) TableName() string { return "class_sessions" }

// IsInPerson 是否为线下课次
func (s *ClassSession) IsInPerson() bool {
	return s.SessionType == SessionInPerson
}

// CategoryValue 返回类别（E_LEARNING 为空串）
func (s *ClassSession) CategoryValue() string {
	if s.Category == nil {
		return ""
	}
	return *s.Category
}

// Placement 将存储列解析为排课状态
func (s *ClassSession) Placement() Placement {
	original, hasOriginal := slotFromColumns(s.OriginalDate, s.OriginalDay, s.OriginalSlot, s.OriginalRoom)
	if s.IsRescheduled {
		if actual, ok := slotFromColumns(s.ActualDate, s.ActualDay, s.ActualSlot, s.ActualRoom); ok {
			return Rescheduled{Original: original, Actual: actual, Reason: s.RescheduleReason}
		}
	}
	if hasOriginal && !s.IsPending {
		return Original{Slot: original}
	}
	return Unscheduled{}
}

// EffectiveSlot 返回实际生效的时间地点；未排课时 ok=false
func (s *ClassSession) EffectiveSlot() (Slot, bool) {
	return Effective(s.Placement())
}

// OriginalSlotValue 返回原始排课；未排课时 ok=false
func (s *ClassSession) OriginalSlotValue() (Slot, bool) {
	return slotFromColumns(s.OriginalDate, s.OriginalDay, s.OriginalSlot, s.OriginalRoom)
}

// AssignOriginal 写入原始排课并清除待排标记
func (s *ClassSession) AssignOriginal(slot Slot) {
	s.OriginalDate, s.OriginalDay, s.OriginalSlot, s.OriginalRoom = slot.columns()
	s.IsPending = false
}

// ApplyReschedule 写入调课结果
func (s *ClassSession) ApplyReschedule(slot Slot, reason string) {
	s.ActualDate, s.ActualDay, s.ActualSlot, s.ActualRoom = slot.columns()
	s.IsRescheduled = true
	s.RescheduleReason = reason
}

// ClearReschedule 清除调课字段，恢复原始排课
func (s *ClassSession) ClearReschedule() {
	s.ActualDate, s.ActualDay, s.ActualSlot, s.ActualRoom = nil, nil, nil, nil
	s.IsRescheduled = false
	s.RescheduleReason = ""
}

// ── 辅助函数 ──

func slotFromColumns(date *time.Time, day *Weekday, slot *TimeSlot, room *string) (Slot, bool) {
	if date == nil || day == nil || slot == nil {
		return Slot{}, false
	}
	s := Slot{Date: *date, Day: *day, TimeSlot: *slot}
	if room != nil {
		s.Room = *room
	}
	return s, true
}

func (s Slot) columns() (*time.Time, *Weekday, *TimeSlot, *string) {
	date, day, ts, room := s.Date, s.Day, s.TimeSlot, s.Room
	return &date, &day, &ts, &room
}

// StringPtr 返回字符串指针
func StringPtr(v string) *string { return &v }

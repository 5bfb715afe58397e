package dto

// ── 课表模块 DTO ──

// TimetableRequest 课表查询参数
type TimetableRequest struct {
	SemesterID string `form:"semester_id"`
	Week       string `form:"week"` // 任意一天，返回该日所在周（周一至周日）
}

// TimetableEntry 课表条目
type TimetableEntry struct {
	SessionID     string `json:"session_id"`
	ClassID       string `json:"class_id"`
	ClassCode     string `json:"class_code"`
	SubjectName   string `json:"subject_name,omitempty"`
	IsRescheduled bool   `json:"is_rescheduled"`
	ScheduleSlot
}

// TimetableResponse 课表响应
type TimetableResponse struct {
	OwnerID  string           `json:"owner_id"`
	WeekFrom string           `json:"week_from,omitempty"`
	WeekTo   string           `json:"week_to,omitempty"`
	Entries  []TimetableEntry `json:"entries"`
}

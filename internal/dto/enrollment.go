package dto

// ── 选课模块 DTO ──

// EnrollRequest 选课请求
type EnrollRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	ClassID   string `json:"class_id"   binding:"required"`
}

// EnrollmentConflict 选课时间冲突明细
type EnrollmentConflict struct {
	Date          string `json:"date"`
	Day           string `json:"day"`
	TimeSlot      string `json:"time_slot"`
	ConflictClass string `json:"conflict_class_id"`
	ConflictCode  string `json:"conflict_class_code,omitempty"`
}

// EnrollmentCheckResponse 选课预检结果
type EnrollmentCheckResponse struct {
	Eligible  bool                 `json:"eligible"`
	Reason    string               `json:"reason,omitempty"`
	Conflicts []EnrollmentConflict `json:"conflicts"`
}

// EnrollmentResponse 选课结果
type EnrollmentResponse struct {
	ID               string `json:"id"`
	StudentID        string `json:"student_id"`
	ClassID          string `json:"class_id"`
	SemesterID       string `json:"semester_id"`
	Status           string `json:"status"`
	EnrolledAt       string `json:"enrolled_at"`
	ScheduledEntries int    `json:"scheduled_entries"`
}

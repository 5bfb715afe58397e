package dto

// ── 教学班模块 DTO ──

// CreateClassRequest 创建教学班请求
type CreateClassRequest struct {
	ClassCode   string `json:"class_code"   binding:"required,min=2,max=30"`
	SubjectID   string `json:"subject_id"   binding:"required"`
	TeacherID   string `json:"teacher_id"   binding:"required"`
	SemesterID  string `json:"semester_id"  binding:"required"`
	MaxStudents int    `json:"max_students" binding:"required,min=1,max=500"`
	FixedDay    string `json:"fixed_day"    binding:"required,weekday"`
	FixedSlot   string `json:"fixed_slot"   binding:"required,timeslot"`
	FixedRoom   string `json:"fixed_room"   binding:"required,max=30"`
}

// UpdateClassRequest 更新教学班请求（字段均可选）
type UpdateClassRequest struct {
	TeacherID   *string `json:"teacher_id"`
	MaxStudents *int    `json:"max_students" binding:"omitempty,min=1,max=500"`
	Status      *string `json:"status"       binding:"omitempty,oneof=OPEN CLOSED"`
	FixedDay    *string `json:"fixed_day"    binding:"omitempty,weekday"`
	FixedSlot   *string `json:"fixed_slot"   binding:"omitempty,timeslot"`
	FixedRoom   *string `json:"fixed_room"   binding:"omitempty,max=30"`
}

// ClassListRequest 教学班列表请求
type ClassListRequest struct {
	PaginationRequest
	SemesterID string `form:"semester_id"`
	TeacherID  string `form:"teacher_id"`
	SubjectID  string `form:"subject_id"`
	Status     string `form:"status" binding:"omitempty,oneof=OPEN FULL CLOSED IN_PROGRESS COMPLETED"`
}

// CheckClassConflictRequest 固定课表冲突预检请求
type CheckClassConflictRequest struct {
	SemesterID     string `json:"semester_id"      binding:"required"`
	TeacherID      string `json:"teacher_id"       binding:"required"`
	FixedDay       string `json:"fixed_day"        binding:"required,weekday"`
	FixedSlot      string `json:"fixed_slot"       binding:"required,timeslot"`
	FixedRoom      string `json:"fixed_room"       binding:"required"`
	ExcludeClassID string `json:"exclude_class_id"`
}

// CheckClassConflictResponse 固定课表冲突预检结果
type CheckClassConflictResponse struct {
	TeacherConflict bool     `json:"teacher_conflict"`
	RoomConflict    bool     `json:"room_conflict"`
	Details         []string `json:"details"`
}

// SessionSummary 课次生成统计
type SessionSummary struct {
	Total     int `json:"total"`
	Fixed     int `json:"fixed"`
	Extra     int `json:"extra"`
	Pending   int `json:"pending"`
	ELearning int `json:"e_learning"`
}

// ClassResponse 教学班信息响应
type ClassResponse struct {
	ID            string          `json:"id"`
	ClassCode     string          `json:"class_code"`
	SubjectID     string          `json:"subject_id"`
	SubjectName   string          `json:"subject_name,omitempty"`
	TeacherID     string          `json:"teacher_id"`
	TeacherName   string          `json:"teacher_name,omitempty"`
	SemesterID    string          `json:"semester_id"`
	MaxStudents   int             `json:"max_students"`
	EnrolledCount int             `json:"enrolled_count"`
	Status        string          `json:"status"`
	FixedDay      string          `json:"fixed_day"`
	FixedSlot     string          `json:"fixed_slot"`
	FixedRoom     string          `json:"fixed_room"`
	StartDate     string          `json:"start_date"`
	EndDate       string          `json:"end_date"`
	Sessions      *SessionSummary `json:"sessions,omitempty"`
	Warnings      []string        `json:"warnings,omitempty"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

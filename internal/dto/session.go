package dto

// ── 课次模块 DTO ──

// SessionListRequest 按班级查询课次
type SessionListRequest struct {
	Type        string `form:"type"        binding:"omitempty,oneof=IN_PERSON E_LEARNING"`
	Rescheduled bool   `form:"rescheduled"`
	Pending     bool   `form:"pending"`
}

// RescheduleRequest 调课请求
// Day 可省略，省略时由日期推导；填写时必须与日期一致
type RescheduleRequest struct {
	NewDate string `json:"new_date" binding:"required"`
	NewDay  string `json:"new_day"  binding:"omitempty,weekday"`
	NewSlot string `json:"new_slot" binding:"required,timeslot"`
	NewRoom string `json:"new_room" binding:"required,max=30"`
	Reason  string `json:"reason"   binding:"required,max=500"`
}

// BatchRescheduleRequest 批量调课请求
type BatchRescheduleRequest struct {
	SessionIDs []string `json:"session_ids" binding:"required,min=1,max=50,dive,required"`
	RescheduleRequest
}

// SessionResponse 课次响应
type SessionResponse struct {
	ID               string        `json:"id"`
	ClassID          string        `json:"class_id"`
	SessionNumber    int           `json:"session_number"`
	SessionType      string        `json:"session_type"`
	Category         string        `json:"category,omitempty"`
	IsPending        bool          `json:"is_pending"`
	Original         *ScheduleSlot `json:"original,omitempty"`
	Actual           *ScheduleSlot `json:"actual,omitempty"`
	Effective        *ScheduleSlot `json:"effective,omitempty"`
	IsRescheduled    bool          `json:"is_rescheduled"`
	RescheduleReason string        `json:"reschedule_reason,omitempty"`
	Status           string        `json:"status"`
}

// BatchRescheduleFailure 批量调课单项失败
type BatchRescheduleFailure struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// BatchRescheduleResponse 批量调课结果（允许部分成功）
type BatchRescheduleResponse struct {
	Total     int                      `json:"total"`
	Succeeded []SessionResponse        `json:"succeeded"`
	Failed    []BatchRescheduleFailure `json:"failed"`
}

// SessionChangeLogListRequest 课次变更日志列表请求
type SessionChangeLogListRequest struct {
	PaginationRequest
}

// SessionChangeLogResponse 课次变更日志响应
type SessionChangeLogResponse struct {
	ID         string        `json:"id"`
	SessionID  string        `json:"session_id"`
	ChangeType string        `json:"change_type"`
	Before     *ScheduleSlot `json:"before,omitempty"`
	After      *ScheduleSlot `json:"after,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	OperatorID string        `json:"operator_id,omitempty"`
	CreatedAt  string        `json:"created_at"`
}

package dto

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// ScheduleSlot 一次课的具体时间地点
type ScheduleSlot struct {
	Date      string `json:"date"`
	Day       string `json:"day"`
	TimeSlot  string `json:"time_slot"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Room      string `json:"room,omitempty"`
}

// ConflictDetail 排课冲突明细（409 响应 data）
type ConflictDetail struct {
	Dimension         string `json:"dimension"` // TEACHER | ROOM | STUDENT
	Resource          string `json:"resource,omitempty"`
	Date              string `json:"date,omitempty"`
	Day               string `json:"day"`
	TimeSlot          string `json:"time_slot"`
	ConflictClassID   string `json:"conflict_class_id"`
	ConflictClassCode string `json:"conflict_class_code,omitempty"`
	ConflictSessionID string `json:"conflict_session_id,omitempty"`
}

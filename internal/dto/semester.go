package dto

// ── 学期模块 DTO ──

// CreateSemesterRequest 创建学期请求
type CreateSemesterRequest struct {
	Code                  string  `json:"code"                    binding:"required,min=2,max=30"`
	Name                  string  `json:"name"                    binding:"required,min=2,max=100"`
	StartDate             string  `json:"start_date"              binding:"required"` // "2026-01-05"
	EndDate               string  `json:"end_date"                binding:"required"` // "2026-03-15"
	RegistrationEnabled   *bool   `json:"registration_enabled"`
	RegistrationStartDate *string `json:"registration_start_date"`
	RegistrationEndDate   *string `json:"registration_end_date"`
}

// UpdateSemesterRequest 更新学期请求
type UpdateSemesterRequest struct {
	Name                  *string `json:"name"                    binding:"omitempty,min=2,max=100"`
	StartDate             *string `json:"start_date"`
	EndDate               *string `json:"end_date"`
	RegistrationEnabled   *bool   `json:"registration_enabled"`
	RegistrationStartDate *string `json:"registration_start_date"`
	RegistrationEndDate   *string `json:"registration_end_date"`
}

// SemesterListRequest 学期列表请求
type SemesterListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=UPCOMING ACTIVE COMPLETED"`
}

// SemesterResponse 学期信息响应
type SemesterResponse struct {
	ID                    string `json:"id"`
	Code                  string `json:"code"`
	Name                  string `json:"name"`
	StartDate             string `json:"start_date"`
	EndDate               string `json:"end_date"`
	Status                string `json:"status"`
	RegistrationEnabled   bool   `json:"registration_enabled"`
	RegistrationStartDate string `json:"registration_start_date,omitempty"`
	RegistrationEndDate   string `json:"registration_end_date,omitempty"`
	ActivatedAt           string `json:"activated_at,omitempty"`
	CompletedAt           string `json:"completed_at,omitempty"`
	CreatedAt             string `json:"created_at"`
	UpdatedAt             string `json:"updated_at"`
}

// ActivationReport 学期激活结果
type ActivationReport struct {
	Semester           SemesterResponse `json:"semester"`
	DemotedSemesterIDs []string         `json:"demoted_semester_ids"`
	ClassesProcessed   int              `json:"classes_processed"`
	SessionsAssigned   int              `json:"sessions_assigned"`
	SessionsUnassigned int              `json:"sessions_unassigned"`
	Warnings           []string         `json:"warnings"`
}

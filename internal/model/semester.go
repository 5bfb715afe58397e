package model

import "time"

// 学期状态（单向流转 UPCOMING → ACTIVE → COMPLETED）
const (
	SemesterUpcoming  = "UPCOMING"
	SemesterActive    = "ACTIVE"
	SemesterCompleted = "COMPLETED"
)

// Semester 学期表，对应 semesters
type Semester struct {
	SemesterID            string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"   json:"semester_id"`
	Code                  string     `gorm:"type:varchar(30);not null;uniqueIndex"            json:"code"`
	Name                  string     `gorm:"type:varchar(100);not null"                       json:"name"`
	StartDate             time.Time  `gorm:"type:date;not null"                               json:"start_date"`
	EndDate               time.Time  `gorm:"type:date;not null"                               json:"end_date"`
	Status                string     `gorm:"type:varchar(20);not null;default:'UPCOMING'"     json:"status"`
	RegistrationEnabled   bool       `gorm:"not null;default:true"                            json:"registration_enabled"`
	RegistrationStartDate *time.Time `gorm:"type:date"                                        json:"registration_start_date,omitempty"`
	RegistrationEndDate   *time.Time `gorm:"type:date"                                        json:"registration_end_date,omitempty"`
	ActivatedAt           *time.Time `json:"activated_at,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (Semester) TableName() string { return "semesters" }

package model

import "time"

// 选课状态
const (
	EnrollmentEnrolled = "ENROLLED"
	EnrollmentDropped  = "DROPPED"
)

// Enrollment 选课记录表，对应 enrollments
type Enrollment struct {
	EnrollmentID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"enrollment_id"`
	StudentID    string     `gorm:"type:uuid;not null;index"                       json:"student_id"`
	ClassID      string     `gorm:"type:uuid;not null;index"                       json:"class_id"`
	SemesterID   string     `gorm:"type:uuid;not null"                             json:"semester_id"`
	Status       string     `gorm:"type:varchar(20);not null;default:'ENROLLED'"   json:"status"`
	EnrolledAt   time.Time  `gorm:"not null"                                       json:"enrolled_at"`
	DroppedAt    *time.Time `json:"dropped_at,omitempty"`
	BaseModel

	// 关联
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }

// 学生课表状态
const (
	StudentScheduleScheduled = "SCHEDULED"
	StudentScheduleAttended  = "ATTENDED"
	StudentScheduleAbsent    = "ABSENT"
	StudentScheduleCancelled = "CANCELLED"
)

// StudentSchedule 学生个人课表，对应 student_schedules
//
// 每个选课学生 × 每个已排课的线下课次一行，是课次生效时间地点的物化副本，
// 调课、恢复、补课分配时在同一事务内同步刷新。
type StudentSchedule struct {
	StudentScheduleID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_schedule_id"`
	StudentID         string    `gorm:"type:uuid;not null;index"                       json:"student_id"`
	ClassID           string    `gorm:"type:uuid;not null;index"                       json:"class_id"`
	SessionID         string    `gorm:"type:uuid;not null;index"                       json:"session_id"`
	SemesterID        string    `gorm:"type:uuid;not null"                             json:"semester_id"`
	SessionDate       time.Time `gorm:"type:date;not null"                             json:"session_date"`
	DayOfWeek         Weekday   `gorm:"type:varchar(10);not null"                      json:"day_of_week"`
	TimeSlot          TimeSlot  `gorm:"type:varchar(10);not null"                      json:"time_slot"`
	Room              string    `gorm:"type:varchar(30)"                               json:"room"`
	Status            string    `gorm:"type:varchar(20);not null;default:'SCHEDULED'"  json:"status"`
	BaseModel

	// 关联
	Class *Class `gorm:"foreignKey:ClassID;references:ClassID" json:"class,omitempty"`
}

// TableName 指定表名
func (StudentSchedule) TableName() string { return "student_schedules" }

// ApplySlot 以课次的生效时间地点覆盖本行
func (s *StudentSchedule) ApplySlot(slot Slot) {
	s.SessionDate = slot.Date
	s.DayOfWeek = slot.Day
	s.TimeSlot = slot.TimeSlot
	s.Room = slot.Room
}

package model

import "time"

// 班级状态
const (
	ClassOpen       = "OPEN"
	ClassFull       = "FULL"
	ClassClosed     = "CLOSED"
	ClassInProgress = "IN_PROGRESS"
	ClassCompleted  = "COMPLETED"
)

// Class 教学班表，对应 classes
//
// FixedDay/FixedSlot/FixedRoom 构成固定周课表；同一学期内
// (teacher, day, slot) 与 (room, day, slot) 由数据库部分唯一索引兜底。
type Class struct {
	ClassID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_id"`
	ClassCode     string    `gorm:"type:varchar(30);not null;uniqueIndex"          json:"class_code"`
	SubjectID     string    `gorm:"type:uuid;not null;index"                       json:"subject_id"`
	TeacherID     string    `gorm:"type:uuid;not null;index"                       json:"teacher_id"`
	SemesterID    string    `gorm:"type:uuid;not null;index"                       json:"semester_id"`
	MaxStudents   int       `gorm:"not null"                                       json:"max_students"`
	EnrolledCount int       `gorm:"not null;default:0"                             json:"enrolled_count"`
	Status        string    `gorm:"type:varchar(20);not null;default:'OPEN'"       json:"status"`
	FixedDay      Weekday   `gorm:"type:varchar(10);not null"                      json:"fixed_day"`
	FixedSlot     TimeSlot  `gorm:"type:varchar(10);not null"                      json:"fixed_slot"`
	FixedRoom     string    `gorm:"type:varchar(30);not null"                      json:"fixed_room"`
	StartDate     time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate       time.Time `gorm:"type:date;not null"                             json:"end_date"`
	VersionedModel

	// 关联
	Subject  *Subject  `gorm:"foreignKey:SubjectID;references:SubjectID"   json:"subject,omitempty"`
	Teacher  *Teacher  `gorm:"foreignKey:TeacherID;references:TeacherID"   json:"teacher,omitempty"`
	Semester *Semester `gorm:"foreignKey:SemesterID;references:SemesterID" json:"semester,omitempty"`
}

// TableName 指定表名
func (Class) TableName() string { return "classes" }

// IsFull 已满员
func (c *Class) IsFull() bool {
	return c.EnrolledCount >= c.MaxStudents
}

package model

// 以下为排课引擎依赖的外部主数据，仅做按 ID/编码查询。

// Subject 课程表，对应 subjects
type Subject struct {
	SubjectID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	SubjectCode       string `gorm:"type:varchar(30);not null;uniqueIndex"          json:"subject_code"`
	Name              string `gorm:"type:varchar(200);not null"                     json:"name"`
	Credits           int    `gorm:"not null"                                       json:"credits"`
	TotalSessions     int    `gorm:"not null;default:0"                             json:"total_sessions"`
	InPersonSessions  int    `gorm:"not null;default:0"                             json:"in_person_sessions"`
	ELearningSessions int    `gorm:"not null;default:0"                             json:"e_learning_sessions"`
	SoftDeleteModel
}

func (Subject) TableName() string { return "subjects" }

// Teacher 教师表，对应 teachers
type Teacher struct {
	TeacherID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"teacher_id"`
	TeacherCode string `gorm:"type:varchar(30);not null;uniqueIndex"          json:"teacher_code"`
	FullName    string `gorm:"type:varchar(100);not null"                     json:"full_name"`
	Email       string `gorm:"type:varchar(100)"                              json:"email,omitempty"`
	IsActive    bool   `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel
}

func (Teacher) TableName() string { return "teachers" }

// Room 教室表，对应 rooms；RoomCode 即课表中使用的教室标识
type Room struct {
	RoomID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"room_id"`
	RoomCode string `gorm:"type:varchar(30);not null;uniqueIndex"          json:"room_code"`
	Building string `gorm:"type:varchar(100)"                              json:"building,omitempty"`
	Capacity int    `gorm:"not null;default:0"                             json:"capacity"`
	IsActive bool   `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel
}

func (Room) TableName() string { return "rooms" }

// Student 学生表，对应 students
type Student struct {
	StudentID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	StudentCode string `gorm:"type:varchar(30);not null;uniqueIndex"          json:"student_code"`
	FullName    string `gorm:"type:varchar(100);not null"                     json:"full_name"`
	SoftDeleteModel
}

func (Student) TableName() string { return "students" }

package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Semester        SemesterRepository
	Class           ClassRepository
	Session         ClassSessionRepository
	Enrollment      EnrollmentRepository
	StudentSchedule StudentScheduleRepository
	ChangeLog       SessionChangeLogRepository
	Subject         SubjectRepository
	Teacher         TeacherRepository
	Room            RoomRepository
	Student         StudentRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:              db,
		Semester:        NewSemesterRepo(db),
		Class:           NewClassRepo(db),
		Session:         NewClassSessionRepo(db),
		Enrollment:      NewEnrollmentRepo(db),
		StudentSchedule: NewStudentScheduleRepo(db),
		ChangeLog:       NewSessionChangeLogRepo(db),
		Subject:         NewSubjectRepo(db),
		Teacher:         NewTeacherRepo(db),
		Room:            NewRoomRepo(db),
		Student:         NewStudentRepo(db),
	}
}

// BeginTx 开启事务；db 为 nil（单元测试 mock 场景）时返回 nil
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务连接的 Repository 副本；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Transaction 在事务中执行 fn，fn 返回错误时整体回滚
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

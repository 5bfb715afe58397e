package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
)

// SessionFilter 课次查询过滤条件
type SessionFilter struct {
	SessionType     string // IN_PERSON | E_LEARNING，空表示全部
	RescheduledOnly bool
	PendingOnly     bool
}

// ClassSessionRepository 课次数据访问接口
type ClassSessionRepository interface {
	BatchCreate(ctx context.Context, sessions []model.ClassSession) error
	GetByID(ctx context.Context, id string) (*model.ClassSession, error)
	ListByClass(ctx context.Context, classID string, filter SessionFilter) ([]model.ClassSession, error)
	// ListBySemester 返回学期内所有班级的课次（含 Class 关联），用于构建占用快照
	ListBySemester(ctx context.Context, semesterID string) ([]model.ClassSession, error)
	Update(ctx context.Context, session *model.ClassSession) error
	DeleteByClass(ctx context.Context, classID string) error
}

type classSessionRepo struct {
	db *gorm.DB
}

// NewClassSessionRepo 创建 ClassSessionRepository 实例
func NewClassSessionRepo(db *gorm.DB) ClassSessionRepository {
	return &classSessionRepo{db: db}
}

func (r *classSessionRepo) BatchCreate(ctx context.Context, sessions []model.ClassSession) error {
	if len(sessions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Class").Create(&sessions).Error
}

func (r *classSessionRepo) GetByID(ctx context.Context, id string) (*model.ClassSession, error) {
	var session model.ClassSession
	err := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Class.Semester").
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *classSessionRepo) ListByClass(ctx context.Context, classID string, filter SessionFilter) ([]model.ClassSession, error) {
	q := r.db.WithContext(ctx).Where("class_id = ?", classID)
	if filter.SessionType != "" {
		q = q.Where("session_type = ?", filter.SessionType)
	}
	if filter.RescheduledOnly {
		q = q.Where("is_rescheduled = ?", true)
	}
	if filter.PendingOnly {
		q = q.Where("is_pending = ?", true)
	}

	var sessions []model.ClassSession
	err := q.Order("session_number ASC").Find(&sessions).Error
	return sessions, err
}

func (r *classSessionRepo) ListBySemester(ctx context.Context, semesterID string) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Class.Subject").
		Joins("JOIN classes ON classes.class_id = class_sessions.class_id AND classes.deleted_at IS NULL").
		Where("classes.semester_id = ?", semesterID).
		Order("class_sessions.class_id, class_sessions.session_number").
		Find(&sessions).Error
	return sessions, err
}

func (r *classSessionRepo) Update(ctx context.Context, session *model.ClassSession) error {
	return r.db.WithContext(ctx).
		Model(&model.ClassSession{}).
		Where("session_id = ?", session.SessionID).
		Updates(map[string]interface{}{
			"is_pending":        session.IsPending,
			"original_date":     session.OriginalDate,
			"original_day":      session.OriginalDay,
			"original_slot":     session.OriginalSlot,
			"original_room":     session.OriginalRoom,
			"actual_date":       session.ActualDate,
			"actual_day":        session.ActualDay,
			"actual_slot":       session.ActualSlot,
			"actual_room":       session.ActualRoom,
			"is_rescheduled":    session.IsRescheduled,
			"reschedule_reason": session.RescheduleReason,
			"status":            session.Status,
			"updated_by":        session.UpdatedBy,
		}).Error
}

func (r *classSessionRepo) DeleteByClass(ctx context.Context, classID string) error {
	return r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Delete(&model.ClassSession{}).Error
}

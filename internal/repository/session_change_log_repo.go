package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
)

// SessionChangeLogRepository 课次变更日志数据访问接口
type SessionChangeLogRepository interface {
	Create(ctx context.Context, log *model.SessionChangeLog) error
	ListBySession(ctx context.Context, sessionID string, offset, limit int) ([]model.SessionChangeLog, int64, error)
}

type sessionChangeLogRepo struct {
	db *gorm.DB
}

// NewSessionChangeLogRepo 创建 SessionChangeLogRepository 实例
func NewSessionChangeLogRepo(db *gorm.DB) SessionChangeLogRepository {
	return &sessionChangeLogRepo{db: db}
}

func (r *sessionChangeLogRepo) Create(ctx context.Context, log *model.SessionChangeLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *sessionChangeLogRepo) ListBySession(ctx context.Context, sessionID string, offset, limit int) ([]model.SessionChangeLog, int64, error) {
	var logs []model.SessionChangeLog
	var total int64

	q := r.db.WithContext(ctx).Model(&model.SessionChangeLog{}).Where("session_id = ?", sessionID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&logs).Error
	return logs, total, err
}

package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
	pkgerrors "github.com/Project-UTH/EduCourseManagement-sub000/pkg/errors"
)

// SemesterRepository 学期数据访问接口
type SemesterRepository interface {
	Create(ctx context.Context, semester *model.Semester) error
	GetByID(ctx context.Context, id string) (*model.Semester, error)
	GetByCode(ctx context.Context, code string) (*model.Semester, error)
	GetCurrent(ctx context.Context) (*model.Semester, error)
	List(ctx context.Context, status string) ([]model.Semester, error)
	Update(ctx context.Context, semester *model.Semester) error
	Delete(ctx context.Context, id string, deletedBy string) error
	// CompleteActiveExcept 将除 exceptID 外所有 ACTIVE 学期置为 COMPLETED，返回受影响学期 ID
	CompleteActiveExcept(ctx context.Context, exceptID string, completedAt time.Time) ([]string, error)
}

type semesterRepo struct {
	db *gorm.DB
}

// NewSemesterRepo 创建 SemesterRepository 实例
func NewSemesterRepo(db *gorm.DB) SemesterRepository {
	return &semesterRepo{db: db}
}

func (r *semesterRepo) Create(ctx context.Context, semester *model.Semester) error {
	return r.db.WithContext(ctx).Create(semester).Error
}

func (r *semesterRepo) GetByID(ctx context.Context, id string) (*model.Semester, error) {
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Where("semester_id = ?", id).
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) GetByCode(ctx context.Context, code string) (*model.Semester, error) {
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) GetCurrent(ctx context.Context) (*model.Semester, error) {
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Where("status = ?", model.SemesterActive).
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) List(ctx context.Context, status string) ([]model.Semester, error) {
	var semesters []model.Semester
	q := r.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("start_date DESC").Find(&semesters).Error
	return semesters, err
}

func (r *semesterRepo) Update(ctx context.Context, semester *model.Semester) error {
	oldVersion := semester.Version
	result := r.db.WithContext(ctx).
		Model(semester).
		Where("semester_id = ? AND version = ?", semester.SemesterID, oldVersion).
		Updates(map[string]interface{}{
			"name":                    semester.Name,
			"start_date":              semester.StartDate,
			"end_date":                semester.EndDate,
			"status":                  semester.Status,
			"registration_enabled":    semester.RegistrationEnabled,
			"registration_start_date": semester.RegistrationStartDate,
			"registration_end_date":   semester.RegistrationEndDate,
			"activated_at":            semester.ActivatedAt,
			"completed_at":            semester.CompletedAt,
			"updated_by":              semester.UpdatedBy,
			"version":                 oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	semester.Version = oldVersion + 1
	return nil
}

func (r *semesterRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Semester{}).
		Where("semester_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *semesterRepo) CompleteActiveExcept(ctx context.Context, exceptID string, completedAt time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Semester{}).
		Where("status = ? AND semester_id <> ?", model.SemesterActive, exceptID).
		Pluck("semester_id", &ids).Error
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	err = r.db.WithContext(ctx).
		Model(&model.Semester{}).
		Where("semester_id IN ?", ids).
		Updates(map[string]interface{}{
			"status":       model.SemesterCompleted,
			"completed_at": completedAt,
			"version":      gorm.Expr("version + 1"),
		}).Error
	return ids, err
}

package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
	pkgerrors "github.com/Project-UTH/EduCourseManagement-sub000/pkg/errors"
)

// ClassFilter 班级列表过滤条件
type ClassFilter struct {
	SemesterID string
	TeacherID  string
	SubjectID  string
	Status     string
}

// ClassRepository 教学班数据访问接口
type ClassRepository interface {
	Create(ctx context.Context, class *model.Class) error
	GetByID(ctx context.Context, id string) (*model.Class, error)
	GetByCode(ctx context.Context, code string) (*model.Class, error)
	List(ctx context.Context, filter ClassFilter, offset, limit int) ([]model.Class, int64, error)
	ListBySemester(ctx context.Context, semesterID string) ([]model.Class, error)
	CountBySemester(ctx context.Context, semesterID string) (int64, error)
	Update(ctx context.Context, class *model.Class) error
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateStatusBySemester(ctx context.Context, semesterID string, from []string, to string) (int64, error)
	// AdjustEnrolled 原子调整已选人数并返回调整后的人数；delta>0 时不得超过容量，不满足条件返回 false
	AdjustEnrolled(ctx context.Context, id string, delta int) (int, bool, error)
	Delete(ctx context.Context, id string, deletedBy string) error
}

type classRepo struct {
	db *gorm.DB
}

// NewClassRepo 创建 ClassRepository 实例
func NewClassRepo(db *gorm.DB) ClassRepository {
	return &classRepo{db: db}
}

func (r *classRepo) Create(ctx context.Context, class *model.Class) error {
	return r.db.WithContext(ctx).Omit("Subject", "Teacher", "Semester").Create(class).Error
}

func (r *classRepo) GetByID(ctx context.Context, id string) (*model.Class, error) {
	var class model.Class
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Preload("Teacher").
		Preload("Semester").
		Where("class_id = ?", id).
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepo) GetByCode(ctx context.Context, code string) (*model.Class, error) {
	var class model.Class
	err := r.db.WithContext(ctx).
		Where("class_code = ?", code).
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepo) List(ctx context.Context, filter ClassFilter, offset, limit int) ([]model.Class, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Class{})
	if filter.SemesterID != "" {
		q = q.Where("semester_id = ?", filter.SemesterID)
	}
	if filter.TeacherID != "" {
		q = q.Where("teacher_id = ?", filter.TeacherID)
	}
	if filter.SubjectID != "" {
		q = q.Where("subject_id = ?", filter.SubjectID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var classes []model.Class
	err := q.Preload("Subject").
		Preload("Teacher").
		Order("class_code ASC").
		Offset(offset).
		Limit(limit).
		Find(&classes).Error
	return classes, total, err
}

func (r *classRepo) ListBySemester(ctx context.Context, semesterID string) ([]model.Class, error) {
	var classes []model.Class
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Preload("Teacher").
		Where("semester_id = ?", semesterID).
		Order("class_code ASC").
		Find(&classes).Error
	return classes, err
}

func (r *classRepo) CountBySemester(ctx context.Context, semesterID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Class{}).
		Where("semester_id = ?", semesterID).
		Count(&count).Error
	return count, err
}

func (r *classRepo) Update(ctx context.Context, class *model.Class) error {
	oldVersion := class.Version
	result := r.db.WithContext(ctx).
		Model(&model.Class{}).
		Where("class_id = ? AND version = ?", class.ClassID, oldVersion).
		Updates(map[string]interface{}{
			"teacher_id":   class.TeacherID,
			"max_students": class.MaxStudents,
			"status":       class.Status,
			"fixed_day":    class.FixedDay,
			"fixed_slot":   class.FixedSlot,
			"fixed_room":   class.FixedRoom,
			"updated_by":   class.UpdatedBy,
			"version":      oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	class.Version = oldVersion + 1
	return nil
}

func (r *classRepo) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.Class{}).
		Where("class_id = ?", id).
		Update("status", status).Error
}

func (r *classRepo) UpdateStatusBySemester(ctx context.Context, semesterID string, from []string, to string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Class{}).
		Where("semester_id = ? AND status IN ?", semesterID, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

func (r *classRepo) AdjustEnrolled(ctx context.Context, id string, delta int) (int, bool, error) {
	var updated model.Class
	q := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "enrolled_count"}}}).
		Where("class_id = ?", id)
	if delta > 0 {
		q = q.Where("enrolled_count + ? <= max_students", delta)
	} else {
		q = q.Where("enrolled_count + ? >= 0", delta)
	}
	result := q.Update("enrolled_count", gorm.Expr("enrolled_count + ?", delta))
	if result.Error != nil {
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}
	return updated.EnrolledCount, true, nil
}

func (r *classRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Class{}).
		Where("class_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

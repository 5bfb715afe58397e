package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
)

// EnrollmentRepository 选课记录数据访问接口
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	GetActive(ctx context.Context, studentID, classID string) (*model.Enrollment, error)
	ListActiveByClass(ctx context.Context, classID string) ([]model.Enrollment, error)
	CountActiveByClass(ctx context.Context, classID string) (int64, error)
	Update(ctx context.Context, enrollment *model.Enrollment) error
}

// StudentScheduleRepository 学生课表数据访问接口
type StudentScheduleRepository interface {
	BatchCreate(ctx context.Context, rows []model.StudentSchedule) error
	// FindConflict 查找学生在 (date, slot) 上来自其他班级的课表行，无冲突返回 gorm.ErrRecordNotFound
	FindConflict(ctx context.Context, studentID string, date time.Time, slot model.TimeSlot, excludeClassID string) (*model.StudentSchedule, error)
	ListByStudent(ctx context.Context, studentID, semesterID string, from, to *time.Time) ([]model.StudentSchedule, error)
	UpdateBySession(ctx context.Context, sessionID string, slot model.Slot) error
	DeleteByStudentAndClass(ctx context.Context, studentID, classID string) error
	DeleteByClass(ctx context.Context, classID string) error
}

// ── Enrollment Repository 实现 ──

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Omit("Student").Create(enrollment).Error
}

func (r *enrollmentRepo) GetActive(ctx context.Context, studentID, classID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND class_id = ? AND status = ?", studentID, classID, model.EnrollmentEnrolled).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepo) ListActiveByClass(ctx context.Context, classID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Where("class_id = ? AND status = ?", classID, model.EnrollmentEnrolled).
		Order("enrolled_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepo) CountActiveByClass(ctx context.Context, classID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("class_id = ? AND status = ?", classID, model.EnrollmentEnrolled).
		Count(&count).Error
	return count, err
}

func (r *enrollmentRepo) Update(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("enrollment_id = ?", enrollment.EnrollmentID).
		Updates(map[string]interface{}{
			"status":     enrollment.Status,
			"dropped_at": enrollment.DroppedAt,
			"updated_by": enrollment.UpdatedBy,
		}).Error
}

// ── StudentSchedule Repository 实现 ──

type studentScheduleRepo struct {
	db *gorm.DB
}

// NewStudentScheduleRepo 创建 StudentScheduleRepository 实例
func NewStudentScheduleRepo(db *gorm.DB) StudentScheduleRepository {
	return &studentScheduleRepo{db: db}
}

func (r *studentScheduleRepo) BatchCreate(ctx context.Context, rows []model.StudentSchedule) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Class").Create(&rows).Error
}

func (r *studentScheduleRepo) FindConflict(ctx context.Context, studentID string, date time.Time, slot model.TimeSlot, excludeClassID string) (*model.StudentSchedule, error) {
	var row model.StudentSchedule
	err := r.db.WithContext(ctx).
		Preload("Class").
		Where("student_id = ? AND session_date = ? AND time_slot = ? AND class_id <> ? AND status <> ?",
			studentID, date, slot, excludeClassID, model.StudentScheduleCancelled).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *studentScheduleRepo) ListByStudent(ctx context.Context, studentID, semesterID string, from, to *time.Time) ([]model.StudentSchedule, error) {
	q := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Class.Subject").
		Where("student_id = ?", studentID)
	if semesterID != "" {
		q = q.Where("semester_id = ?", semesterID)
	}
	if from != nil {
		q = q.Where("session_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("session_date <= ?", *to)
	}

	var rows []model.StudentSchedule
	err := q.Order("session_date ASC, time_slot ASC").Find(&rows).Error
	return rows, err
}

func (r *studentScheduleRepo) UpdateBySession(ctx context.Context, sessionID string, slot model.Slot) error {
	return r.db.WithContext(ctx).
		Model(&model.StudentSchedule{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"session_date": slot.Date,
			"day_of_week":  slot.Day,
			"time_slot":    slot.TimeSlot,
			"room":         slot.Room,
		}).Error
}

func (r *studentScheduleRepo) DeleteByStudentAndClass(ctx context.Context, studentID, classID string) error {
	return r.db.WithContext(ctx).
		Where("student_id = ? AND class_id = ?", studentID, classID).
		Delete(&model.StudentSchedule{}).Error
}

func (r *studentScheduleRepo) DeleteByClass(ctx context.Context, classID string) error {
	return r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Delete(&model.StudentSchedule{}).Error
}

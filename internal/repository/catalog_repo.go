package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
)

// 课程 / 教师 / 教室 / 学生 主数据只读访问接口

type SubjectRepository interface {
	GetByID(ctx context.Context, id string) (*model.Subject, error)
}

type TeacherRepository interface {
	GetByID(ctx context.Context, id string) (*model.Teacher, error)
}

type RoomRepository interface {
	GetByCode(ctx context.Context, code string) (*model.Room, error)
	// ListActive 按教室编码升序返回可用教室，补课分配按此顺序扫描
	ListActive(ctx context.Context) ([]model.Room, error)
}

type StudentRepository interface {
	GetByID(ctx context.Context, id string) (*model.Student, error)
}

type subjectRepo struct{ db *gorm.DB }

func NewSubjectRepo(db *gorm.DB) SubjectRepository { return &subjectRepo{db: db} }

func (r *subjectRepo) GetByID(ctx context.Context, id string) (*model.Subject, error) {
	var subject model.Subject
	if err := r.db.WithContext(ctx).Where("subject_id = ?", id).First(&subject).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

type teacherRepo struct{ db *gorm.DB }

func NewTeacherRepo(db *gorm.DB) TeacherRepository { return &teacherRepo{db: db} }

func (r *teacherRepo) GetByID(ctx context.Context, id string) (*model.Teacher, error) {
	var teacher model.Teacher
	if err := r.db.WithContext(ctx).Where("teacher_id = ?", id).First(&teacher).Error; err != nil {
		return nil, err
	}
	return &teacher, nil
}

type roomRepo struct{ db *gorm.DB }

func NewRoomRepo(db *gorm.DB) RoomRepository { return &roomRepo{db: db} }

func (r *roomRepo) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).Where("room_code = ?", code).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) ListActive(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("room_code ASC").
		Find(&rooms).Error
	return rooms, err
}

type studentRepo struct{ db *gorm.DB }

func NewStudentRepo(db *gorm.DB) StudentRepository { return &studentRepo{db: db} }

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var student model.Student
	if err := r.db.WithContext(ctx).Where("student_id = ?", id).First(&student).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

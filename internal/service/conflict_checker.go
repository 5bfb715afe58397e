package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/repository"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/calendar"
)

// ── 冲突检测错误 ──

// ErrScheduleConflict 教师或教室时间冲突
var ErrScheduleConflict = errors.New("排课时间冲突")

// 冲突维度
const (
	DimensionTeacher = "TEACHER"
	DimensionRoom    = "ROOM"
)

// ScheduleConflictError 描述一次具体冲突，errors.Is(err, ErrScheduleConflict) 为真
type ScheduleConflictError struct {
	Dimension         string
	Resource          string // 教师 ID 或教室编码
	Date              *time.Time
	Day               model.Weekday
	Slot              model.TimeSlot
	ConflictClassID   string
	ConflictSessionID string
}

func (e *ScheduleConflictError) Error() string {
	who := "教师"
	if e.Dimension == DimensionRoom {
		who = "教室"
	}
	when := fmt.Sprintf("%s %s", e.Day, e.Slot)
	if e.Date != nil {
		when = fmt.Sprintf("%s (%s) %s", calendar.FormatDate(*e.Date), e.Day, e.Slot)
	}
	return fmt.Sprintf("%s %s 在 %s 已被班级 %s 占用", who, e.Resource, when, e.ConflictClassID)
}

func (e *ScheduleConflictError) Unwrap() error { return ErrScheduleConflict }

// ── 查询粒度 ──

// Granularity 冲突检测粒度
type Granularity int

const (
	// PatternLevel 按 (星期, 节次) 比较，用于固定周课表：同一学期内每周都会重复
	PatternLevel Granularity = iota
	// DateLevel 按 (日期, 节次) 比较，用于单次调课与补课
	DateLevel
)

// SlotQuery 一次冲突查询
type SlotQuery struct {
	Level            Granularity
	Date             time.Time // DateLevel 时必填
	Day              model.Weekday
	Slot             model.TimeSlot
	ExcludeClassID   string // 忽略该班级的固定课表及其全部课次
	ExcludeSessionID string // 忽略单个课次（调课时排除自身）
}

// ════════════════════════════════════════════════════════════
// Occupancy 学期占用快照
// ════════════════════════════════════════════════════════════
//
// 条目有两类：
//   - 固定课表条目（date 为空）：来自班级的 fixed_day/fixed_slot/fixed_room
//   - 课次条目：来自已排课课次的生效时间地点，待排与线上课次不参与
//
// 按周模式查询时两类条目都按 (day, slot) 匹配；按日期查询只匹配课次条目。

type occupant struct {
	classID   string
	sessionID string
	teacherID string
	room      string
	date      *time.Time
	day       model.Weekday
	slot      model.TimeSlot
}

// Occupancy 学期内教师与教室的占用索引（非并发安全，由调用方持锁使用）
type Occupancy struct {
	entries []occupant
}

// NewOccupancy 由学期内班级与课次构建快照
func NewOccupancy(classes []model.Class, sessions []model.ClassSession) *Occupancy {
	o := &Occupancy{}
	teacherOf := make(map[string]string, len(classes))
	for i := range classes {
		o.AddClass(&classes[i])
		teacherOf[classes[i].ClassID] = classes[i].TeacherID
	}
	for i := range sessions {
		teacherID, ok := teacherOf[sessions[i].ClassID]
		if !ok && sessions[i].Class != nil {
			teacherID = sessions[i].Class.TeacherID
		}
		o.AddSession(&sessions[i], teacherID)
	}
	return o
}

// AddClass 登记班级固定课表
func (o *Occupancy) AddClass(c *model.Class) {
	o.entries = append(o.entries, occupant{
		classID:   c.ClassID,
		teacherID: c.TeacherID,
		room:      c.FixedRoom,
		day:       c.FixedDay,
		slot:      c.FixedSlot,
	})
}

// AddSession 登记课次生效时间；未排课、线上或已取消课次直接忽略
func (o *Occupancy) AddSession(s *model.ClassSession, teacherID string) {
	if !s.IsInPerson() || s.Status == model.SessionCancelled {
		return
	}
	slot, ok := s.EffectiveSlot()
	if !ok {
		return
	}
	date := slot.Date
	o.entries = append(o.entries, occupant{
		classID:   s.ClassID,
		sessionID: s.SessionID,
		teacherID: teacherID,
		room:      slot.Room,
		date:      &date,
		day:       slot.Day,
		slot:      slot.TimeSlot,
	})
}

// TeacherConflict 查找教师冲突，无冲突返回 nil
func (o *Occupancy) TeacherConflict(teacherID string, q SlotQuery) *ScheduleConflictError {
	e := o.find(q, func(e *occupant) bool { return e.teacherID == teacherID })
	if e == nil {
		return nil
	}
	return newConflict(DimensionTeacher, teacherID, q, e)
}

// RoomConflict 查找教室冲突，无冲突返回 nil
func (o *Occupancy) RoomConflict(room string, q SlotQuery) *ScheduleConflictError {
	e := o.find(q, func(e *occupant) bool { return e.room == room })
	if e == nil {
		return nil
	}
	return newConflict(DimensionRoom, room, q, e)
}

func (o *Occupancy) find(q SlotQuery, owner func(*occupant) bool) *occupant {
	for i := range o.entries {
		e := &o.entries[i]
		if q.ExcludeClassID != "" && e.classID == q.ExcludeClassID {
			continue
		}
		if q.ExcludeSessionID != "" && e.sessionID == q.ExcludeSessionID {
			continue
		}
		if e.slot != q.Slot || !owner(e) {
			continue
		}
		switch q.Level {
		case PatternLevel:
			if e.day == q.Day {
				return e
			}
		case DateLevel:
			if e.date != nil && calendar.SameDate(*e.date, q.Date) {
				return e
			}
		}
	}
	return nil
}

func newConflict(dimension, resource string, q SlotQuery, e *occupant) *ScheduleConflictError {
	c := &ScheduleConflictError{
		Dimension:         dimension,
		Resource:          resource,
		Day:               q.Day,
		Slot:              q.Slot,
		ConflictClassID:   e.classID,
		ConflictSessionID: e.sessionID,
	}
	if q.Level == DateLevel {
		d := calendar.DateOnly(q.Date)
		c.Date = &d
	}
	return c
}

// ════════════════════════════════════════════════════════════
// ConflictChecker 从仓储加载快照并检测
// ════════════════════════════════════════════════════════════

// ConflictChecker 教师/教室冲突检测
//
// 在事务内使用时应传入事务 Repository，保证读到的是同一视图。
type ConflictChecker struct {
	repo *repository.Repository
}

// NewConflictChecker 创建 ConflictChecker
func NewConflictChecker(repo *repository.Repository) *ConflictChecker {
	return &ConflictChecker{repo: repo}
}

// Snapshot 加载学期占用快照
func (c *ConflictChecker) Snapshot(ctx context.Context, semesterID string) (*Occupancy, error) {
	classes, err := c.repo.Class.ListBySemester(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	sessions, err := c.repo.Session.ListBySemester(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	return NewOccupancy(classes, sessions), nil
}

// TeacherConflict 检测教师在学期内的冲突
func (c *ConflictChecker) TeacherConflict(ctx context.Context, semesterID, teacherID string, q SlotQuery) (*ScheduleConflictError, error) {
	occ, err := c.Snapshot(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	return occ.TeacherConflict(teacherID, q), nil
}

// RoomConflict 检测教室在学期内的冲突
func (c *ConflictChecker) RoomConflict(ctx context.Context, semesterID, room string, q SlotQuery) (*ScheduleConflictError, error) {
	occ, err := c.Snapshot(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	return occ.RoomConflict(room, q), nil
}

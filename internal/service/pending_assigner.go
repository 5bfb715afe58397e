package service

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/calendar"
)

// assignSearchWeeks 待排课次的搜索窗口（从学期第一周起）
const assignSearchWeeks = 9

// AssignmentResult 单个班级的分配结果
type AssignmentResult struct {
	Assigned   []*model.ClassSession
	Unassigned []*model.ClassSession
}

// PendingAssigner 待排补课分配策略
//
// Assign 直接修改 sessions 中被分配的课次，并把新占用登记进 occ，
// 使同一次激活中后续班级能看到前面的分配结果。
type PendingAssigner interface {
	Assign(semester *model.Semester, class *model.Class, sessions []model.ClassSession,
		occ *Occupancy, rooms []model.Room) AssignmentResult
}

type greedyAssigner struct {
	logger *zap.Logger
}

// NewGreedyAssigner 创建贪心分配器
func NewGreedyAssigner(logger *zap.Logger) PendingAssigner {
	return &greedyAssigner{logger: logger}
}

// ════════════════════════════════════════════════════════════
// Assign 贪心：周 → 星期 → 节次 → 教室，命中即提交
// ════════════════════════════════════════════════════════════
//
// 候选星期为周一至周五去掉班级固定星期；
// 教师按日期检测，教室按周模式检测（只要该教室在某星期某节次被任何班级使用过即视为不可用）；
// 本班已占用的 (日期, 节次) 跳过。找不到位置的课次保持待排并记录告警。

func (a *greedyAssigner) Assign(semester *model.Semester, class *model.Class, sessions []model.ClassSession,
	occ *Occupancy, rooms []model.Room) AssignmentResult {
	var result AssignmentResult

	var pending []*model.ClassSession
	occupied := make(map[string]bool) // "date:slot"
	for i := range sessions {
		s := &sessions[i]
		if !s.IsInPerson() || s.Status == model.SessionCancelled {
			continue
		}
		if s.IsPending {
			pending = append(pending, s)
			continue
		}
		if slot, ok := s.EffectiveSlot(); ok {
			occupied[occupiedKey(slot.Date, slot.TimeSlot)] = true
		}
	}
	if len(pending) == 0 {
		return result
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].SessionNumber < pending[j].SessionNumber
	})

	days := make([]model.Weekday, 0, len(model.TeachingDays))
	for _, d := range model.TeachingDays {
		if d != class.FixedDay {
			days = append(days, d)
		}
	}

	sortedRooms := make([]model.Room, len(rooms))
	copy(sortedRooms, rooms)
	sort.Slice(sortedRooms, func(i, j int) bool {
		return sortedRooms[i].RoomCode < sortedRooms[j].RoomCode
	})

	firstWeek := calendar.WeekOf(semester.StartDate)
	for _, sess := range pending {
		slot, ok := a.findSlot(semester, class, firstWeek, days, sortedRooms, occupied, occ)
		if !ok {
			a.logger.Warn("补课无可用时间，保持待排",
				zap.String("class_code", class.ClassCode),
				zap.Int("session_number", sess.SessionNumber))
			result.Unassigned = append(result.Unassigned, sess)
			continue
		}
		sess.AssignOriginal(slot)
		occupied[occupiedKey(slot.Date, slot.TimeSlot)] = true
		occ.AddSession(sess, class.TeacherID)
		result.Assigned = append(result.Assigned, sess)
	}
	return result
}

func (a *greedyAssigner) findSlot(semester *model.Semester, class *model.Class, firstWeek time.Time,
	days []model.Weekday, rooms []model.Room, occupied map[string]bool, occ *Occupancy) (model.Slot, bool) {
	for week := 0; week < assignSearchWeeks; week++ {
		monday := calendar.AddWeeks(firstWeek, week)
		for _, day := range days {
			date := monday.AddDate(0, 0, calendar.MondayOffset(day.TimeWeekday()))
			if !calendar.Within(date, semester.StartDate, semester.EndDate) {
				continue
			}
			for _, ts := range model.TimeSlots {
				if occupied[occupiedKey(date, ts)] {
					continue
				}
				teacherQ := SlotQuery{Level: DateLevel, Date: date, Day: day, Slot: ts}
				if occ.TeacherConflict(class.TeacherID, teacherQ) != nil {
					continue
				}
				roomQ := SlotQuery{Level: PatternLevel, Day: day, Slot: ts}
				for _, room := range rooms {
					if occ.RoomConflict(room.RoomCode, roomQ) != nil {
						continue
					}
					return model.Slot{Date: date, Day: day, TimeSlot: ts, Room: room.RoomCode}, true
				}
			}
		}
	}
	return model.Slot{}, false
}

func occupiedKey(date time.Time, slot model.TimeSlot) string {
	return calendar.FormatDate(date) + ":" + string(slot)
}

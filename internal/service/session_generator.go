package service

import (
	"errors"
	"time"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/calendar"
)

// MaxFixedSessions 固定周课表最多生成的线下课次，其余线下课次作为补课待排
const MaxFixedSessions = 10

// ErrSubjectCreditsInvalid 课程未配置课次数且学分无效
var ErrSubjectCreditsInvalid = errors.New("课程未配置课次数且学分无效，无法生成课次")

// SessionBreakdown 课次构成
type SessionBreakdown struct {
	Total     int
	InPerson  int
	ELearning int
}

// 按学分推算的默认构成（线上 / 线下）
var creditBreakdown = map[int]SessionBreakdown{
	2: {Total: 10, ELearning: 5, InPerson: 5},
	3: {Total: 15, ELearning: 5, InPerson: 10},
	4: {Total: 20, ELearning: 5, InPerson: 15},
}

// ResolveBreakdown 确定课程的课次构成
//
// 课程显式配置且自洽（线下 + 线上 = 总数 > 0）时直接使用；
// 否则按学分推算，查表未命中时总数 = 学分 × 5，线上 = max(1, 总数/3)。
func ResolveBreakdown(subject *model.Subject) (SessionBreakdown, error) {
	if subject.TotalSessions > 0 &&
		subject.InPersonSessions >= 0 && subject.ELearningSessions >= 0 &&
		subject.InPersonSessions+subject.ELearningSessions == subject.TotalSessions {
		return SessionBreakdown{
			Total:     subject.TotalSessions,
			InPerson:  subject.InPersonSessions,
			ELearning: subject.ELearningSessions,
		}, nil
	}

	if b, ok := creditBreakdown[subject.Credits]; ok {
		return b, nil
	}
	if subject.Credits <= 0 {
		return SessionBreakdown{}, ErrSubjectCreditsInvalid
	}

	total := subject.Credits * 5
	eLearning := total / 3
	if eLearning < 1 {
		eLearning = 1
	}
	return SessionBreakdown{Total: total, ELearning: eLearning, InPerson: total - eLearning}, nil
}

// GenerateSessions 为班级生成全部课次（纯函数，不落库）
//
// 编号从 1 连续递增，顺序为：FIXED → EXTRA（待排）→ E_LEARNING。
// FIXED 从学期开始后第一个固定星期起每周一次，超出学期结束日即停止，
// 因此实际生成的 FIXED 可能少于 min(线下, 10)；线下课次中未生成 FIXED 的部分全部作为待排 EXTRA，
// 保证 线下 + 线上 == 总课次。
func GenerateSessions(class *model.Class, b SessionBreakdown, semesterStart, semesterEnd time.Time) []model.ClassSession {
	sessions := make([]model.ClassSession, 0, b.Total)
	number := 0
	next := func() int {
		number++
		return number
	}

	fixedCount := b.InPerson
	if fixedCount > MaxFixedSessions {
		fixedCount = MaxFixedSessions
	}

	date := calendar.FirstOccurrenceOnOrAfter(semesterStart, class.FixedDay.TimeWeekday())
	end := calendar.DateOnly(semesterEnd)
	created := 0
	for ; created < fixedCount && !date.After(end); created++ {
		s := model.ClassSession{
			ClassID:       class.ClassID,
			SessionNumber: next(),
			SessionType:   model.SessionInPerson,
			Category:      model.StringPtr(model.CategoryFixed),
			Status:        model.SessionScheduled,
		}
		s.AssignOriginal(model.Slot{
			Date:     date,
			Day:      class.FixedDay,
			TimeSlot: class.FixedSlot,
			Room:     class.FixedRoom,
		})
		sessions = append(sessions, s)
		date = calendar.AddWeeks(date, 1)
	}

	for i := 0; i < b.InPerson-created; i++ {
		sessions = append(sessions, model.ClassSession{
			ClassID:       class.ClassID,
			SessionNumber: next(),
			SessionType:   model.SessionInPerson,
			Category:      model.StringPtr(model.CategoryExtra),
			IsPending:     true,
			Status:        model.SessionScheduled,
		})
	}

	for i := 0; i < b.ELearning; i++ {
		sessions = append(sessions, model.ClassSession{
			ClassID:       class.ClassID,
			SessionNumber: next(),
			SessionType:   model.SessionELearning,
			Status:        model.SessionScheduled,
		})
	}

	return sessions
}

// summarizeSessions 统计课次构成
func summarizeSessions(sessions []model.ClassSession) (fixed, extra, pending, eLearning int) {
	for i := range sessions {
		s := &sessions[i]
		switch {
		case !s.IsInPerson():
			eLearning++
		case s.CategoryValue() == model.CategoryFixed:
			fixed++
		default:
			extra++
		}
		if s.IsPending {
			pending++
		}
	}
	return
}

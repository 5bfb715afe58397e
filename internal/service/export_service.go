package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/repository"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/calendar"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoClasses    = errors.New("该学期暂无教学班")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
type ExportService interface {
	// ExportClassSessions 导出教学班课次明细（含原始与调课时间）
	ExportClassSessions(ctx context.Context, classID string) (*bytes.Buffer, string, error)
	// ExportSemesterGrid 导出学期固定周课表：行为节次，列为星期
	ExportSemesterGrid(ctx context.Context, semesterID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var weekdayNames = map[model.Weekday]string{
	model.Monday:    "周一",
	model.Tuesday:   "周二",
	model.Wednesday: "周三",
	model.Thursday:  "周四",
	model.Friday:    "周五",
	model.Saturday:  "周六",
	model.Sunday:    "周日",
}

// ════════════════════════════════════════════════════════════
// ExportClassSessions
// ════════════════════════════════════════════════════════════
//
// 表头: | 序号 | 类型 | 类别 | 原始日期 | 原始星期 | 原始节次 | 原始教室 | 调课日期 | 调课星期 | 调课节次 | 调课教室 | 调课原因 | 状态 |
// 待排课次原始列显示"待排"，线上课次显示"线上"。

func (s *exportService) ExportClassSessions(ctx context.Context, classID string) (*bytes.Buffer, string, error) {
	class, err := s.repo.Class.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrClassNotFound
		}
		s.logger.Error("查询教学班失败", zap.String("class_id", classID), zap.Error(err))
		return nil, "", err
	}
	sessions, err := s.repo.Session.ListByClass(ctx, classID, repository.SessionFilter{})
	if err != nil {
		s.logger.Error("查询班级课次失败", zap.String("class_id", classID), zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "课次"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"序号", "类型", "类别", "原始日期", "原始星期", "原始节次", "原始教室",
		"调课日期", "调课星期", "调课节次", "调课教室", "调课原因", "状态"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	title := class.ClassCode
	if class.Subject != nil {
		title = fmt.Sprintf("%s %s", class.ClassCode, class.Subject.Name)
	}
	f.SetCellValue(sheetName, "A1", title+" 课次明细")
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(headers)-1), 2), headerStyle)
	f.SetColWidth(sheetName, "A", "C", 10)
	f.SetColWidth(sheetName, "D", "K", 12)
	f.SetColWidth(sheetName, "L", "L", 30)

	row := 3
	for i := range sessions {
		sess := &sessions[i]
		values := []interface{}{sess.SessionNumber, sess.SessionType, sess.CategoryValue()}

		switch p := sess.Placement().(type) {
		case model.Original:
			values = append(values, slotCells(p.Slot)...)
			values = append(values, "", "", "", "", "")
		case model.Rescheduled:
			values = append(values, slotCells(p.Original)...)
			values = append(values, slotCells(p.Actual)...)
			values = append(values, p.Reason)
		default:
			label := "待排"
			if !sess.IsInPerson() {
				label = "线上"
			}
			values = append(values, label, "", "", "", "", "", "", "", "")
		}
		values = append(values, sess.Status)

		for c, v := range values {
			f.SetCellValue(sheetName, cell(colName(c), row), v)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("课次_%s.xlsx", class.ClassCode), nil
}

// ════════════════════════════════════════════════════════════
// ExportSemesterGrid
// ════════════════════════════════════════════════════════════
//
// 行头：节次（CA1~CA5 与起止时间）；列头：周一 ~ 周日；
// 单元格：该星期该节次的全部班级，每行 "班级编码 (教室)"。

func (s *exportService) ExportSemesterGrid(ctx context.Context, semesterID string) (*bytes.Buffer, string, error) {
	semester, err := s.repo.Semester.GetByID(ctx, semesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", semesterID), zap.Error(err))
		return nil, "", err
	}
	classes, err := s.repo.Class.ListBySemester(ctx, semesterID)
	if err != nil {
		s.logger.Error("查询学期班级失败", zap.String("id", semesterID), zap.Error(err))
		return nil, "", err
	}
	if len(classes) == 0 {
		return nil, "", ErrExportNoClasses
	}

	// "day:slot" → []"code (room)"
	grid := make(map[string][]string)
	for _, c := range classes {
		key := string(c.FixedDay) + ":" + string(c.FixedSlot)
		grid[key] = append(grid[key], fmt.Sprintf("%s (%s)", c.ClassCode, c.FixedRoom))
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "周课表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	lastCol := colName(len(model.Weekdays) + 1)
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s (%s ~ %s) 周课表", semester.Name,
		calendar.FormatDate(semester.StartDate), calendar.FormatDate(semester.EndDate)))
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	f.SetCellValue(sheetName, "A2", "节次")
	f.SetCellValue(sheetName, "B2", "时间")
	for i, d := range model.Weekdays {
		f.SetCellValue(sheetName, cell(colName(2+i), 2), weekdayNames[d])
	}
	f.SetCellStyle(sheetName, "A2", cell(lastCol, 2), headerStyle)
	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 14)
	f.SetColWidth(sheetName, colName(2), lastCol, 22)

	row := 3
	for _, ts := range model.TimeSlots {
		period := ts.Period()
		f.SetCellValue(sheetName, cell("A", row), string(ts))
		f.SetCellValue(sheetName, cell("B", row), fmt.Sprintf("%s-%s", period.Start, period.End))
		for i, d := range model.Weekdays {
			text := "-"
			if entries := grid[string(d)+":"+string(ts)]; len(entries) > 0 {
				text = strings.Join(entries, "\n")
			}
			f.SetCellValue(sheetName, cell(colName(2+i), row), text)
		}
		f.SetCellStyle(sheetName, cell(colName(2), row), cell(lastCol, row), wrapStyle)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("周课表_%s.xlsx", semester.Code), nil
}

// ── 辅助函数 ──

func slotCells(slot model.Slot) []interface{} {
	return []interface{}{calendar.FormatDate(slot.Date), weekdayNames[slot.Day], string(slot.TimeSlot), slot.Room}
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

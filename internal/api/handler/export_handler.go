package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/service"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportClassSessions 导出教学班课次明细
// GET /api/v1/export/classes/:id/sessions
func (h *ExportHandler) ExportClassSessions(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportClassSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	writeXLSX(c, buf, filename)
}

// ExportSemesterGrid 导出学期固定周课表
// GET /api/v1/export/semesters/:id/grid
func (h *ExportHandler) ExportSemesterGrid(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportSemesterGrid(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	writeXLSX(c, buf, filename)
}

func writeXLSX(c *gin.Context, buf *bytes.Buffer, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	if handleCatalogError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrExportNoClasses):
		response.NotFound(c, 19001, "该学期暂无教学班")
	default:
		// 含 ErrExportGenerateFail
		response.InternalError(c)
	}
}

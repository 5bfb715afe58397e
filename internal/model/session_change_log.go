package model

import (
	"time"

	"gorm.io/datatypes"
)

// 课次变更类型
const (
	ChangeAssign     = "assign"     // 激活学期时自动分配补课
	ChangeManual     = "manual"     // 手工为待排课次指定时间
	ChangeReschedule = "reschedule" // 调课
	ChangeReset      = "reset"      // 恢复原始排课
)

// SessionChangeLog 课次变更记录表，对应 session_change_logs（纯审计日志）
type SessionChangeLog struct {
	ChangeLogID string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"change_log_id"`
	SessionID   string         `gorm:"type:uuid;not null;index"                       json:"session_id"`
	ClassID     string         `gorm:"type:uuid;not null"                             json:"class_id"`
	ChangeType  string         `gorm:"type:varchar(20);not null"                      json:"change_type"`
	Before      datatypes.JSON `gorm:"type:jsonb"                                     json:"before,omitempty"`
	After       datatypes.JSON `gorm:"type:jsonb"                                     json:"after,omitempty"`
	Reason      string         `gorm:"type:varchar(500)"                              json:"reason,omitempty"`
	OperatorID  *string        `gorm:"type:uuid"                                      json:"operator_id,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (SessionChangeLog) TableName() string { return "session_change_logs" }

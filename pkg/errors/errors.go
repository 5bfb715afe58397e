// Package errors 存放跨层共享的基础设施错误，业务错误定义在各 Service 中
package errors

import "errors"

var (
	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

	// ErrResourceBusy 分布式锁被占用：同一学期或同一学生的写操作正在进行
	ErrResourceBusy = errors.New("排课数据正被其他操作修改，请稍后重试")
)

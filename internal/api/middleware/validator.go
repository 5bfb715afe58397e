package middleware

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
)

// 自定义校验标签
const (
	weekdayTag  = "weekday"
	timeSlotTag = "timeslot"
)

// RegisterValidators 向 gin 默认校验器注册排课相关规则，启动时调用一次
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("注册校验规则失败: 非 validator/v10 引擎")
	}

	// 错误信息中使用 json 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation(weekdayTag, func(fl validator.FieldLevel) bool {
		return model.Weekday(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation(timeSlotTag, func(fl validator.FieldLevel) bool {
		return model.TimeSlot(fl.Field().String()).Valid()
	})
}

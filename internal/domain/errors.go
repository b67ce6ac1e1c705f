package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// 领域错误分类。
// HTTP 层负责映射为状态码，本包不做任何日志/重试。
var (
	// ErrInvalidArgument 调用方输入问题：电话无法规范化、缺少租户等（对应 4xx）
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound 记录不存在（对应 404）
	ErrNotFound = errors.New("not found")

	// ErrUniquenessConflict 唯一约束冲突：并发写竞争失败（对应 409/422）
	ErrUniquenessConflict = errors.New("uniqueness conflict")

	// ErrLimitExceeded 超出套餐（AgencyPlan）限额
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrForbidden 跨租户访问或权限不足
	ErrForbidden = errors.New("forbidden")
)

// ValidationError 字段级校验失败（对应 422），携带 field -> messages 映射
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError 创建空的校验错误收集器
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add 追加一条字段错误
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors 是否收集到了错误
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// ErrOrNil 没有错误时返回 nil，方便 `return v.ErrOrNil()`
func (e *ValidationError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e.Fields[f], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// IsValidationError 判断错误链中是否包含 ValidationError
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// InvalidArgumentf 构造带说明的 ErrInvalidArgument
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidArgument)...)
}

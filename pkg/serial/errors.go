package serial

import (
	"errors"
	"fmt"
)

// Kind 序列化错误类别
type Kind int

const (
	// KindUnknown 契约违反，无法继续编码（例如消息没有声明大小）
	KindUnknown Kind = iota
	// KindInvalidData 输入数据格式错误或长度不足
	KindInvalidData
)

// String 返回错误类别名称
func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "Unknown"
	case KindInvalidData:
		return "InvalidData"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	// ErrUnknown 用于 errors.Is 匹配 KindUnknown
	ErrUnknown = errors.New("serial: unknown")
	// ErrInvalidData 用于 errors.Is 匹配 KindInvalidData
	ErrInvalidData = errors.New("serial: invalid data")
)

// Error 序列化错误
// 两类错误对引发它的调用都是终止性的，不会返回部分结果
type Error struct {
	Kind   Kind
	Reason string
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return fmt.Sprintf("serial: %s: %s", e.Kind, e.Reason)
}

// Is 支持 errors.Is(err, ErrUnknown) / errors.Is(err, ErrInvalidData)
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnknown:
		return e.Kind == KindUnknown
	case ErrInvalidData:
		return e.Kind == KindInvalidData
	}
	return false
}

// Unknown 创建 KindUnknown 错误
func Unknown(reason string) error {
	return &Error{Kind: KindUnknown, Reason: reason}
}

// InvalidData 创建 KindInvalidData 错误
func InvalidData(reason string) error {
	return &Error{Kind: KindInvalidData, Reason: reason}
}

// InvalidDataf 格式化创建 KindInvalidData 错误
func InvalidDataf(format string, args ...any) error {
	return &Error{Kind: KindInvalidData, Reason: fmt.Sprintf(format, args...)}
}

// IsUnknown 检查错误是否为 KindUnknown
func IsUnknown(err error) bool {
	return errors.Is(err, ErrUnknown)
}

// IsInvalidData 检查错误是否为 KindInvalidData
func IsInvalidData(err error) bool {
	return errors.Is(err, ErrInvalidData)
}

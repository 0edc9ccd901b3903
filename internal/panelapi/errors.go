package panelapi

import (
	"fmt"

	"github.com/pkg/errors"
)

// TransportError 网络失败或响应体无法解析
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AppError 传输成功，但回包表示失败。Message 为服务端给出的文案，可能为空。
type AppError struct {
	Op      string
	Status  int
	Message string
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rejected (status %d)", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: rejected (status %d): %s", e.Op, e.Status, e.Message)
}

// IsTransport 是否为传输层失败
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AppMessage 返回服务端提供的失败文案；非 AppError 或文案为空时返回 ""
func AppMessage(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return ""
}

// MessageOr 服务端文案优先，否则使用兜底文案
func MessageOr(err error, fallback string) string {
	if msg := AppMessage(err); msg != "" {
		return msg
	}
	return fallback
}

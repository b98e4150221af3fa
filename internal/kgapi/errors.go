package kgapi

import (
	"errors"
	"fmt"
)

// LogicalError 传输成功、响应可解析但 success=false
// LogicalError means the transport succeeded and the response parsed, but success was false.
type LogicalError struct {
	Op      Op
	Message string // 服务端 error 字段，可能为空 / server error field, may be empty
}

func (e *LogicalError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: unsuccessful response", e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// TransportError 网络、状态或解析失败
// TransportError is a network, status or parse failure
type TransportError struct {
	Op  Op
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsLogical 报告 err 是否为逻辑失败，并返回服务端消息
// IsLogical reports whether err is a logical failure and returns the server message
func IsLogical(err error) (string, bool) {
	var le *LogicalError
	if errors.As(err, &le) {
		return le.Message, true
	}
	return "", false
}

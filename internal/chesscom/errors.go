package chesscom

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind 上游错误分类
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindRequestFailed ErrorKind = "request_failed"
	KindTimeout       ErrorKind = "timeout"
)

// UpstreamError Chess.com 调用失败。NotFound 属于数据结果（记录到 error 列），
// RequestFailed/Timeout 为传输失败，本轮跳过、下一轮重试。
type UpstreamError struct {
	Kind     ErrorKind
	Method   string
	Username string
	Status   int    // HTTP 状态码，传输层失败时为 0
	Message  string // 上游返回的提示信息
	// Ambiguous 仅凭 code==0 判定为 not found，提示文本里并没有 "not found"
	Ambiguous bool
	Err       error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("chesscom %s username=%s: %s", e.Method, e.Username, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// KindOf 返回错误分类；非 UpstreamError 返回空串
func KindOf(err error) ErrorKind {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return ""
}

// IsNotFound 是否为"棋手/资源不存在"
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// transportError 把 http.Client / 限流器返回的错误归类
func transportError(method, username string, err error) *UpstreamError {
	kind := KindRequestFailed
	if isTimeout(err) {
		kind = KindTimeout
	}
	return &UpstreamError{Kind: kind, Method: method, Username: username, Err: err}
}

package chesscom

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Classification 响应体层面的 not found 判定结果
type Classification struct {
	NotFound  bool
	Message   string
	Ambiguous bool
}

// ClassifyNotFound 检查响应体是否表示"不存在"。上游有时返回 404，有时在 200 的
// 响应体里塞错误对象，因此：
//   - message/error 字段为字符串且包含 "not found"（不区分大小写）；
//   - 或 code == 0 且带字符串 message，此时标记 Ambiguous，调用方需记录告警。
//
// HTTP 404 由调用方单独判断。
func ClassifyNotFound(payload []byte) Classification {
	if !gjson.ValidBytes(payload) {
		return Classification{}
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return Classification{}
	}

	message, hasMessage := payloadMessage(root)
	if hasMessage && strings.Contains(strings.ToLower(message), "not found") {
		return Classification{NotFound: true, Message: message}
	}

	code := root.Get("code")
	if code.Type == gjson.Number && code.Num == 0 && hasMessage {
		return Classification{NotFound: true, Message: message, Ambiguous: true}
	}
	return Classification{}
}

// payloadMessage 依次取 message、error 中第一个非空字符串
func payloadMessage(root gjson.Result) (string, bool) {
	for _, key := range []string{"message", "error"} {
		v := root.Get(key)
		if v.Type == gjson.String && v.Str != "" {
			return v.Str, true
		}
	}
	return "", false
}

package model

import "strings"

// Platform 棋手所在的在线平台
type Platform string

const (
	PlatformChesscom Platform = "chesscom"
	PlatformLichess  Platform = "lichess"
)

// AllowedPlatforms 名单中允许出现的平台取值
var AllowedPlatforms = []Platform{PlatformChesscom, PlatformLichess}

// ParsePlatform 大小写不敏感地解析平台；空串返回默认平台 chesscom
func ParsePlatform(s string) (Platform, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PlatformChesscom, true
	}
	for _, p := range AllowedPlatforms {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// TrackedEntity 被跟踪的棋手，每轮从名单文件加载一次，轮内只读
type TrackedEntity struct {
	Username   string   `json:"username"`
	Platform   Platform `json:"online_platform"`
	PlayerName *string  `json:"player_name,omitempty"`
}

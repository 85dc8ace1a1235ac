// Package roster 加载并校验被跟踪的棋手名单
package roster

import (
	"fmt"
	"os"
	"strings"

	"ChessSync/internal/model"

	"gopkg.in/yaml.v3"
)

// ValidationError 名单条目非法；启动期致命错误，不允许部分加载
type ValidationError struct {
	Index  int    // 条目在 players 列表中的下标
	Field  string // 出错字段
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("players[%d].%s=%q: %s", e.Index, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("players[%d].%s: %s", e.Index, e.Field, e.Reason)
}

type rosterFile struct {
	Players []rosterEntry `yaml:"players"`
}

type rosterEntry struct {
	Username       *string `yaml:"username"`
	OnlinePlatform *string `yaml:"online_platform"`
	PlayerName     *string `yaml:"player_name"`
}

// Load 读取名单文件，保持文件中的顺序
func Load(path string) ([]model.TrackedEntity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取名单文件失败: %w", err)
	}
	return Parse(data)
}

// Parse 解析名单内容
func Parse(data []byte) ([]model.TrackedEntity, error) {
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析名单文件失败: %w", err)
	}

	players := make([]model.TrackedEntity, 0, len(f.Players))
	seen := make(map[string]int, len(f.Players))
	for i, p := range f.Players {
		username := noneIfBlank(p.Username)
		if username == nil {
			return nil, &ValidationError{Index: i, Field: "username", Reason: "每个棋手都必须填写 username"}
		}
		if first, dup := seen[strings.ToLower(*username)]; dup {
			return nil, &ValidationError{
				Index:  i,
				Field:  "username",
				Value:  *username,
				Reason: fmt.Sprintf("与 players[%d] 重复", first),
			}
		}
		seen[strings.ToLower(*username)] = i

		raw := ""
		if p.OnlinePlatform != nil {
			raw = *p.OnlinePlatform
		}
		platform, ok := model.ParsePlatform(raw)
		if !ok {
			return nil, &ValidationError{
				Index:  i,
				Field:  "online_platform",
				Value:  raw,
				Reason: fmt.Sprintf("必须是 %v 之一", model.AllowedPlatforms),
			}
		}

		players = append(players, model.TrackedEntity{
			Username:   *username,
			Platform:   platform,
			PlayerName: noneIfBlank(p.PlayerName),
		})
	}
	return players, nil
}

// noneIfBlank 空白字符串归一为 nil
func noneIfBlank(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Filter 按用户名过滤（不区分大小写），usernames 为空表示全部；保持名单顺序
func Filter(players []model.TrackedEntity, usernames []string) []model.TrackedEntity {
	if len(usernames) == 0 {
		return players
	}
	want := make(map[string]struct{}, len(usernames))
	for _, u := range usernames {
		want[strings.ToLower(strings.TrimSpace(u))] = struct{}{}
	}
	out := make([]model.TrackedEntity, 0, len(usernames))
	for _, p := range players {
		if _, ok := want[strings.ToLower(p.Username)]; ok {
			out = append(out, p)
		}
	}
	return out
}

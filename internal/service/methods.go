package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ChessSync/internal/chesscom"
	"ChessSync/internal/interfaces"
	"ChessSync/internal/model"
)

// FetchFunc 快照方法的固定调用方式：只需要用户名
type FetchFunc func(ctx context.Context, api interfaces.ChesscomAPI, username string) (json.RawMessage, error)

// SnapshotMethod 快照方法与其事实表的对应关系
type SnapshotMethod struct {
	Key   string // 短名，HTTP/CLI 使用
	Name  string // 写入 method 列的取值
	Table string
	Fetch FetchFunc
}

var snapshotMethods = []SnapshotMethod{
	{
		Key: "profile", Name: chesscom.MethodProfile, Table: model.TablePlayer,
		Fetch: func(ctx context.Context, api interfaces.ChesscomAPI, u string) (json.RawMessage, error) {
			return api.FetchProfile(ctx, u)
		},
	},
	{
		Key: "archives", Name: chesscom.MethodArchives, Table: model.TableArchives,
		Fetch: func(ctx context.Context, api interfaces.ChesscomAPI, u string) (json.RawMessage, error) {
			return api.FetchArchives(ctx, u)
		},
	},
	{
		Key: "stats", Name: chesscom.MethodStats, Table: model.TableStats,
		Fetch: func(ctx context.Context, api interfaces.ChesscomAPI, u string) (json.RawMessage, error) {
			return api.FetchStats(ctx, u)
		},
	},
	{
		Key: "games_to_move", Name: chesscom.MethodGamesToMove, Table: model.TableGamesToMove,
		Fetch: func(ctx context.Context, api interfaces.ChesscomAPI, u string) (json.RawMessage, error) {
			return api.FetchGamesToMove(ctx, u)
		},
	},
	{
		Key: "tournaments", Name: chesscom.MethodTournaments, Table: model.TableTournaments,
		Fetch: func(ctx context.Context, api interfaces.ChesscomAPI, u string) (json.RawMessage, error) {
			return api.FetchTournaments(ctx, u)
		},
	},
}

// SnapshotMethods 全部快照方法，顺序与事实表一致
func SnapshotMethods() []SnapshotMethod {
	return append([]SnapshotMethod(nil), snapshotMethods...)
}

// LookupMethod 按短名、方法名或表名查找，不区分大小写
func LookupMethod(name string) (SnapshotMethod, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range snapshotMethods {
		if name == m.Key || name == m.Name || name == m.Table {
			return m, true
		}
	}
	return SnapshotMethod{}, false
}

// ResolveMethods 把配置中的方法列表解析为快照方法，空列表表示全部
func ResolveMethods(names []string) ([]SnapshotMethod, error) {
	if len(names) == 0 {
		return SnapshotMethods(), nil
	}
	out := make([]SnapshotMethod, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		m, ok := LookupMethod(n)
		if !ok {
			return nil, fmt.Errorf("未知快照方法: %s", n)
		}
		if _, dup := seen[m.Name]; dup {
			continue
		}
		seen[m.Name] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}

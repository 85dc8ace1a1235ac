package interfaces

import (
	"context"
	"encoding/json"
	"time"
)

// ChesscomAPI Chess.com 上游接口，chesscom.Client 为唯一实现，测试中可替换
type ChesscomAPI interface {
	FetchProfile(ctx context.Context, username string) (json.RawMessage, error)     // /player/{u}
	FetchArchives(ctx context.Context, username string) (json.RawMessage, error)    // 月度归档列表
	FetchStats(ctx context.Context, username string) (json.RawMessage, error)       // 各棋种等级分
	FetchGamesToMove(ctx context.Context, username string) (json.RawMessage, error) // 待走棋的每日对局
	FetchTournaments(ctx context.Context, username string) (json.RawMessage, error) // 参加过的比赛
	// FetchGames 窗口 [from, to] 内的已结束对局，from 为 nil 时不设下界
	FetchGames(ctx context.Context, username string, from *time.Time, to time.Time) (json.RawMessage, error)
}

package interfaces

import (
	"context"
	"time"

	"ChessSync/internal/model"
)

// GameRepository 对局表写入
type GameRepository interface {
	// UpsertGames 在同一事务内按 (username, game_url) 覆盖写入，返回写入行数
	UpsertGames(ctx context.Context, rows []*model.GameRecord) (int, error)
}

// WatermarkTracker 棋手已入库对局的最大结束时间，每次调用都查库
type WatermarkTracker interface {
	Latest(ctx context.Context, username string) (*time.Time, error)
}

// SnapshotRepository 快照事实表写入，只追加
type SnapshotRepository interface {
	InsertRecords(ctx context.Context, table string, rows []*model.IngestionRecord) (int, error)
}

// RosterSource 棋手名单来源
type RosterSource interface {
	Players() ([]model.TrackedEntity, error)
}

package model

import (
	"time"

	"gorm.io/datatypes"
)

// IngestionRecord 快照轮询事实表（player/archives/player_stats/...），只追加。
// 每次轮询无论成功失败都写一行，失败时 payload 为空、error 记录原因。
// 各方法共用同一结构，表名由仓储层按方法决定。
type IngestionRecord struct {
	Method        string         `gorm:"column:method;not null"`
	Username      string         `gorm:"column:username;not null"`
	IngestedAtUTC time.Time      `gorm:"column:ingested_at_utc;not null"`
	Payload       datatypes.JSON `gorm:"column:payload"`
	Error         *string        `gorm:"column:error"`
}

// GameRecord 对局表，(username, game_url) 为自然键，重复写入以最后一次为准
type GameRecord struct {
	Username      string         `gorm:"column:username;not null;uniqueIndex:uq_games_username_game_url,priority:1"`
	PlayerName    *string        `gorm:"column:player_name"`
	GameURL       string         `gorm:"column:game_url;not null;uniqueIndex:uq_games_username_game_url,priority:2"`
	EndTimeUTC    *time.Time     `gorm:"column:end_time_utc"`
	IngestedAtUTC time.Time      `gorm:"column:ingested_at_utc;not null"`
	Payload       datatypes.JSON `gorm:"column:payload"`
	Error         *string        `gorm:"column:error"`
}

// GameUpsertColumns 冲突时覆盖的列
var GameUpsertColumns = []string{"player_name", "end_time_utc", "ingested_at_utc", "payload", "error"}

// 源表名（不含 schema）
const (
	TableGames       = "games"
	TablePlayer      = "player"
	TableArchives    = "archives"
	TableStats       = "player_stats"
	TableGamesToMove = "games_to_move"
	TableTournaments = "tournaments"
)

// SnapshotTables 快照事实表，顺序即轮询顺序
var SnapshotTables = []string{TablePlayer, TableArchives, TableStats, TableGamesToMove, TableTournaments}

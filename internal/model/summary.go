package model

import "time"

// IngestionSummary 一轮对局增量同步的统计，部分失败时也会返回
type IngestionSummary struct {
	RunID           string `json:"run_id"`
	PlayersSeen     int    `json:"players_seen"`
	PlayersIngested int    `json:"players_ingested"`
	GamesUpserted   int    `json:"games_upserted"`
}

// SnapshotSummary 一次快照轮询的统计
type SnapshotSummary struct {
	Method         string    `json:"method"`
	PlayersSeen    int       `json:"players_seen"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	RecordsWritten int       `json:"records_written"`
	IngestedAt     time.Time `json:"ingested_at_utc"`
}

package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkUnitReasonNewGames 检测到新对局
const WorkUnitReasonNewGames = "new_games"

// workUnitNamespace 生成 WorkUnit 幂等 token 的 UUIDv5 命名空间
var workUnitNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://api.chess.com/pub/player/games"))

// WorkUnitEvidence 触发依据
type WorkUnitEvidence struct {
	Count      int        `json:"count"`
	MaxEndTime *time.Time `json:"max_end_time"`
}

// WorkUnit 检测器产出的"某棋手有新对局"信号，由调度方转换为单棋手的同步任务。
// RunKey/Token 只由 (username, max_end_time) 决定，状态不变时多次检测得到相同值。
type WorkUnit struct {
	Username string           `json:"username"`
	Reason   string           `json:"reason"`
	Evidence WorkUnitEvidence `json:"evidence"`
	RunKey   string           `json:"run_key"`
	Token    uuid.UUID        `json:"token"`
}

// NewWorkUnit 构建新对局 WorkUnit
func NewWorkUnit(username string, count int, maxEnd *time.Time) WorkUnit {
	key := RunKey(username, maxEnd)
	return WorkUnit{
		Username: username,
		Reason:   WorkUnitReasonNewGames,
		Evidence: WorkUnitEvidence{Count: count, MaxEndTime: maxEnd},
		RunKey:   key,
		Token:    uuid.NewSHA1(workUnitNamespace, []byte(key)),
	}
}

// RunKey 格式：chesscom_games:<username>:<max_end RFC3339 | unknown>
func RunKey(username string, maxEnd *time.Time) string {
	end := "unknown"
	if maxEnd != nil {
		end = maxEnd.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("chesscom_games:%s:%s", username, end)
}

package service

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"ChessSync/internal/chesscom"
	"ChessSync/internal/model"

	"github.com/tidwall/gjson"
	"gorm.io/datatypes"
)

// endTimeOf 读取对局 end_time（epoch 秒），非数值返回 nil
func endTimeOf(game []byte) *time.Time {
	v := gjson.GetBytes(game, "end_time")
	if v.Type != gjson.Number {
		return nil
	}
	sec, frac := math.Modf(v.Num)
	t := time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
	return &t
}

// gameRecords 把对局列表转换为入库行：丢弃缺少 url 的对局，同一 url 只保留最后一次出现
func gameRecords(entity model.TrackedEntity, games []json.RawMessage, ingestedAt time.Time) []*model.GameRecord {
	rows := make([]*model.GameRecord, 0, len(games))
	index := make(map[string]int, len(games))
	for _, g := range games {
		url := gjson.GetBytes(g, "url")
		if url.Type != gjson.String || url.Str == "" {
			continue
		}
		row := &model.GameRecord{
			Username:      entity.Username,
			PlayerName:    entity.PlayerName,
			GameURL:       url.Str,
			EndTimeUTC:    endTimeOf(g),
			IngestedAtUTC: ingestedAt,
			Payload:       datatypes.JSON(append([]byte(nil), g...)),
		}
		if i, dup := index[row.GameURL]; dup {
			rows[i] = row
			continue
		}
		index[row.GameURL] = len(rows)
		rows = append(rows, row)
	}
	return rows
}

// maxEndTime 所有数值 end_time 的最大值
func maxEndTime(games []json.RawMessage) *time.Time {
	var latest *time.Time
	for _, g := range games {
		if t := endTimeOf(g); t != nil && (latest == nil || t.After(*latest)) {
			latest = t
		}
	}
	return latest
}

// errorText 快照失败写入 error 列的文本
func errorText(err error) string {
	var ue *chesscom.UpstreamError
	if errors.As(err, &ue) && ue.Kind == chesscom.KindNotFound {
		if ue.Message != "" {
			return "not_found: " + ue.Message
		}
		return "not_found"
	}
	return err.Error()
}

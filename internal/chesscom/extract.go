package chesscom

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// ExtractGames 把 FetchGames 的按月结果摊平成对局列表：先按月份出现顺序，再按月内数组顺序。
// 缺少 months 或结构不符时返回空列表。
func ExtractGames(payload []byte) []json.RawMessage {
	var games []json.RawMessage
	months := gjson.GetBytes(payload, "months")
	if !months.IsObject() {
		return games
	}
	months.ForEach(func(_, month gjson.Result) bool {
		list := month.Get("games")
		if !list.IsArray() {
			return true
		}
		list.ForEach(func(_, g gjson.Result) bool {
			games = append(games, json.RawMessage(g.Raw))
			return true
		})
		return true
	})
	return games
}

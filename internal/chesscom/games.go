package chesscom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// archiveMonth 月度归档地址及其年月
type archiveMonth struct {
	Year  int
	Month time.Month
	URL   string
}

func (m archiveMonth) key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m archiveMonth) start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// overlaps 判断该月是否与 [from, to] 有交集；from 为 nil 表示不设下界
func (m archiveMonth) overlaps(from *time.Time, to time.Time) bool {
	start := m.start()
	end := start.AddDate(0, 1, 0)
	if start.After(to) {
		return false
	}
	if from != nil && !end.After(*from) {
		return false
	}
	return true
}

// FetchGames 拉取窗口 [from, to] 内已结束的对局，按月分组返回：
//
//	{"months": {"2024-01": {"games": [...]}, ...}}
//
// 月份按时间先后排列；没有对局时 months 为空对象。
func (c *Client) FetchGames(ctx context.Context, username string, from *time.Time, to time.Time) (json.RawMessage, error) {
	archivesPayload, err := c.FetchArchives(ctx, username)
	if err != nil {
		return nil, err
	}
	months := parseArchiveMonths(archivesPayload)

	to = to.UTC()
	var lower *time.Time
	if from != nil {
		f := from.UTC()
		lower = &f
	}

	out := []byte(`{"months":{}}`)
	fetched := 0
	for _, m := range months {
		if !m.overlaps(lower, to) {
			continue
		}
		path := fmt.Sprintf("%s/games/%04d/%02d", playerPath(username), m.Year, int(m.Month))
		monthPayload, err := c.get(ctx, MethodGames, username, path)
		if err != nil {
			// 归档列表里存在但月份接口 404，视为该月无数据
			if IsNotFound(err) {
				c.logger.WithFields(logrus.Fields{"username": username, "month": m.key()}).Warn("月度归档不存在，跳过")
				continue
			}
			return nil, err
		}
		games := filterGames(monthPayload, lower, to)
		if len(games) == 0 {
			continue
		}
		out, err = sjson.SetRawBytes(out, "months."+m.key()+".games", games)
		if err != nil {
			return nil, &UpstreamError{Kind: KindRequestFailed, Method: MethodGames, Username: username, Err: err}
		}
		fetched++
	}

	c.logger.WithFields(logrus.Fields{
		"username": username,
		"archives": len(months),
		"months":   fetched,
	}).Debug("月度归档拉取完成")
	return out, nil
}

// parseArchiveMonths 从 {"archives": [".../games/YYYY/MM", ...]} 解析年月，按时间升序
func parseArchiveMonths(payload []byte) []archiveMonth {
	var months []archiveMonth
	seen := make(map[string]struct{})
	gjson.GetBytes(payload, "archives").ForEach(func(_, v gjson.Result) bool {
		m, err := parseArchiveURL(v.String())
		if err != nil {
			return true
		}
		if _, dup := seen[m.key()]; dup {
			return true
		}
		seen[m.key()] = struct{}{}
		months = append(months, m)
		return true
	})
	sort.SliceStable(months, func(i, j int) bool {
		return months[i].start().Before(months[j].start())
	})
	return months
}

func parseArchiveURL(raw string) (archiveMonth, error) {
	parts := strings.Split(strings.TrimSuffix(strings.TrimSpace(raw), "/"), "/")
	if len(parts) < 2 {
		return archiveMonth{}, errors.New("归档地址格式错误")
	}
	year, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return archiveMonth{}, err
	}
	month, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return archiveMonth{}, err
	}
	if month < 1 || month > 12 {
		return archiveMonth{}, fmt.Errorf("月份越界: %d", month)
	}
	return archiveMonth{Year: year, Month: time.Month(month), URL: raw}, nil
}

// filterGames 保留 end_time 落在窗口内的对局，end_time 缺失或非数值的对局原样保留
func filterGames(payload []byte, from *time.Time, to time.Time) []byte {
	var kept [][]byte
	gjson.GetBytes(payload, "games").ForEach(func(_, g gjson.Result) bool {
		end := g.Get("end_time")
		if end.Type == gjson.Number {
			t := time.Unix(int64(end.Num), 0).UTC()
			if from != nil && t.Before(*from) {
				return true
			}
			if t.After(to) {
				return true
			}
		}
		kept = append(kept, []byte(g.Raw))
		return true
	})
	if len(kept) == 0 {
		return nil
	}
	games := make([]byte, 0, 2+len(kept))
	games = append(games, '[')
	games = append(games, bytes.Join(kept, []byte(","))...)
	return append(games, ']')
}

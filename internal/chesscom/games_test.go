package chesscom

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func unix(t time.Time) int64 { return t.Unix() }

// archiveServer 模拟 archives 列表和月度归档
func archiveServer(t *testing.T, archives []string, months map[string]string) (http.Handler, func() []string) {
	t.Helper()
	var (
		mu   sync.Mutex
		hits []string
	)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, r.URL.Path)
		mu.Unlock()
		if r.URL.Path == "/player/alice/games/archives" {
			list := "["
			for i, a := range archives {
				if i > 0 {
					list += ","
				}
				list += fmt.Sprintf("%q", a)
			}
			_, _ = w.Write([]byte(`{"archives":` + list + `]}`))
			return
		}
		body, ok := months[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	})
	return h, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), hits...)
	}
}

func TestFetchGames_WindowFiltering(t *testing.T) {
	jan := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)
	feb1 := time.Date(2024, 2, 3, 12, 0, 0, 0, time.UTC)
	feb2 := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	h, hits := archiveServer(t,
		[]string{
			"https://api.chess.com/pub/player/alice/games/2024/03",
			"https://api.chess.com/pub/player/alice/games/2024/01",
			"https://api.chess.com/pub/player/alice/games/2024/02",
		},
		map[string]string{
			"/player/alice/games/2024/01": fmt.Sprintf(`{"games":[{"url":"g1","end_time":%d}]}`, unix(jan)),
			"/player/alice/games/2024/02": fmt.Sprintf(`{"games":[{"url":"g2","end_time":%d},{"url":"g3","end_time":%d},{"url":"g4"}]}`, unix(feb1), unix(feb2)),
			"/player/alice/games/2024/03": fmt.Sprintf(`{"games":[{"url":"g5","end_time":%d}]}`, unix(mar)),
		})
	c, _ := newTestClient(t, h)

	from := feb1.Add(time.Second)
	to := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	payload, err := c.FetchGames(context.Background(), "alice", &from, to)
	require.NoError(t, err)

	games := ExtractGames(payload)
	var urls []string
	for _, g := range games {
		urls = append(urls, gjson.GetBytes(g, "url").String())
	}
	// g2 早于 from，g5 所在月份不在窗口内；g4 无 end_time 保留
	assert.Equal(t, []string{"g3", "g4"}, urls)

	assert.NotContains(t, hits(), "/player/alice/games/2024/01")
	assert.NotContains(t, hits(), "/player/alice/games/2024/03")
	assert.Contains(t, hits(), "/player/alice/games/2024/02")
}

func TestFetchGames_NoWatermarkFetchesAllMonthsInOrder(t *testing.T) {
	h, _ := archiveServer(t,
		[]string{
			"https://api.chess.com/pub/player/alice/games/2023/12",
			"https://api.chess.com/pub/player/alice/games/2023/11",
		},
		map[string]string{
			"/player/alice/games/2023/11": `{"games":[{"url":"a","end_time":1699000000},{"url":"b","end_time":1699100000}]}`,
			"/player/alice/games/2023/12": `{"games":[{"url":"c","end_time":1701500000}]}`,
		})
	c, _ := newTestClient(t, h)

	payload, err := c.FetchGames(context.Background(), "alice", nil, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	var keys []string
	gjson.GetBytes(payload, "months").ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	assert.Equal(t, []string{"2023-11", "2023-12"}, keys)

	var urls []string
	for _, g := range ExtractGames(payload) {
		urls = append(urls, gjson.GetBytes(g, "url").String())
	}
	assert.Equal(t, []string{"a", "b", "c"}, urls)
}

func TestFetchGames_EmptyAndMissingMonth(t *testing.T) {
	h, _ := archiveServer(t,
		[]string{"https://api.chess.com/pub/player/alice/games/2024/05", "garbage"},
		map[string]string{})
	c, _ := newTestClient(t, h)

	payload, err := c.FetchGames(context.Background(), "alice", nil, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.JSONEq(t, `{"months":{}}`, string(payload))
	assert.Empty(t, ExtractGames(payload))
}

func TestFetchGames_UnknownPlayer(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.FetchGames(context.Background(), "ghost", nil, time.Now())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestExtractGames(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []string
	}{
		{
			name:    "two months",
			payload: `{"months":{"2024-01":{"games":[{"url":"a"},{"url":"b"}]},"2024-02":{"games":[{"url":"c"}]}}}`,
			want:    []string{`{"url":"a"}`, `{"url":"b"}`, `{"url":"c"}`},
		},
		{name: "missing months", payload: `{"games":[{"url":"a"}]}`},
		{name: "month without games", payload: `{"months":{"2024-01":{}}}`},
		{name: "invalid", payload: `nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractGames([]byte(tt.payload))
			require.Len(t, got, len(tt.want))
			for i, w := range tt.want {
				assert.JSONEq(t, w, string(got[i]))
			}
		})
	}
}

func TestArchiveMonthOverlaps(t *testing.T) {
	m := archiveMonth{Year: 2024, Month: time.February}
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, m.overlaps(nil, to))

	inside := time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)
	assert.True(t, m.overlaps(&inside, to))

	after := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, m.overlaps(&after, to))

	assert.False(t, m.overlaps(nil, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
}

func TestFilterGames_KeepsOrderAndRawGames(t *testing.T) {
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	var games []string
	for i := 0; i < 2000; i++ {
		end := from.Add(time.Duration(i) * time.Minute)
		games = append(games, fmt.Sprintf(`{"url":"g%d","end_time":%d,"pgn":"1. e4 {x, y}"}`, i, unix(end)))
	}
	games = append(games,
		fmt.Sprintf(`{"url":"old","end_time":%d}`, unix(from.Add(-time.Second))),
		`{"url":"no-end"}`,
		fmt.Sprintf(`{"url":"future","end_time":%d}`, unix(to.Add(time.Second))),
	)
	payload := []byte(`{"games":[` + strings.Join(games, ",") + `]}`)

	out := filterGames(payload, &from, to)
	require.True(t, gjson.ValidBytes(out))

	urls := gjson.GetBytes(out, "#.url").Array()
	require.Len(t, urls, 2001)
	assert.Equal(t, "g0", urls[0].String())
	assert.Equal(t, "g1999", urls[1999].String())
	assert.Equal(t, "no-end", urls[2000].String())
	assert.Equal(t, "1. e4 {x, y}", gjson.GetBytes(out, "0.pgn").String())
}

func TestFilterGames_NothingKept(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	payload := []byte(fmt.Sprintf(`{"games":[{"url":"old","end_time":%d}]}`, unix(from.Add(-time.Hour))))

	assert.Nil(t, filterGames(payload, &from, from.Add(time.Hour)))
	assert.Nil(t, filterGames([]byte(`{"games":[]}`), nil, from))
}

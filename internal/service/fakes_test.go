package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ChessSync/internal/chesscom"
	"ChessSync/internal/model"
)

type fakeGame struct {
	URL string
	End int64 // 0 表示没有 end_time
}

// fakeAPI 按用户名返回预设结果
type fakeAPI struct {
	mu        sync.Mutex
	games     map[string][]fakeGame
	errs      map[string]error
	snapshots map[string]string // username -> payload
	fromSeen  map[string]*time.Time
	calls     []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		games:     map[string][]fakeGame{},
		errs:      map[string]error{},
		snapshots: map[string]string{},
		fromSeen:  map[string]*time.Time{},
	}
}

func (f *fakeAPI) record(method, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method+":"+username)
	return f.errs[username]
}

func (f *fakeAPI) snapshot(method, username string) (json.RawMessage, error) {
	if err := f.record(method, username); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.snapshots[username]
	if !ok {
		body = fmt.Sprintf(`{"username":%q,"method":%q}`, username, method)
	}
	return json.RawMessage(body), nil
}

func (f *fakeAPI) FetchProfile(_ context.Context, u string) (json.RawMessage, error) {
	return f.snapshot(chesscom.MethodProfile, u)
}

func (f *fakeAPI) FetchArchives(_ context.Context, u string) (json.RawMessage, error) {
	return f.snapshot(chesscom.MethodArchives, u)
}

func (f *fakeAPI) FetchStats(_ context.Context, u string) (json.RawMessage, error) {
	return f.snapshot(chesscom.MethodStats, u)
}

func (f *fakeAPI) FetchGamesToMove(_ context.Context, u string) (json.RawMessage, error) {
	return f.snapshot(chesscom.MethodGamesToMove, u)
}

func (f *fakeAPI) FetchTournaments(_ context.Context, u string) (json.RawMessage, error) {
	return f.snapshot(chesscom.MethodTournaments, u)
}

func (f *fakeAPI) FetchGames(_ context.Context, u string, from *time.Time, to time.Time) (json.RawMessage, error) {
	if err := f.record(chesscom.MethodGames, u); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fromSeen[u] = from

	var parts []string
	for _, g := range f.games[u] {
		if g.End != 0 {
			end := time.Unix(g.End, 0)
			if from != nil && end.Before(*from) {
				continue
			}
			if end.After(to) {
				continue
			}
			parts = append(parts, fmt.Sprintf(`{"url":%q,"end_time":%d}`, g.URL, g.End))
			continue
		}
		if g.URL == "" {
			parts = append(parts, `{"pgn":"no url"}`)
			continue
		}
		parts = append(parts, fmt.Sprintf(`{"url":%q}`, g.URL))
	}
	return json.RawMessage(`{"months":{"2024-01":{"games":[` + strings.Join(parts, ",") + `]}}}`), nil
}

func (f *fakeAPI) from(u string) (*time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.fromSeen[u]
	return t, ok
}

// fakeStore 同时实现对局、水位与快照仓储
type fakeStore struct {
	mu           sync.Mutex
	games        map[string]*model.GameRecord // username|url
	snapshots    map[string][]*model.IngestionRecord
	watermarkErr map[string]error
	upsertErr    map[string]error
	insertErr    map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		games:        map[string]*model.GameRecord{},
		snapshots:    map[string][]*model.IngestionRecord{},
		watermarkErr: map[string]error{},
		upsertErr:    map[string]error{},
		insertErr:    map[string]error{},
	}
}

func (s *fakeStore) Latest(_ context.Context, username string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.watermarkErr[username]; err != nil {
		return nil, err
	}
	var latest *time.Time
	for _, g := range s.games {
		if g.Username == username && g.EndTimeUTC != nil && (latest == nil || g.EndTimeUTC.After(*latest)) {
			t := *g.EndTimeUTC
			latest = &t
		}
	}
	return latest, nil
}

func (s *fakeStore) UpsertGames(_ context.Context, rows []*model.GameRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(rows) > 0 {
		if err := s.upsertErr[rows[0].Username]; err != nil {
			return 0, err
		}
	}
	seen := map[string]bool{}
	for _, r := range rows {
		key := r.Username + "|" + r.GameURL
		if seen[key] {
			return 0, errors.New("ON CONFLICT DO UPDATE command cannot affect row a second time")
		}
		seen[key] = true
		s.games[key] = r
	}
	return len(rows), nil
}

func (s *fakeStore) InsertRecords(_ context.Context, table string, rows []*model.IngestionRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insertErr[table]; err != nil {
		return 0, err
	}
	s.snapshots[table] = append(s.snapshots[table], rows...)
	return len(rows), nil
}

func (s *fakeStore) gameURLs(username string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var urls []string
	for _, g := range s.games {
		if g.Username == username {
			urls = append(urls, g.GameURL)
		}
	}
	sort.Strings(urls)
	return urls
}

func notFound(u string) error {
	return &chesscom.UpstreamError{Kind: chesscom.KindNotFound, Method: chesscom.MethodGames, Username: u, Status: 404, Message: "User not found"}
}

func timeout(u string) error {
	return &chesscom.UpstreamError{Kind: chesscom.KindTimeout, Method: chesscom.MethodGames, Username: u, Err: context.DeadlineExceeded}
}

func strPtr(s string) *string { return &s }

type failingRoster struct{}

func (failingRoster) Players() ([]model.TrackedEntity, error) {
	return nil, errors.New("roster: duplicate username")
}

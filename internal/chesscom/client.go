// Package chesscom Chess.com 公开 API（https://api.chess.com/pub）客户端
package chesscom

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"ChessSync/internal/config"
	"ChessSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// 方法名沿用快照表 method 列中的取值
const (
	MethodProfile     = "get_player"
	MethodArchives    = "get_archives"
	MethodStats       = "get_player_stats"
	MethodGamesToMove = "get_games_to_move"
	MethodTournaments = "get_tournaments"
	MethodGames       = "get_games"
)

// maxBodyBytes 单个响应体上限，月度归档通常只有几 MB
const maxBodyBytes = 64 << 20

type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

// NewClient 创建 Chess.com 客户端；超时、User-Agent、代理、限流均来自配置
func NewClient(cfg *config.UpstreamConfig, logger *logrus.Logger) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	c := &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// FetchProfile GET /player/{username}
func (c *Client) FetchProfile(ctx context.Context, username string) (json.RawMessage, error) {
	return c.get(ctx, MethodProfile, username, playerPath(username))
}

// FetchArchives GET /player/{username}/games/archives
func (c *Client) FetchArchives(ctx context.Context, username string) (json.RawMessage, error) {
	return c.get(ctx, MethodArchives, username, playerPath(username)+"/games/archives")
}

// FetchStats GET /player/{username}/stats
func (c *Client) FetchStats(ctx context.Context, username string) (json.RawMessage, error) {
	return c.get(ctx, MethodStats, username, playerPath(username)+"/stats")
}

// FetchGamesToMove GET /player/{username}/games/to-move
func (c *Client) FetchGamesToMove(ctx context.Context, username string) (json.RawMessage, error) {
	return c.get(ctx, MethodGamesToMove, username, playerPath(username)+"/games/to-move")
}

// FetchTournaments GET /player/{username}/tournaments
func (c *Client) FetchTournaments(ctx context.Context, username string) (json.RawMessage, error) {
	return c.get(ctx, MethodTournaments, username, playerPath(username)+"/tournaments")
}

func playerPath(username string) string {
	return "/player/" + url.PathEscape(strings.ToLower(strings.TrimSpace(username)))
}

// get 执行一次 GET 并统一做 not found 判定：HTTP 404 或响应体内嵌的错误对象
func (c *Client) get(ctx context.Context, method, username, path string) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportError(method, username, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &UpstreamError{Kind: KindRequestFailed, Method: method, Username: username, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(method, username, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).WithField("method", method).Debug("关闭Chess.com响应体失败")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(method, username, err)
	}

	log := c.logger.WithFields(logrus.Fields{"method": method, "username": username, "status": resp.StatusCode})
	log.Debug("Chess.com 请求完成")

	if resp.StatusCode == http.StatusNotFound {
		return nil, &UpstreamError{Kind: KindNotFound, Method: method, Username: username, Status: resp.StatusCode, Message: bodyMessage(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Kind: KindRequestFailed, Method: method, Username: username, Status: resp.StatusCode, Message: bodyMessage(body)}
	}
	if !json.Valid(body) {
		return nil, &UpstreamError{
			Kind: KindRequestFailed, Method: method, Username: username, Status: resp.StatusCode,
			Err: errors.New("响应体不是合法JSON"),
		}
	}

	if cls := ClassifyNotFound(body); cls.NotFound {
		if cls.Ambiguous {
			log.WithField("message", cls.Message).Warn("响应体 code=0 但提示信息不含 not found，按不存在处理")
		}
		return nil, &UpstreamError{
			Kind: KindNotFound, Method: method, Username: username, Status: resp.StatusCode,
			Message: cls.Message, Ambiguous: cls.Ambiguous,
		}
	}
	return body, nil
}

// bodyMessage 取错误响应体里的提示信息，非 JSON 时返回空串
func bodyMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	msg, _ := payloadMessage(gjson.ParseBytes(body))
	return msg
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ChessSync/internal/chesscom"
	"ChessSync/internal/interfaces"
	"ChessSync/internal/model"
	"ChessSync/internal/roster"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "ChessSync/internal/service"

// GamesIngestService 对局增量同步：按棋手水位只拉取新结束的对局并 upsert 入库
type GamesIngestService struct {
	api        interfaces.ChesscomAPI
	games      interfaces.GameRepository
	watermarks interfaces.WatermarkTracker
	roster     interfaces.RosterSource
	logger     *logrus.Logger
	opts       options
}

func NewGamesIngestService(
	api interfaces.ChesscomAPI,
	games interfaces.GameRepository,
	watermarks interfaces.WatermarkTracker,
	rosterSource interfaces.RosterSource,
	logger *logrus.Logger,
	opts ...Option,
) *GamesIngestService {
	return &GamesIngestService{
		api:        api,
		games:      games,
		watermarks: watermarks,
		roster:     rosterSource,
		logger:     logger,
		opts:       buildOptions(opts),
	}
}

// Run 执行一轮同步。usernames 为空时处理名单内全部棋手。
// 单个棋手失败只记录日志，不影响其他棋手；名单加载失败或 ctx 取消时返回错误，统计照常返回。
func (s *GamesIngestService) Run(ctx context.Context, usernames []string) (model.IngestionSummary, error) {
	summary := model.IngestionSummary{RunID: uuid.NewString()}
	log := s.logger.WithField("run_id", summary.RunID)

	players, err := s.roster.Players()
	if err != nil {
		return summary, fmt.Errorf("加载棋手名单失败: %w", err)
	}
	selected := roster.Filter(players, usernames)
	if len(usernames) > 0 && len(selected) < len(usernames) {
		log.WithField("requested", usernames).Warn("部分用户名不在名单中，已忽略")
	}
	summary.PlayersSeen = len(selected)
	if len(selected) == 0 {
		log.Info("没有需要同步的棋手")
		return summary, nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "GamesIngestService.Run",
		trace.WithAttributes(
			attribute.String("run_id", summary.RunID),
			attribute.Int("players", len(selected)),
		))
	defer span.End()

	// 本轮统一的入库时间
	cycleStart := s.opts.now().UTC()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.concurrency)
	for _, p := range selected {
		p := p
		g.Go(func() error {
			n, ok := s.ingestPlayer(gctx, log, p, cycleStart)
			if ok {
				mu.Lock()
				summary.PlayersIngested++
				summary.GamesUpserted += n
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	log.WithFields(logrus.Fields{
		"players_seen":     summary.PlayersSeen,
		"players_ingested": summary.PlayersIngested,
		"games_upserted":   summary.GamesUpserted,
	}).Info("对局增量同步完成")
	span.SetAttributes(
		attribute.Int("players_ingested", summary.PlayersIngested),
		attribute.Int("games_upserted", summary.GamesUpserted),
	)

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}
	return summary, nil
}

// ingestPlayer 处理单个棋手，返回写入行数以及本棋手是否成功
func (s *GamesIngestService) ingestPlayer(ctx context.Context, runLog *logrus.Entry, p model.TrackedEntity, cycleStart time.Time) (int, bool) {
	log := runLog.WithField("username", p.Username)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "GamesIngestService.ingestPlayer",
		trace.WithAttributes(attribute.String("username", p.Username)))
	defer span.End()

	watermark, err := s.watermarks.Latest(ctx, p.Username)
	if err != nil {
		span.RecordError(err)
		log.WithError(err).Error("查询水位失败，跳过该棋手")
		return 0, false
	}

	var from *time.Time
	if watermark != nil {
		f := watermark.Add(time.Second)
		from = &f
	}

	payload, err := s.api.FetchGames(ctx, p.Username, from, cycleStart)
	if err != nil {
		span.RecordError(err)
		entry := log.WithError(err).WithField("kind", chesscom.KindOf(err))
		if chesscom.IsNotFound(err) {
			entry.Warn("棋手不存在，跳过")
		} else {
			entry.Error("拉取对局失败，跳过该棋手")
		}
		return 0, false
	}

	rows := gameRecords(p, chesscom.ExtractGames(payload), cycleStart)
	if len(rows) == 0 {
		log.Debug("没有新对局")
		return 0, true
	}

	n, err := s.games.UpsertGames(ctx, rows)
	if err != nil {
		span.RecordError(err)
		log.WithError(err).Error("对局入库失败，本棋手事务已回滚")
		return 0, false
	}
	log.WithFields(logrus.Fields{"games": n, "from": from}).Info("对局入库完成")
	return n, true
}

package service

import (
	"context"
	"fmt"
	"time"

	"ChessSync/internal/chesscom"
	"ChessSync/internal/interfaces"
	"ChessSync/internal/model"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// NoNewGamesReason 检测无结果时返回给调度方的跳过原因
const NoNewGamesReason = "No new chess.com games detected."

// ChangeDetector 只读检测：按水位查询上游是否有新结束的对局，不写库
type ChangeDetector struct {
	api        interfaces.ChesscomAPI
	watermarks interfaces.WatermarkTracker
	roster     interfaces.RosterSource
	logger     *logrus.Logger
	opts       options
}

func NewChangeDetector(
	api interfaces.ChesscomAPI,
	watermarks interfaces.WatermarkTracker,
	rosterSource interfaces.RosterSource,
	logger *logrus.Logger,
	opts ...Option,
) *ChangeDetector {
	return &ChangeDetector{api: api, watermarks: watermarks, roster: rosterSource, logger: logger, opts: buildOptions(opts)}
}

// Detect 返回有新对局的棋手（按名单顺序）。单个棋手出错只记日志并视为无新对局。
func (d *ChangeDetector) Detect(ctx context.Context) ([]model.WorkUnit, error) {
	players, err := d.roster.Players()
	if err != nil {
		return nil, fmt.Errorf("加载棋手名单失败: %w", err)
	}
	if len(players) == 0 {
		d.logger.Info("棋手名单为空，跳过检测")
		return nil, nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ChangeDetector.Detect",
		trace.WithAttributes(attribute.Int("players", len(players))))
	defer span.End()

	now := d.opts.now().UTC()
	found := make([]*model.WorkUnit, len(players))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.concurrency)
	for i, p := range players {
		i, p := i, p
		g.Go(func() error {
			found[i] = d.detectPlayer(gctx, p, now)
			return nil
		})
	}
	_ = g.Wait()

	var units []model.WorkUnit
	for _, u := range found {
		if u != nil {
			units = append(units, *u)
		}
	}
	span.SetAttributes(attribute.Int("work_units", len(units)))
	d.logger.WithField("work_units", len(units)).Info("新对局检测完成")
	return units, ctx.Err()
}

func (d *ChangeDetector) detectPlayer(ctx context.Context, p model.TrackedEntity, now time.Time) *model.WorkUnit {
	log := d.logger.WithField("username", p.Username)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ChangeDetector.detectPlayer",
		trace.WithAttributes(attribute.String("username", p.Username)))
	defer span.End()

	watermark, err := d.watermarks.Latest(ctx, p.Username)
	if err != nil {
		log.WithError(err).Error("查询水位失败，跳过检测")
		return nil
	}
	var from *time.Time
	if watermark != nil {
		f := watermark.Add(time.Second)
		from = &f
	}

	payload, err := d.api.FetchGames(ctx, p.Username, from, now)
	if err != nil {
		span.RecordError(err)
		entry := log.WithError(err).WithField("kind", chesscom.KindOf(err))
		if chesscom.IsNotFound(err) {
			entry.Warn("棋手不存在，跳过检测")
		} else {
			entry.Error("检测拉取对局失败")
		}
		return nil
	}

	games := chesscom.ExtractGames(payload)
	if len(games) == 0 {
		return nil
	}
	unit := model.NewWorkUnit(p.Username, len(games), maxEndTime(games))
	log.WithFields(logrus.Fields{"count": len(games), "run_key": unit.RunKey}).Info("检测到新对局")
	return &unit
}

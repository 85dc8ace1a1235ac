package service

import (
	"context"
	"errors"
	"fmt"

	"ChessSync/internal/chesscom"
	"ChessSync/internal/interfaces"
	"ChessSync/internal/model"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// SnapshotService 快照轮询：每个棋手每次轮询写一行，不看水位
type SnapshotService struct {
	api    interfaces.ChesscomAPI
	repo   interfaces.SnapshotRepository
	roster interfaces.RosterSource
	logger *logrus.Logger
	opts   options
}

func NewSnapshotService(
	api interfaces.ChesscomAPI,
	repo interfaces.SnapshotRepository,
	rosterSource interfaces.RosterSource,
	logger *logrus.Logger,
	opts ...Option,
) *SnapshotService {
	return &SnapshotService{api: api, repo: repo, roster: rosterSource, logger: logger, opts: buildOptions(opts)}
}

// Poll 对名单内全部棋手执行一个快照方法，所有行在一个事务内写入
func (s *SnapshotService) Poll(ctx context.Context, method string) (model.SnapshotSummary, error) {
	m, ok := LookupMethod(method)
	if !ok {
		return model.SnapshotSummary{Method: method}, fmt.Errorf("未知快照方法: %s", method)
	}
	return s.poll(ctx, m)
}

// PollAll 依次执行给定方法（空表示全部）；某个方法失败不影响其余方法
func (s *SnapshotService) PollAll(ctx context.Context, methods []string) ([]model.SnapshotSummary, error) {
	resolved, err := ResolveMethods(methods)
	if err != nil {
		return nil, err
	}
	summaries := make([]model.SnapshotSummary, 0, len(resolved))
	var errs []error
	for _, m := range resolved {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		summary, err := s.poll(ctx, m)
		summaries = append(summaries, summary)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Name, err))
		}
	}
	return summaries, errors.Join(errs...)
}

func (s *SnapshotService) poll(ctx context.Context, m SnapshotMethod) (model.SnapshotSummary, error) {
	ingestedAt := s.opts.now().UTC()
	summary := model.SnapshotSummary{Method: m.Name, IngestedAt: ingestedAt}
	log := s.logger.WithField("method", m.Name)

	players, err := s.roster.Players()
	if err != nil {
		return summary, fmt.Errorf("加载棋手名单失败: %w", err)
	}
	summary.PlayersSeen = len(players)
	if len(players) == 0 {
		log.Info("棋手名单为空，跳过快照轮询")
		return summary, nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "SnapshotService.Poll",
		trace.WithAttributes(
			attribute.String("method", m.Name),
			attribute.Int("players", len(players)),
		))
	defer span.End()

	// 按名单顺序收集结果
	rows := make([]*model.IngestionRecord, len(players))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.concurrency)
	for i, p := range players {
		i, p := i, p
		g.Go(func() error {
			row := &model.IngestionRecord{Method: m.Name, Username: p.Username, IngestedAtUTC: ingestedAt}
			payload, err := m.Fetch(gctx, s.api, p.Username)
			if err != nil {
				msg := errorText(err)
				row.Error = &msg
				entry := log.WithError(err).WithField("username", p.Username)
				if chesscom.IsNotFound(err) {
					entry.Warn("快照方法返回不存在")
				} else {
					entry.Error("快照方法调用失败")
				}
			} else {
				row.Payload = datatypes.JSON(payload)
			}
			rows[i] = row
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range rows {
		if r.Error == nil {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	n, err := s.repo.InsertRecords(ctx, m.Table, rows)
	if err != nil {
		span.RecordError(err)
		log.WithError(err).Error("快照入库失败")
		return summary, err
	}
	summary.RecordsWritten = n

	log.WithFields(logrus.Fields{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"records":   n,
	}).Info("快照轮询完成")
	return summary, nil
}

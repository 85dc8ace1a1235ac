package scheduler

import (
	"context"
	"time"

	"ChessSync/internal/config"
	"ChessSync/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// GamesRunner 对局增量同步
type GamesRunner interface {
	Run(ctx context.Context, usernames []string) (model.IngestionSummary, error)
}

// SnapshotPoller 快照轮询
type SnapshotPoller interface {
	PollAll(ctx context.Context, methods []string) ([]model.SnapshotSummary, error)
}

// Detector 新对局检测
type Detector interface {
	Detect(ctx context.Context) ([]model.WorkUnit, error)
}

// Runner 定时触发快照轮询与新对局检测，检测结果经 Queue 交给 worker 执行同步
type Runner struct {
	games     GamesRunner
	snapshots SnapshotPoller
	detector  Detector
	queue     *Queue
	cfg       config.SyncConfig
	logger    *logrus.Logger
}

func NewRunner(games GamesRunner, snapshots SnapshotPoller, detector Detector, queue *Queue, cfg config.SyncConfig, logger *logrus.Logger) *Runner {
	return &Runner{games: games, snapshots: snapshots, detector: detector, queue: queue, cfg: cfg, logger: logger}
}

// Queue 供 HTTP 层提交检测结果
func (r *Runner) Queue() *Queue {
	return r.queue
}

// Run 阻塞直到 ctx 结束；间隔为 0 的循环不启动
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.worker(ctx)
		return nil
	})
	if r.cfg.SnapshotInterval > 0 {
		g.Go(func() error {
			r.loop(ctx, "snapshot", r.cfg.SnapshotInterval, r.pollSnapshots)
			return nil
		})
	} else {
		r.logger.Info("snapshot_interval 未配置，跳过定时快照")
	}
	if r.cfg.DetectInterval > 0 {
		g.Go(func() error {
			r.loop(ctx, "detect", r.cfg.DetectInterval, func(ctx context.Context) {
				if _, err := r.DetectAndEnqueue(ctx); err != nil {
					r.logger.WithError(err).Error("定时检测失败")
				}
			})
			return nil
		})
	} else {
		r.logger.Info("detect_interval 未配置，跳过定时检测")
	}
	if r.cfg.GamesInterval > 0 {
		g.Go(func() error {
			r.loop(ctx, "games", r.cfg.GamesInterval, r.ingestAll)
			return nil
		})
	}
	return g.Wait()
}

// loop 启动时先执行一次，之后按间隔执行
func (r *Runner) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	log := r.logger.WithFields(logrus.Fields{"loop": name, "interval": interval.String()})
	log.Info("定时任务启动")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			log.Info("定时任务退出")
			return
		}
		fn(ctx)
		select {
		case <-ctx.Done():
			log.Info("定时任务退出")
			return
		case <-ticker.C:
		}
	}
}

// DetectAndEnqueue 执行一次检测并把结果入队，返回新入队的请求数
func (r *Runner) DetectAndEnqueue(ctx context.Context) (int, error) {
	units, err := r.detector.Detect(ctx)
	if err != nil {
		return 0, err
	}
	return r.Enqueue(ctx, units)
}

// Enqueue 把 WorkUnit 转为同步请求入队，已入队过的 RunKey 被丢弃
func (r *Runner) Enqueue(ctx context.Context, units []model.WorkUnit) (int, error) {
	enqueued := 0
	for _, u := range units {
		ok, err := r.queue.Submit(ctx, RunRequestFromWorkUnit(u))
		if err != nil {
			return enqueued, err
		}
		if !ok {
			r.logger.WithField("run_key", u.RunKey).Debug("同一状态已入队，忽略")
			continue
		}
		enqueued++
	}
	return enqueued, nil
}

func (r *Runner) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-r.queue.Requests():
			if !ok {
				return
			}
			log := r.logger.WithField("run_key", req.RunKey)
			summary, err := r.games.Run(ctx, req.Usernames)
			if err != nil {
				r.queue.Complete(req, false)
				log.WithError(err).Error("同步任务执行失败")
				continue
			}
			if summary.PlayersIngested < len(req.Usernames) {
				// 棋手被跳过（请求失败或超时），释放 RunKey 等下一轮检测重试
				r.queue.Complete(req, false)
				log.WithFields(logrus.Fields{
					"run_id":           summary.RunID,
					"players_ingested": summary.PlayersIngested,
				}).Warn("同步任务未完成，等待重试")
				continue
			}
			r.queue.Complete(req, true)
			log.WithFields(logrus.Fields{
				"run_id":         summary.RunID,
				"games_upserted": summary.GamesUpserted,
			}).Info("同步任务完成")
		}
	}
}

func (r *Runner) pollSnapshots(ctx context.Context) {
	if _, err := r.snapshots.PollAll(ctx, r.cfg.EnabledMethods); err != nil {
		r.logger.WithError(err).Error("定时快照存在失败")
	}
}

func (r *Runner) ingestAll(ctx context.Context) {
	if _, err := r.games.Run(ctx, nil); err != nil {
		r.logger.WithError(err).Error("定时对局同步失败")
	}
}

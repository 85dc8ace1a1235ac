package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ChessSync/internal/api"
	"ChessSync/internal/scheduler"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(opts *RootOptions) *cobra.Command {
	var noScheduler bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 触发接口与内置定时调度",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return serve(ctx, a, !noScheduler)
			})
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "只提供 HTTP 接口，由外部调度方触发")
	return cmd
}

func serve(ctx context.Context, a *app, withScheduler bool) error {
	var (
		runner   *scheduler.Runner
		enqueuer api.Enqueuer
	)
	if withScheduler {
		runner = scheduler.NewRunner(a.games, a.snapshots, a.detector, scheduler.NewQueue(0), a.cfg.Sync, a.logger)
		enqueuer = runner
	}

	// 配置Gin运行模式（从配置读取：debug/release）
	gin.SetMode(a.cfg.Server.Mode)
	handler := api.NewIngestHandler(a.games, a.snapshots, a.detector, enqueuer, a.cfg.Sync.EnabledMethods, a.logger)
	r := api.NewRouter(handler, a.logger)

	// 注册ppof 方便调试和监测性能问题
	pprof.Register(r)
	a.logger.Infof("Gin运行模式: %s", a.cfg.Server.Mode)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Infof("服务启动成功，端口：%d", a.cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("启动服务失败: %w", err)
		}
		return nil
	})
	if runner != nil {
		g.Go(func() error {
			return runner.Run(ctx)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("收到退出信号，正在关闭服务")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

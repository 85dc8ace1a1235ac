package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// withApp 组装组件、处理中断信号并在结束时释放资源
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}

func newIngestCommand(opts *RootOptions) *cobra.Command {
	var usernames []string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "执行一轮对局增量同步",
		Long:  "按每个棋手已入库对局的最大结束时间拉取新对局并 upsert。--username 可重复，省略则处理全部棋手。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				summary, err := a.games.Run(ctx, usernames)
				if werr := writeResult(cmd.OutOrStdout(), opts.Format, summary); werr != nil {
					return werr
				}
				return err
			})
		},
	}
	cmd.Flags().StringSliceVarP(&usernames, "username", "u", nil, "只同步指定棋手")
	return cmd
}

func newSnapshotCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot [method]",
		Short: "执行快照轮询",
		Long:  "method 可为 profile/archives/stats/games_to_move/tournaments 或对应的 get_* 名称，省略时执行配置中启用的全部方法。",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if len(args) == 1 {
					summary, err := a.snapshots.Poll(ctx, args[0])
					if werr := writeResult(cmd.OutOrStdout(), opts.Format, summary); werr != nil {
						return werr
					}
					return err
				}
				summaries, err := a.snapshots.PollAll(ctx, a.cfg.Sync.EnabledMethods)
				if werr := writeResult(cmd.OutOrStdout(), opts.Format, summaries); werr != nil {
					return werr
				}
				return err
			})
		},
	}
}

func newDetectCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "检测有新对局的棋手（只读）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				units, err := a.detector.Detect(ctx)
				if err != nil {
					return err
				}
				return writeResult(cmd.OutOrStdout(), opts.Format, units)
			})
		},
	}
}

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "创建 schema 与源表后退出",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				a.logger.Info("迁移完成")
				return nil
			})
		},
	}
}

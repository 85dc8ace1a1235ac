// Package cli 命令行入口：serve 常驻服务，ingest/snapshot/detect 供外部调度方单次调用
package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

// RootOptions 全局参数
type RootOptions struct {
	ConfigPath string
	Format     string // text | json
}

var validFormats = []string{"text", "json"}

// NewRootCommand 创建根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "chesssync",
		Short: "Chess.com 对局与快照增量同步",
		Long: `按棋手名单从 Chess.com 公开 API 增量拉取已结束对局写入 PostgreSQL，
并定期记录棋手资料、等级分、比赛等快照。`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "输出格式 (text|json)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newIngestCommand(opts))
	cmd.AddCommand(newSnapshotCommand(opts))
	cmd.AddCommand(newDetectCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.Version = Version

	return cmd
}

// Execute 运行根命令，失败时以非零状态退出
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

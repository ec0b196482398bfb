package cmd

import (
	"log/slog"

	"github.com/shouni/go-studio-kit/internal/config"
	"github.com/shouni/go-studio-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// timelineCmd は、複数の元画像を区間として動画を生成し、1本に結合するのだ。
var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "複数の元画像を繋いだ1本の動画を生成するのだ。",
	Long: `--source の並び順をそのまま時間軸として、区間ごとに動画を生成してから
結合エンドポイントで1本に繋ぐのだ。区間のモーションは --motions を順繰りに使うのだよ。`,
	RunE: timelineCommand,
}

func init() {
	timelineCmd.Flags().StringVar(&opts.Motions, "motions", "", "区間に割り当てるモーションのカンマ区切りなのだ。")
	timelineCmd.Flags().IntVarP(&opts.DurationSec, "duration", "d", 5, "区間1つの秒数なのだ。")
}

func timelineCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("タイムラインスタジオを起動するのだ！",
		"segments", len(opts.SourcePaths), "duration", opts.DurationSec)

	return pipeline.ExecuteTimeline(ctx, cfg)
}

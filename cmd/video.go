package cmd

import (
	"log/slog"

	"github.com/shouni/go-studio-kit/internal/config"
	"github.com/shouni/go-studio-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// videoCmd は、静止画からモーションプリセット別の短尺動画を一括生成するのだ。
var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "元画像からモーション別の短尺動画を生成するのだ。",
	Long: `元画像1枚につき、指定したカメラモーションごとに1本の動画ジョブを投入し、
完了までポーリングで見届けるのだ。ジョブは非同期なので気長に待つのだよ。`,
	RunE: videoCommand,
}

func init() {
	videoCmd.Flags().StringVar(&opts.Motions, "motions", "", "モーションのカンマ区切り（未指定ならカタログ全体）なのだ。")
	videoCmd.Flags().IntVarP(&opts.DurationSec, "duration", "d", 5, "動画1本の秒数なのだ。")
}

func videoCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("動画スタジオを起動するのだ！",
		"sources", len(opts.SourcePaths),
		"motions", opts.Motions,
		"duration", opts.DurationSec)

	return pipeline.ExecuteVideo(ctx, cfg)
}

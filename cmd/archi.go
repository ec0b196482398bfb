package cmd

import (
	"log/slog"

	"github.com/shouni/go-studio-kit/internal/config"
	"github.com/shouni/go-studio-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// archiCmd は、室内写真をインテリアスタイル違いでリデザインした画像を一括生成するのだ。
var archiCmd = &cobra.Command{
	Use:   "archi",
	Short: "部屋の写真をスタイル違いでリデザインするのだ。",
	Long: `部屋の形状や窓の位置を保ったまま、部屋タイプ・スタイル・時間帯を抽選して
元画像1枚あたり --count 枚を生成するのだ。建築雑誌風の仕上がりになるのだよ。`,
	RunE: archiCommand,
}

func init() {
	archiCmd.Flags().StringVar(&opts.RoomTypes, "rooms", "", "部屋タイプのカンマ区切り（未指定ならカタログ全体）なのだ。")
	archiCmd.Flags().StringVar(&opts.Styles, "styles", "", "スタイルのカンマ区切り（未指定ならカタログ全体）なのだ。")
	archiCmd.Flags().StringVar(&opts.TimesOfDay, "times", "", "時間帯のカンマ区切り（未指定ならカタログ全体）なのだ。")
}

func archiCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("建築スタジオを起動するのだ！",
		"sources", len(opts.SourcePaths), "count", opts.Count)

	return pipeline.ExecuteArchi(ctx, cfg)
}

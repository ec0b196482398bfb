package cmd

import (
	"log/slog"

	"github.com/shouni/go-studio-kit/internal/config"
	"github.com/shouni/go-studio-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// hairCmd は、人物写真のヘアスタイルとカラーを変えた画像を一括生成するのだ。
var hairCmd = &cobra.Command{
	Use:   "hair",
	Short: "ヘアスタイル・カラーのバリエーションを一括生成するのだ。",
	Long: `元画像の人物の顔や背景を保ったまま、指定したスタイル x カラーの組み合わせで
画像を展開する網羅モードなのだ。スタイルごとの枚数は --per-variant で指定するのだよ。`,
	RunE: hairCommand,
}

func init() {
	hairCmd.Flags().StringVar(&opts.Styles, "styles", "", "スタイルのカンマ区切り（未指定ならカタログ全体）なのだ。")
	hairCmd.Flags().StringVar(&opts.Colors, "colors", "", "カラーのカンマ区切り（未指定ならカタログ全体）なのだ。")
}

func hairCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("ヘアスタジオを起動するのだ！",
		"sources", len(opts.SourcePaths),
		"styles", opts.Styles,
		"per_style", opts.PerVariant)

	return pipeline.ExecuteHair(ctx, cfg)
}

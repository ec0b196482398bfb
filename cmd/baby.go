package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-studio-kit/internal/config"
	"github.com/shouni/go-studio-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// babyCmd は、両親の写真から将来の子どもの想像画像を一括生成するのだ。
var babyCmd = &cobra.Command{
	Use:   "baby",
	Short: "両親の写真から子どもの想像画像を生成するのだ。",
	Long: `両親それぞれの写真を入力として束ね、月齢・ポーズを抽選しながら合計 --count 枚を
生成するランダムプールモードなのだ。両方の顔立ちが自然に混ざるのだよ。`,
	RunE: babyCommand,
}

func init() {
	babyCmd.Flags().StringVar(&opts.Ages, "ages", "", "月齢・年齢のカンマ区切り（未指定ならカタログ全体）なのだ。")
	babyCmd.Flags().StringVar(&opts.Poses, "poses", "", "ポーズのカンマ区切り（未指定ならカタログ全体）なのだ。")
}

func babyCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if len(opts.SourcePaths) < 2 {
		return fmt.Errorf("両親それぞれの写真（--source を2枚以上）を指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("ベビースタジオを起動するのだ！",
		"sources", len(opts.SourcePaths), "count", opts.Count)

	return pipeline.ExecuteBaby(ctx, cfg)
}

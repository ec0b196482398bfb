package cmd

import (
	"log/slog"

	"github.com/shouni/go-studio-kit/internal/config"
	"github.com/shouni/go-studio-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// adCloneCmd は、参照広告の構図を踏襲した自社商品の広告画像を一括生成するのだ。
var adCloneCmd = &cobra.Command{
	Use:   "adclone",
	Short: "参照広告を解析して商品広告を一括生成するのだ。",
	Long: `--reference-url の広告ページから本文を抽出・要約し、その訴求とムードを
商品写真に写し替えた広告画像をフォーマット別に展開するのだ。`,
	RunE: adCloneCommand,
}

func init() {
	adCloneCmd.Flags().StringVarP(&opts.ReferenceURL, "reference-url", "u", "", "参照広告ページのURLなのだ。")
	adCloneCmd.Flags().StringVar(&opts.Formats, "formats", "", "出力フォーマットのカンマ区切り（未指定ならカタログ全体）なのだ。")
}

func adCloneCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("広告クローンスタジオを起動するのだ！",
		"reference", opts.ReferenceURL, "formats", opts.Formats)

	return pipeline.ExecuteAdClone(ctx, cfg)
}

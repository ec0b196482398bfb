package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-studio-kit/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

// opts は全サブコマンドで共有される実行時オプションなのだ。
var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringSliceVarP(&opts.SourcePaths, "source", "s", nil, "元画像のパス（ローカル or gs://...、複数指定可）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "成果物の保存先ディレクトリ（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.SessionID, "session", "", "ファイル名に埋め込むセッションIDなのだ。")

	// --- 枚数・尺関連 ---
	rootCmd.PersistentFlags().IntVarP(&opts.Count, "count", "n", 0, "ランダムプールモードの生成枚数なのだ。")
	rootCmd.PersistentFlags().IntVar(&opts.PerVariant, "per-variant", 1, "網羅モードのバリアントあたり枚数なのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.Model, "model", "", "生成モデルの明示指定（gemini- 接頭辞ならネイティブ経路）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.AspectRatio, "aspect-ratio", "", "生成物のアスペクト比（例: 1:1, 9:16）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.Resolution, "resolution", "", "生成物の解像度指定なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "プロバイダ呼び出しのタイムアウトなのだ。")

	// --- 実行制御 ---
	rootCmd.PersistentFlags().IntVarP(&opts.Workers, "workers", "w", config.DefaultWorkers, "同時に実行する生成タスク数（上限10）なのだ。")
	rootCmd.PersistentFlags().Int64Var(&opts.Seed, "seed", 0, "ランダム抽選の再現用シード（0なら非決定的）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.UserEmail, "user", "", "クレジットを消費する利用者のメールアドレスなのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// どちらの生成経路も使えない構成では何もできないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("HOOK_IMAGE_URL") == "" && os.Getenv("HOOK_VIDEO_INIT_URL") == "" {
		return fmt.Errorf("エラー: GEMINI_API_KEY かフックエンドポイント（HOOK_IMAGE_URL 等）のどちらかが必要なのだ")
	}
	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"ap-studio-go",
		addAppFlags,
		preRunAppE,
		hairCmd,
		babyCmd,
		archiCmd,
		adCloneCmd,
		videoCmd,
		timelineCmd,
		serveCmd,
	)
}

package cmd

import (
	"log/slog"

	"github.com/shouni/go-studio-kit/internal/config"
	"github.com/shouni/go-studio-kit/internal/proxy"
	"github.com/shouni/go-studio-kit/pkg/sse"

	"github.com/spf13/cobra"
)

// serveCmd は、ブラウザ向けの同一オリジン転送サーバとSSEエンドポイントを起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "開発用の転送サーバとSSEエンドポイントを起動するのだ。",
	Long: `ブラウザからのプロバイダ呼び出しを中継する /proxy と、バッチ進捗を配信する
/events を提供するのだ。実宛先は X-Target-URL ヘッダで受け取るのだよ。`,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&opts.ServeAddr, "addr", config.DefaultServeAddr, "待ち受けアドレスなのだ。")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	hub := sse.NewHub()
	server, err := proxy.NewServer(hub)
	if err != nil {
		return err
	}

	slog.Info("転送サーバを起動するのだ！", "addr", opts.ServeAddr)
	return server.Run(opts.ServeAddr)
}

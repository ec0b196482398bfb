package builder

import (
	"github.com/shouni/go-studio-kit/internal/config"
	"github.com/shouni/go-studio-kit/pkg/account"
	"github.com/shouni/go-studio-kit/pkg/dispatch"

	"github.com/shouni/go-gemini-client/gemini"
	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config     *config.Config          // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、エンドポイントなど）。
	Options    config.GenerateOptions  // Optionsは、コマンドラインから渡された実行時の設定です（スタジオの選択軸、枚数など）。
	Reader     remoteio.InputReader    // Readerは、元画像やマニフェストの読み込みに使用する入力元です。
	Writer     remoteio.OutputWriter   // Writerは、生成された成果物を保存するための出力先です。
	Dispatcher *dispatch.Dispatcher    // Dispatcherは、タスクの経路判定とバッチ実行の中枢です。
	Accounts   account.Store           // Accountsは、クレジット残高の検査と消費に使うストアです（省略可）。
	aiClient   gemini.GenerativeModel  // aiClient はテキスト要約（広告クローンの参照抽出）に使う共通クライアント
	httpClient httpkit.HTTPClient // httpClient は本文抽出など外部APIとの通信に使う共通クライアント
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	httpClient httpkit.HTTPClient,
	aiClient gemini.GenerativeModel,
	reader remoteio.InputReader,
	writer remoteio.OutputWriter,
	dispatcher *dispatch.Dispatcher,
	accounts account.Store,
) AppContext {
	return AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		aiClient:   aiClient,
		httpClient: httpClient,
		Reader:     reader,
		Writer:     writer,
		Dispatcher: dispatcher,
		Accounts:   accounts,
	}
}

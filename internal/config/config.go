package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultTextModel        = "gemini-3-flash-preview"
	DefaultNativeImageModel = "gemini-3-pro-image-preview"
	DefaultHookImageModel   = "flux-pro"
	DefaultHookVideoModel   = "kling-v2"

	DefaultHTTPTimeout = 120 * time.Second
	DefaultWorkers     = 4
	MaxWorkers         = 10

	// プロバイダ呼び出しの最小間隔。ワーカー数とは独立した流量のフタなのだ。
	DefaultRateInterval = 2 * time.Second
	DefaultRateBurst    = 2

	// ポーリングの目安。画像系は短周期、動画系は長周期なのだ。
	DefaultImagePollInterval = 5 * time.Second
	DefaultVideoPollInterval = 10 * time.Second
	DefaultPollMaxAttempts   = 60

	DefaultUploadTTL      = 30 * time.Minute
	DefaultOutputDir      = "output/studio"
	DefaultCreditsPerTask = 1
	DefaultServeAddr      = ":8787"
)

// Config はアプリケーション全体の環境設定（APIキーやエンドポイント）を保持する構造体なのだ。
type Config struct {
	ProjectID    string
	GeminiAPIKey string

	TextModel        string
	NativeImageModel string
	HookImageModel   string
	HookVideoModel   string

	// フック型プロバイダのエンドポイント群
	HookImageURL       string
	HookVideoInitURL   string
	HookVideoStatusURL string
	HookUploadURL      string
	HookStitchURL      string

	// ProxyURL が設定されていると、フック呼び出しは同一オリジンの転送サーバを経由します
	ProxyURL string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	return &Config{
		ProjectID:    envutil.GetEnv("PROJECT_ID", ""),
		GeminiAPIKey: envutil.GetEnv("GEMINI_API_KEY", ""),

		TextModel:        envutil.GetEnv("GEMINI_MODEL", DefaultTextModel),
		NativeImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultNativeImageModel),
		HookImageModel:   envutil.GetEnv("HOOK_IMAGE_MODEL", DefaultHookImageModel),
		HookVideoModel:   envutil.GetEnv("HOOK_VIDEO_MODEL", DefaultHookVideoModel),

		HookImageURL:       envutil.GetEnv("HOOK_IMAGE_URL", ""),
		HookVideoInitURL:   envutil.GetEnv("HOOK_VIDEO_INIT_URL", ""),
		HookVideoStatusURL: envutil.GetEnv("HOOK_VIDEO_STATUS_URL", ""),
		HookUploadURL:      envutil.GetEnv("HOOK_UPLOAD_URL", ""),
		HookStitchURL:      envutil.GetEnv("HOOK_STITCH_URL", ""),

		ProxyURL: envutil.GetEnv("STUDIO_PROXY_URL", ""),
	}
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ソース入力関連
	SourcePaths []string // --source: ローカルパスまたは gs:// URI（複数指定可）
	OutputDir   string   // --output-dir
	SessionID   string   // --session

	// 選択軸関連（カンマ区切り。未指定の軸はカタログ全体が対象になる）
	Styles     string // --styles
	Colors     string // --colors
	Ages       string // --ages
	Poses      string // --poses
	RoomTypes  string // --rooms
	TimesOfDay string // --times
	Formats    string // --formats
	Motions    string // --motions

	// 枚数・尺関連
	Count       int // --count: ランダムプールモードの生成枚数
	PerVariant  int // --per-variant: 網羅モードのバリアントあたり枚数
	DurationSec int // --duration: 動画の秒数

	// AI挙動設定
	Model        string // --model: 生成モデルの明示指定（経路はモデル名で判定）
	ReferenceURL string // --reference-url: 広告クローンの参照ページ
	AspectRatio  string // --aspect-ratio
	Resolution   string // --resolution

	// 実行制御
	Workers     int           // --workers
	HTTPTimeout time.Duration // --http-timeout
	Seed        int64         // --seed: 抽選の再現用（0なら非決定的）
	UserEmail   string        // --user: クレジット消費対象の利用者
	ServeAddr   string        // --addr: serve コマンドの待ち受けアドレス
}

// ClampWorkers はワーカー数を 1..MaxWorkers の範囲に収めます。
func (o GenerateOptions) ClampWorkers() int {
	w := o.Workers
	if w <= 0 {
		w = DefaultWorkers
	}
	if w > MaxWorkers {
		w = MaxWorkers
	}
	return w
}

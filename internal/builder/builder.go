package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-studio-kit/internal/config"
	"github.com/shouni/go-studio-kit/internal/runner"
	"github.com/shouni/go-studio-kit/pkg/dispatch"
	"github.com/shouni/go-studio-kit/pkg/hookclient"
	"github.com/shouni/go-studio-kit/pkg/native"
	studiorunner "github.com/shouni/go-studio-kit/pkg/runner"
	"github.com/shouni/go-studio-kit/pkg/studio"

	"github.com/shouni/go-gemini-client/gemini"
	"github.com/shouni/go-web-exact/v2/extract"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// InitializeAIClient は gemini クライアントを初期化します。
func InitializeAIClient(ctx context.Context, apiKey string) (gemini.GenerativeModel, error) {
	const defaultGeminiTemperature = float32(0.2)
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// BuildHookClient は、設定に応じて直通またはプロキシ経由のフック呼び出しクライアントを構築します。
func BuildHookClient(cfg *config.Config) hookclient.ClientInterface {
	timeout := cfg.Options.HTTPTimeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	if cfg.ProxyURL != "" {
		return hookclient.NewWithProxy(timeout, cfg.ProxyURL)
	}
	return hookclient.New(timeout)
}

// BuildDispatcher は、両方の生成経路とワーカープールを束ねた Dispatcher を構築します。
func BuildDispatcher(ctx context.Context, cfg *config.Config) (*dispatch.Dispatcher, error) {
	hookClient := BuildHookClient(cfg)

	var nativeGen dispatch.NativeGenerator
	if cfg.GeminiAPIKey != "" {
		client, err := native.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("ネイティブ経路の初期化に失敗したのだ: %w", err)
		}
		nativeGen = client
	}

	var uploader dispatch.SourceUploader
	if cfg.HookUploadURL != "" {
		up, err := studio.NewUploader(hookClient, cfg.HookUploadURL, config.DefaultUploadTTL)
		if err != nil {
			return nil, fmt.Errorf("アップローダの初期化に失敗しました: %w", err)
		}
		uploader = up
	}

	// Burst 2 により、開始直後に2件までは同時にリクエストを開始できるのだ
	limiter := rate.NewLimiter(rate.Every(config.DefaultRateInterval), config.DefaultRateBurst)
	pool, err := studiorunner.NewPool(cfg.Options.ClampWorkers(), limiter)
	if err != nil {
		return nil, fmt.Errorf("ワーカープールの初期化に失敗しました: %w", err)
	}

	return dispatch.New(nativeGen, hookClient, uploader,
		dispatch.Endpoints{
			Image:       cfg.HookImageURL,
			VideoInit:   cfg.HookVideoInitURL,
			VideoStatus: cfg.HookVideoStatusURL,
			Stitch:      cfg.HookStitchURL,
		},
		pool,
		dispatch.PollConfig{
			Interval:    config.DefaultVideoPollInterval,
			MaxAttempts: config.DefaultPollMaxAttempts,
		})
}

// BuildBriefRunner は、広告クローンの参照ページを要約する Runner を構築します。
func BuildBriefRunner(appCtx *AppContext) (*runner.BriefRunner, error) {
	extractor, err := extract.NewExtractor(appCtx.httpClient)
	if err != nil {
		return nil, fmt.Errorf("extractor の初期化に失敗しました: %w", err)
	}
	return runner.NewBriefRunner(extractor, appCtx.aiClient, appCtx.Config.TextModel)
}

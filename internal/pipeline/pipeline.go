package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/go-studio-kit/internal/builder"
	"github.com/shouni/go-studio-kit/internal/config"
	"github.com/shouni/go-studio-kit/pkg/account"
	"github.com/shouni/go-studio-kit/pkg/asset"
	"github.com/shouni/go-studio-kit/pkg/dispatch"
	"github.com/shouni/go-studio-kit/pkg/domain"
	"github.com/shouni/go-studio-kit/pkg/studio"

	"cloud.google.com/go/firestore"
	"github.com/shouni/go-gemini-client/gemini"
	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
)

// ExecuteHair はヘアスタジオのバッチ（網羅モード）を実行するのだ。
func ExecuteHair(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	bc, err := newBatchContext(ctx, appCtx)
	if err != nil {
		return err
	}

	tasks := studio.BuildHairTasks(studio.HairOptions{
		Styles:      studio.Axis{Custom: cfg.Options.Styles},
		Colors:      studio.Axis{Custom: cfg.Options.Colors},
		PerStyle:    cfg.Options.PerVariant,
		Model:       pickModel(cfg, cfg.NativeImageModel),
		AspectRatio: cfg.Options.AspectRatio,
	}, bc)

	return runStudioBatch(ctx, appCtx, bc, tasks)
}

// ExecuteBaby はベビースタジオのバッチ（ランダムプールモード）を実行するのだ。
func ExecuteBaby(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	bc, err := newBatchContext(ctx, appCtx)
	if err != nil {
		return err
	}

	tasks := studio.BuildBabyTasks(studio.BabyOptions{
		Ages:        studio.Axis{Custom: cfg.Options.Ages},
		Poses:       studio.Axis{Custom: cfg.Options.Poses},
		Count:       cfg.Options.Count,
		Model:       pickModel(cfg, cfg.NativeImageModel),
		AspectRatio: cfg.Options.AspectRatio,
	}, bc)

	return runStudioBatch(ctx, appCtx, bc, tasks)
}

// ExecuteArchi は建築スタジオのバッチを実行するのだ。
func ExecuteArchi(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	bc, err := newBatchContext(ctx, appCtx)
	if err != nil {
		return err
	}

	tasks := studio.BuildArchiTasks(studio.ArchiOptions{
		RoomTypes:   studio.Axis{Custom: cfg.Options.RoomTypes},
		Styles:      studio.Axis{Custom: cfg.Options.Styles},
		TimesOfDay:  studio.Axis{Custom: cfg.Options.TimesOfDay},
		Count:       cfg.Options.Count,
		Model:       pickModel(cfg, cfg.NativeImageModel),
		AspectRatio: cfg.Options.AspectRatio,
		Resolution:  cfg.Options.Resolution,
	}, bc)

	return runStudioBatch(ctx, appCtx, bc, tasks)
}

// ExecuteAdClone は広告クローンスタジオのバッチを実行するのだ。
// 参照ページの本文抽出と要約（BriefRunner）を挟んでからタスクを展開します。
func ExecuteAdClone(ctx context.Context, cfg *config.Config) error {
	if cfg.Options.ReferenceURL == "" {
		return fmt.Errorf("--reference-url に参照広告ページのURLを指定してください")
	}

	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	briefRunner, err := builder.BuildBriefRunner(appCtx)
	if err != nil {
		return fmt.Errorf("BriefRunnerの構築に失敗したのだ: %w", err)
	}
	brief, err := briefRunner.Run(ctx, cfg.Options.ReferenceURL)
	if err != nil {
		return err
	}
	slog.Info("参照広告の要約が完成したのだ", "brief", brief)

	bc, err := newBatchContext(ctx, appCtx)
	if err != nil {
		return err
	}

	tasks := studio.BuildAdCloneTasks(studio.AdCloneOptions{
		Formats:        studio.Axis{Custom: cfg.Options.Formats},
		PerFormat:      cfg.Options.PerVariant,
		ReferenceBrief: brief,
		Model:          pickModel(cfg, cfg.NativeImageModel),
		AspectRatio:    cfg.Options.AspectRatio,
	}, bc)

	return runStudioBatch(ctx, appCtx, bc, tasks)
}

// ExecuteVideo は動画スタジオのバッチを実行するのだ。
func ExecuteVideo(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	bc, err := newBatchContext(ctx, appCtx)
	if err != nil {
		return err
	}

	tasks := studio.BuildVideoTasks(studio.VideoOptions{
		Motions:     studio.Axis{Custom: cfg.Options.Motions},
		DurationSec: cfg.Options.DurationSec,
		Model:       pickModel(cfg, cfg.HookVideoModel),
		AspectRatio: cfg.Options.AspectRatio,
		Resolution:  cfg.Options.Resolution,
	}, bc)

	return runStudioBatch(ctx, appCtx, bc, tasks)
}

// ExecuteTimeline は、元画像の並びを区間として動画を生成し、1本に結合するのだ。
// 区間ごとのプロンプトは --motions のカンマ区切りを順繰りに割り当てます。
func ExecuteTimeline(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	bc, err := newBatchContext(ctx, appCtx)
	if err != nil {
		return err
	}
	if len(bc.Sources) < 2 {
		return fmt.Errorf("タイムラインには元画像が2枚以上必要です")
	}

	motions := studio.Axis{Custom: cfg.Options.Motions}.Pool(studio.VideoMotionCatalog)
	segments := make([]studio.TimelineSegment, 0, len(bc.Sources))
	for i, src := range bc.Sources {
		segments = append(segments, studio.TimelineSegment{
			Prompt:      fmt.Sprintf("Animate this photo with a %s camera motion.", motions[i%len(motions)]),
			StartBlob:   src.Blob,
			DurationSec: cfg.Options.DurationSec,
		})
	}

	tasks := studio.BuildTimelineTasks(studio.TimelineOptions{
		Segments:    segments,
		Model:       pickModel(cfg, cfg.HookVideoModel),
		AspectRatio: cfg.Options.AspectRatio,
		Resolution:  cfg.Options.Resolution,
	}, bc)

	list, report, err := executeBatch(ctx, appCtx, bc, tasks)
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("区間の生成に %d 件失敗したため結合を中止します", report.Failed)
	}

	// 区間は VariantIndex 順に並んでいるので、そのまま結合できるのだ
	videoURLs := make([]string, 0, list.Len())
	for _, res := range list.All() {
		videoURLs = append(videoURLs, res.OutputURL)
	}

	stitched, err := appCtx.Dispatcher.Stitch(ctx, videoURLs)
	if err != nil {
		return fmt.Errorf("タイムラインの結合に失敗したのだ: %w", err)
	}
	slog.Info("タイムラインが1本に結合されたのだ！", "url", stitched)

	return writeManifest(ctx, appCtx, bc.BatchStamp, list, map[string]string{"stitched_url": stitched})
}

// runStudioBatch は、クレジット検査、バッチ実行、成果物保存、払い戻しまでの共通手順なのだ。
func runStudioBatch(ctx context.Context, appCtx *builder.AppContext, bc studio.BatchContext, tasks []domain.GenerationTask) error {
	list, report, err := executeBatch(ctx, appCtx, bc, tasks)
	if err != nil {
		return err
	}

	if err := saveResults(ctx, appCtx, bc.BatchStamp, list); err != nil {
		return err
	}

	slog.Info("スタジオバッチが完了したのだ！",
		"batch", bc.BatchStamp, "total", report.Total,
		"succeeded", report.Succeeded(), "failed", report.Failed)
	return nil
}

// executeBatch はクレジットの消費と払い戻しを挟んでバッチを決着させます。
func executeBatch(ctx context.Context, appCtx *builder.AppContext, bc studio.BatchContext, tasks []domain.GenerationTask) (*domain.ResultList, dispatch.BatchReport, error) {
	if len(tasks) == 0 {
		return nil, dispatch.BatchReport{}, fmt.Errorf("実行するタスクがありません")
	}

	email := appCtx.Options.UserEmail
	var profile account.Profile
	charged := appCtx.Accounts != nil && email != ""
	if charged {
		var err error
		profile, err = account.CheckAndConsume(ctx, appCtx.Accounts, email, int64(len(tasks))*config.DefaultCreditsPerTask)
		if err != nil {
			return nil, dispatch.BatchReport{}, err
		}
	}

	slog.Info("バッチを開始するのだ", "batch", bc.BatchStamp, "tasks", len(tasks))
	list, report, err := appCtx.Dispatcher.RunBatch(ctx, tasks, dispatch.Observer{
		OnProgress: func(p domain.Progress) {
			slog.Info("進捗", "batch", bc.BatchStamp, "completed", p.Completed, "total", p.Total)
		},
		OnResult: func(res domain.GenerationResult) {
			if res.State != domain.StateSuccess {
				slog.Warn("タスクが成功しませんでした", "key", res.Key.String(), "state", res.State, "message", res.Message)
			}
		},
	})
	if err != nil {
		return nil, report, err
	}

	if charged {
		if refundErr := account.RefundFailed(ctx, appCtx.Accounts, profile, email, int64(report.Failed)); refundErr != nil {
			slog.Warn("失敗分の払い戻しに失敗しました", "email", email, "failed", report.Failed, "error", refundErr)
		}
	}
	return list, report, nil
}

// saveResults は成果物を保存するのだ。data URI はデコードしてファイルに書き出し、
// リモートURLの結果はマニフェストに記録します。
func saveResults(ctx context.Context, appCtx *builder.AppContext, batchStamp string, list *domain.ResultList) error {
	outputDir := appCtx.Options.OutputDir
	if outputDir == "" {
		outputDir = config.DefaultOutputDir
	}

	saved := 0
	for _, res := range list.All() {
		if res.State != domain.StateSuccess || !strings.HasPrefix(res.OutputURL, "data:") {
			continue
		}
		mimeType, data, err := decodeDataURI(res.OutputURL)
		if err != nil {
			slog.Warn("成果物のデコードに失敗しました", "key", res.Key.String(), "error", err)
			continue
		}
		name := res.FileName
		if name == "" {
			name = fileNameFor(res, mimeType)
		}
		outputPath, err := asset.ResolveOutputPath(outputDir, name)
		if err != nil {
			return fmt.Errorf("出力パスの解決に失敗しました: %w", err)
		}
		if err := appCtx.Writer.Write(ctx, outputPath, bytes.NewReader(data), mimeType); err != nil {
			return fmt.Errorf("成果物の保存に失敗したのだ: %w", err)
		}
		saved++
	}
	slog.Info("成果物を保存したのだ", "dir", outputDir, "files", saved)

	return writeManifest(ctx, appCtx, batchStamp, list, nil)
}

// manifest はバッチ1回分の結果マニフェストです。成果物と並べて保存されます。
type manifest struct {
	BatchStamp string                    `json:"batch_stamp"`
	CreatedAt  time.Time                 `json:"created_at"`
	Results    []domain.GenerationResult `json:"results"`
	Extra      map[string]string         `json:"extra,omitempty"`
}

func writeManifest(ctx context.Context, appCtx *builder.AppContext, batchStamp string, list *domain.ResultList, extra map[string]string) error {
	outputDir := appCtx.Options.OutputDir
	if outputDir == "" {
		outputDir = config.DefaultOutputDir
	}
	outputPath, err := asset.ResolveOutputPath(outputDir, batchStamp+"_"+asset.DefaultManifestName)
	if err != nil {
		return fmt.Errorf("マニフェストパスの解決に失敗しました: %w", err)
	}

	// マニフェストには data URI の本体を含めない（サイズ暴発の防止）
	results := list.All()
	for i := range results {
		if strings.HasPrefix(results[i].OutputURL, "data:") {
			results[i].OutputURL = "(saved to " + outputDir + ")"
		}
	}

	body, err := json.MarshalIndent(manifest{
		BatchStamp: batchStamp,
		CreatedAt:  time.Now(),
		Results:    results,
		Extra:      extra,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("マニフェストのエンコードに失敗しました: %w", err)
	}
	if err := appCtx.Writer.Write(ctx, outputPath, bytes.NewReader(body), "application/json"); err != nil {
		return fmt.Errorf("マニフェストの保存に失敗したのだ: %w", err)
	}
	return nil
}

// setupAppContext は、提供された設定と共有コンポーネントを使用して、アプリケーションコンテキストを初期化して返すのだ。
func setupAppContext(ctx context.Context, cfg *config.Config) (*builder.AppContext, error) {
	httpClient := httpkit.New(config.DefaultHTTPTimeout)

	// フック経路だけの構成も許すので、APIキーがある場合だけテキストモデルを持つのだ
	var aiClient gemini.GenerativeModel
	if cfg.GeminiAPIKey != "" {
		var err error
		aiClient, err = builder.InitializeAIClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create ai client: %w", err)
		}
	}

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}
	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}

	dispatcher, err := builder.BuildDispatcher(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Firestore はプロジェクトIDがある場合だけ有効化する（無ければクレジット管理なし）
	var accounts account.Store
	if cfg.ProjectID != "" {
		fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("Firestoreクライアントの初期化に失敗しました: %w", err)
		}
		accounts, err = account.NewFirestoreStore(fsClient)
		if err != nil {
			return nil, err
		}
	}

	appCtx := builder.NewAppContext(cfg, httpClient, aiClient, reader, writer, dispatcher, accounts)
	return &appCtx, nil
}

// newBatchContext は元画像を読み込み、バッチの共通文脈を組み立てるのだ。
func newBatchContext(ctx context.Context, appCtx *builder.AppContext) (studio.BatchContext, error) {
	if len(appCtx.Options.SourcePaths) == 0 {
		return studio.BatchContext{}, fmt.Errorf("--source で元画像を1枚以上指定してください")
	}

	sources := make([]studio.SourceImage, 0, len(appCtx.Options.SourcePaths))
	for _, path := range appCtx.Options.SourcePaths {
		rc, err := appCtx.Reader.Open(ctx, path)
		if err != nil {
			return studio.BatchContext{}, fmt.Errorf("元画像 '%s' の読み込みに失敗しました: %w", path, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return studio.BatchContext{}, fmt.Errorf("元画像 '%s' の読み込みに失敗しました: %w", path, err)
		}
		sources = append(sources, studio.SourceImage{
			Name: filepath.Base(path),
			Blob: domain.ImageBlob{
				Data:     base64.StdEncoding.EncodeToString(data),
				MimeType: mimeFromName(path),
			},
		})
	}

	sessionID := appCtx.Options.SessionID
	if sessionID == "" {
		sessionID = "cli"
	}
	return studio.BatchContext{
		SessionID:  sessionID,
		BatchStamp: studio.NewBatchStamp(time.Now()),
		Sources:    sources,
		Seed:       appCtx.Options.Seed,
	}, nil
}

// pickModel はフラグ指定を優先し、無ければスタジオ既定のモデルを返します。
func pickModel(cfg *config.Config, fallback string) string {
	if cfg.Options.Model != "" {
		return cfg.Options.Model
	}
	return fallback
}

func mimeFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// decodeDataURI は "data:<mime>;base64,<本体>" 形式をデコードします。
func decodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("data URI ではありません")
	}
	mimeType, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return "", nil, fmt.Errorf("base64 セクションがありません")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("base64 のデコードに失敗しました: %w", err)
	}
	return mimeType, data, nil
}

// fileNameFor は結果のファイル名を導出します。タスク由来のファイル名が失われている場合の保険です。
func fileNameFor(res domain.GenerationResult, mimeType string) string {
	ext := ".jpg"
	switch mimeType {
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	case "video/mp4":
		ext = ".mp4"
	}
	return res.Key.String() + ext
}

// Package dispatch は、スタジオが組み立てたタスク列を適切な生成経路
// （ネイティブSDK / フック型プロバイダ）に振り分け、バッチとして決着させます。
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/shouni/go-studio-kit/pkg/adapter"
	"github.com/shouni/go-studio-kit/pkg/domain"
	"github.com/shouni/go-studio-kit/pkg/hookclient"
	"github.com/shouni/go-studio-kit/pkg/poller"
	"github.com/shouni/go-studio-kit/pkg/runner"
)

// NativeGenerator はネイティブSDK経路の生成呼び出しです。
type NativeGenerator interface {
	Generate(ctx context.Context, task domain.GenerationTask) (*genai.GenerateContentResponse, error)
}

// SourceUploader は、フック経路が要求する元画像の公開URL化です。
type SourceUploader interface {
	PublicURL(ctx context.Context, cacheKey string, blob domain.ImageBlob) (string, error)
}

// Endpoints はフック型プロバイダの各エンドポイントURLです。
type Endpoints struct {
	Image       string
	VideoInit   string
	VideoStatus string
	Stitch      string
}

// PollConfig は動画ジョブのポーリング間隔と試行上限です。
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// hookImageRequest は画像フックへの送信ペイロードです。
type hookImageRequest struct {
	Prompt      string   `json:"prompt"`
	ImageURLs   []string `json:"image_urls"`
	Model       string   `json:"model,omitempty"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
}

// hookVideoRequest は動画ジョブ投入のペイロードです。
type hookVideoRequest struct {
	Prompt      string `json:"prompt"`
	ImageURL    string `json:"image_url"`
	EndImageURL string `json:"end_image_url,omitempty"`
	Model       string `json:"model,omitempty"`
	Duration    int    `json:"duration,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
}

// hookStitchRequest は動画結合のペイロードです。
type hookStitchRequest struct {
	Videos []string `json:"videos"`
}

// Observer はバッチ進行の通知先です。SSE ハブや CLI の進捗表示が実装します。
type Observer struct {
	OnResult   func(domain.GenerationResult)
	OnProgress func(domain.Progress)
}

// BatchReport は1バッチの決着サマリです。
// 失敗判定はこの明示的なカウントのみで行い、メッセージ文字列の照合はしません。
type BatchReport struct {
	Total  int
	Failed int
}

// Succeeded は成功（warning 含む）件数を返します。
func (r BatchReport) Succeeded() int { return r.Total - r.Failed }

// Dispatcher はタスクの経路判定とバッチ実行の中枢です。
type Dispatcher struct {
	native    NativeGenerator
	hook      hookclient.ClientInterface
	uploader  SourceUploader
	endpoints Endpoints
	pool      *runner.Pool
	videoPoll PollConfig

	mu       sync.Mutex
	pending  map[string]domain.JobHandle // キー文字列 -> タイムアウトした動画ジョブ
}

// New は新しい Dispatcher を生成します。native と hook はどちらか一方だけでも
// 動作しますが、その経路のモデルを持つタスクは実行時にエラーになります。
func New(nativeGen NativeGenerator, hook hookclient.ClientInterface, uploader SourceUploader,
	endpoints Endpoints, pool *runner.Pool, videoPoll PollConfig) (*Dispatcher, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool は必須です")
	}
	return &Dispatcher{
		native:    nativeGen,
		hook:      hook,
		uploader:  uploader,
		endpoints: endpoints,
		pool:      pool,
		videoPoll: videoPoll,
		pending:   make(map[string]domain.JobHandle),
	}, nil
}

// RunBatch はタスク列を決着まで実行し、識別キーで突き合わせた結果一覧と
// サマリを返します。戻り値のエラーはランナー自体の停止のみを表します。
func (d *Dispatcher) RunBatch(ctx context.Context, tasks []domain.GenerationTask, obs Observer) (*domain.ResultList, BatchReport, error) {
	list := domain.NewResultList(tasks)
	report, err := d.runInto(ctx, tasks, list, obs)
	return list, report, err
}

// RetryFailed は、前回バッチの失敗・警告分だけを元の識別キーのまま再実行します。
// 再実行結果は list 内の同じ位置に上書きされ、成功済みの結果には触れません。
func (d *Dispatcher) RetryFailed(ctx context.Context, list *domain.ResultList, tasks []domain.GenerationTask, obs Observer) (BatchReport, error) {
	retryable := make(map[string]bool)
	for _, res := range list.Retryable() {
		retryable[res.Key.String()] = true
	}

	var targets []domain.GenerationTask
	for _, task := range tasks {
		if retryable[task.Key.String()] {
			list.MarkPending(task.Key)
			targets = append(targets, task)
		}
	}
	return d.runInto(ctx, targets, list, obs)
}

func (d *Dispatcher) runInto(ctx context.Context, tasks []domain.GenerationTask, list *domain.ResultList, obs Observer) (BatchReport, error) {
	runnerTasks := make([]runner.Task, 0, len(tasks))
	for _, task := range tasks {
		runnerTasks = append(runnerTasks, d.bind(task))
	}

	var mu sync.Mutex
	cb := runner.Callbacks{
		OnSuccess: func(res domain.GenerationResult) {
			mu.Lock()
			list.Upsert(res)
			mu.Unlock()
			if obs.OnResult != nil {
				obs.OnResult(res)
			}
		},
		OnFailure: func(key domain.ResultKey, err error) {
			res := domain.GenerationResult{
				Key:     key,
				State:   domain.StateError,
				Message: adapter.Classify(err).UserMessage(),
			}
			mu.Lock()
			list.Upsert(res)
			mu.Unlock()
			if obs.OnResult != nil {
				obs.OnResult(res)
			}
		},
		OnProgress: func(completed, total int) {
			if obs.OnProgress != nil {
				obs.OnProgress(domain.Progress{Completed: completed, Total: total})
			}
		},
	}

	failed, err := d.pool.Run(ctx, runnerTasks, cb)
	report := BatchReport{Total: len(tasks), Failed: failed}
	if err != nil {
		return report, fmt.Errorf("バッチ実行が中断されました: %w", err)
	}
	slog.Info("バッチが決着しました", "total", report.Total, "failed", report.Failed)
	return report, nil
}

// bind はタスク1件をモデル名に基づいて実行関数に束ねます。
func (d *Dispatcher) bind(task domain.GenerationTask) runner.Task {
	return runner.Task{
		Key: task.Key,
		Do: func(ctx context.Context) (domain.GenerationResult, error) {
			switch {
			case adapter.IsNativeModel(task.Model):
				return d.runNative(ctx, task)
			case task.DurationSec > 0:
				return d.runHookVideo(ctx, task)
			case adapter.IsHookModel(task.Model):
				return d.runHookImage(ctx, task)
			default:
				return domain.GenerationResult{}, &domain.APIError{
					Message: fmt.Sprintf("モデル %q の生成経路を判定できません", task.Model),
				}
			}
		},
	}
}

func (d *Dispatcher) runNative(ctx context.Context, task domain.GenerationTask) (domain.GenerationResult, error) {
	if d.native == nil {
		return domain.GenerationResult{}, fmt.Errorf("ネイティブ経路が設定されていません")
	}
	resp, err := d.native.Generate(ctx, task)
	if err != nil {
		return domain.GenerationResult{}, adapter.Classify(err)
	}
	res, err := adapter.ParseNativeImage(resp, task.Key, task.Prompt)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	res.FileName = task.FileName
	return res, nil
}

// uploadSources は元画像を公開URLに変換します。同じ元画像はキャッシュが効きます。
func (d *Dispatcher) uploadSources(ctx context.Context, task domain.GenerationTask) ([]string, error) {
	if d.uploader == nil {
		return nil, fmt.Errorf("アップローダが設定されていません")
	}
	urls := make([]string, 0, len(task.Images))
	for i, img := range task.Images {
		cacheKey := fmt.Sprintf("%s/src%d-%d", task.Key.BatchStamp, task.Key.SourceIndex, i)
		url, err := d.uploader.PublicURL(ctx, cacheKey, img)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (d *Dispatcher) runHookImage(ctx context.Context, task domain.GenerationTask) (domain.GenerationResult, error) {
	if d.hook == nil || d.endpoints.Image == "" {
		return domain.GenerationResult{}, fmt.Errorf("フック画像経路が設定されていません")
	}
	urls, err := d.uploadSources(ctx, task)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	raw, err := d.hook.Call(ctx, d.endpoints.Image, hookImageRequest{
		Prompt:      task.Prompt,
		ImageURLs:   urls,
		Model:       task.Model,
		AspectRatio: task.AspectRatio,
	}, hookclient.Options{})
	if err != nil {
		return domain.GenerationResult{}, adapter.Classify(err)
	}

	uris, err := adapter.ParseHookImage(raw)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	return domain.GenerationResult{
		Key:       task.Key,
		State:     domain.StateSuccess,
		OutputURL: uris[0],
		Prompt:    task.Prompt,
		FileName:  task.FileName,
	}, nil
}

func (d *Dispatcher) runHookVideo(ctx context.Context, task domain.GenerationTask) (domain.GenerationResult, error) {
	if d.hook == nil || d.endpoints.VideoInit == "" || d.endpoints.VideoStatus == "" {
		return domain.GenerationResult{}, fmt.Errorf("フック動画経路が設定されていません")
	}
	urls, err := d.uploadSources(ctx, task)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	if len(urls) == 0 {
		return domain.GenerationResult{}, &domain.APIError{
			Message: "動画タスクには元画像が1枚必要です",
		}
	}

	raw, err := d.hook.Call(ctx, d.endpoints.VideoInit, hookVideoRequest{
		Prompt:      task.Prompt,
		ImageURL:    urls[0],
		EndImageURL: task.EndImageURL,
		Model:       task.Model,
		Duration:    task.DurationSec,
		AspectRatio: task.AspectRatio,
		Resolution:  task.Resolution,
	}, hookclient.Options{})
	if err != nil {
		return domain.GenerationResult{}, adapter.Classify(err)
	}

	requestID, err := adapter.ParseHookVideoInit(raw)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	p, err := poller.New(d.hook, d.endpoints.VideoStatus, d.videoPoll.Interval, d.videoPoll.MaxAttempts)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	videos, handle, err := p.Poll(ctx, requestID)
	if err != nil {
		d.recordIfResumable(task.Key, handle, err)
		return domain.GenerationResult{}, adapter.Classify(err)
	}
	if len(videos) == 0 {
		return domain.GenerationResult{}, &domain.APIError{Message: "完了応答に動画が含まれていません"}
	}
	return domain.GenerationResult{
		Key:       task.Key,
		State:     domain.StateSuccess,
		OutputURL: videos[0],
		Prompt:    task.Prompt,
		FileName:  task.FileName,
	}, nil
}

// recordIfResumable は、試行上限で打ち切られた動画ジョブのハンドルを保持します。
// ジョブ自体はプロバイダ側で生きている可能性があるため、後から再開できるのだ。
func (d *Dispatcher) recordIfResumable(key domain.ResultKey, handle domain.JobHandle, err error) {
	var timeoutErr *hookclient.TimeoutError
	if !errors.As(err, &timeoutErr) || handle.RequestID == "" {
		return
	}
	d.mu.Lock()
	d.pending[key.String()] = handle
	d.mu.Unlock()
	slog.Info("動画ジョブを再開待ちとして記録しました",
		"key", key.String(), "request_id", handle.RequestID, "attempts", handle.AttemptsMade)
}

// PendingJobs は再開待ちの動画ジョブのハンドル一覧を返します。
func (d *Dispatcher) PendingJobs() map[string]domain.JobHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]domain.JobHandle, len(d.pending))
	for k, v := range d.pending {
		out[k] = v
	}
	return out
}

// ResumeVideo は記録済みハンドルから動画ジョブの監視を再開します。
// 完了すればハンドルを破棄し、再タイムアウト時は進んだ試行回数で上書きします。
func (d *Dispatcher) ResumeVideo(ctx context.Context, key domain.ResultKey) (domain.GenerationResult, error) {
	d.mu.Lock()
	handle, ok := d.pending[key.String()]
	d.mu.Unlock()
	if !ok {
		return domain.GenerationResult{}, fmt.Errorf("キー %s の再開待ちジョブはありません", key.String())
	}

	p, err := poller.New(d.hook, d.endpoints.VideoStatus, d.videoPoll.Interval, d.videoPoll.MaxAttempts)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	videos, updated, err := p.Resume(ctx, handle)
	if err != nil {
		d.mu.Lock()
		d.pending[key.String()] = updated
		d.mu.Unlock()
		return domain.GenerationResult{}, adapter.Classify(err)
	}

	d.mu.Lock()
	delete(d.pending, key.String())
	d.mu.Unlock()

	if len(videos) == 0 {
		return domain.GenerationResult{}, &domain.APIError{Message: "完了応答に動画が含まれていません"}
	}
	return domain.GenerationResult{
		Key:       key,
		State:     domain.StateSuccess,
		OutputURL: videos[0],
	}, nil
}

// Stitch は生成済み動画のURL列を1本に結合し、結合済み動画のURLを返します。
func (d *Dispatcher) Stitch(ctx context.Context, videoURLs []string) (string, error) {
	if d.hook == nil || d.endpoints.Stitch == "" {
		return "", fmt.Errorf("動画結合エンドポイントが設定されていません")
	}
	if len(videoURLs) < 2 {
		return "", fmt.Errorf("結合には2本以上の動画が必要です")
	}
	raw, err := d.hook.Call(ctx, d.endpoints.Stitch, hookStitchRequest{Videos: videoURLs}, hookclient.Options{})
	if err != nil {
		return "", adapter.Classify(err)
	}
	return adapter.ParseHookStitch(raw)
}

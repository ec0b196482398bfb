package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/shouni/go-studio-kit/pkg/domain"
	"github.com/shouni/go-studio-kit/pkg/hookclient"
	"github.com/shouni/go-studio-kit/pkg/runner"
)

// fakeHookClient はURLごとに応答キューを持つ ClientInterface の偽物です。
type fakeHookClient struct {
	mu        sync.Mutex
	responses map[string][]json.RawMessage
	calls     map[string]int
}

func newFakeHookClient() *fakeHookClient {
	return &fakeHookClient{
		responses: make(map[string][]json.RawMessage),
		calls:     make(map[string]int),
	}
}

func (f *fakeHookClient) enqueue(url string, body string) {
	f.responses[url] = append(f.responses[url], json.RawMessage(body))
}

func (f *fakeHookClient) Call(ctx context.Context, url string, payload any, opts hookclient.Options) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	queue := f.responses[url]
	if len(queue) == 0 {
		return nil, fmt.Errorf("fakeHookClient: %s への応答が未登録です", url)
	}
	resp := queue[0]
	f.responses[url] = queue[1:]
	return resp, nil
}

type fakeNative struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeNative) Generate(ctx context.Context, task domain.GenerationTask) (*genai.GenerateContentResponse, error) {
	return f.resp, f.err
}

type fakeUploader struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeUploader) PublicURL(ctx context.Context, cacheKey string, blob domain.ImageBlob) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return "https://cdn.example.com/" + cacheKey, nil
}

var testEndpoints = Endpoints{
	Image:       "https://hook.example.com/image",
	VideoInit:   "https://hook.example.com/video",
	VideoStatus: "https://hook.example.com/status",
	Stitch:      "https://hook.example.com/stitch",
}

func newTestDispatcher(t *testing.T, nativeGen NativeGenerator, hook hookclient.ClientInterface) *Dispatcher {
	t.Helper()
	pool, err := runner.NewPool(2, nil)
	if err != nil {
		t.Fatalf("NewPool に失敗: %v", err)
	}
	d, err := New(nativeGen, hook, &fakeUploader{}, testEndpoints, pool,
		PollConfig{Interval: time.Millisecond, MaxAttempts: 5})
	if err != nil {
		t.Fatalf("New に失敗: %v", err)
	}
	return d
}

func imageTask(variant int, model string) domain.GenerationTask {
	return domain.GenerationTask{
		Key:    domain.ResultKey{BatchStamp: "stamp", SourceIndex: 0, VariantIndex: variant},
		Prompt: "prompt",
		Images: []domain.ImageBlob{{Data: "aGVsbG8=", MimeType: "image/jpeg"}},
		Model:  model,
	}
}

func TestDispatcherRoutes(t *testing.T) {
	t.Run("geminiモデルはネイティブ経路に乗る", func(t *testing.T) {
		nativeGen := &fakeNative{
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: &genai.Content{Parts: []*genai.Part{
						{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("png")}},
					}},
				}},
			},
		}
		d := newTestDispatcher(t, nativeGen, newFakeHookClient())

		list, report, err := d.RunBatch(context.Background(),
			[]domain.GenerationTask{imageTask(0, "gemini-2.5-flash-image")}, Observer{})
		if err != nil {
			t.Fatalf("RunBatch に失敗: %v", err)
		}
		if report.Failed != 0 {
			t.Fatalf("失敗件数 = %d, 期待 0", report.Failed)
		}
		res := list.All()[0]
		if res.State != domain.StateSuccess || res.OutputURL == "" {
			t.Fatalf("結果が成功になっていない: %+v", res)
		}
	})

	t.Run("フック画像モデルは元画像をアップロードしてから生成する", func(t *testing.T) {
		hook := newFakeHookClient()
		hook.enqueue(testEndpoints.Image, `{"images": ["abc123"]}`)
		d := newTestDispatcher(t, nil, hook)

		list, report, err := d.RunBatch(context.Background(),
			[]domain.GenerationTask{imageTask(0, "flux-pro")}, Observer{})
		if err != nil {
			t.Fatalf("RunBatch に失敗: %v", err)
		}
		if report.Failed != 0 {
			t.Fatalf("失敗件数 = %d, 期待 0", report.Failed)
		}
		res := list.All()[0]
		if res.OutputURL != "data:image/jpeg;base64,abc123" {
			t.Fatalf("OutputURL = %s", res.OutputURL)
		}
	})

	t.Run("動画タスクは投入とポーリングを経て完了する", func(t *testing.T) {
		hook := newFakeHookClient()
		hook.enqueue(testEndpoints.VideoInit, `{"request_id": "req-1"}`)
		hook.enqueue(testEndpoints.VideoStatus, `{"status": "generating"}`)
		hook.enqueue(testEndpoints.VideoStatus, `{"status": "completed", "videos": ["https://v.example.com/out.mp4"]}`)
		d := newTestDispatcher(t, nil, hook)

		task := imageTask(0, "kling-v2")
		task.DurationSec = 5
		list, report, err := d.RunBatch(context.Background(), []domain.GenerationTask{task}, Observer{})
		if err != nil {
			t.Fatalf("RunBatch に失敗: %v", err)
		}
		if report.Failed != 0 {
			t.Fatalf("失敗件数 = %d, 期待 0", report.Failed)
		}
		res := list.All()[0]
		if res.OutputURL != "https://v.example.com/out.mp4" {
			t.Fatalf("OutputURL = %s", res.OutputURL)
		}
	})

	t.Run("元画像のない動画タスクは投入前にエラーで決着する", func(t *testing.T) {
		hook := newFakeHookClient()
		d := newTestDispatcher(t, nil, hook)

		task := imageTask(0, "kling-v2")
		task.DurationSec = 5
		task.Images = nil
		list, report, err := d.RunBatch(context.Background(), []domain.GenerationTask{task}, Observer{})
		if err != nil {
			t.Fatalf("RunBatch に失敗: %v", err)
		}
		if report.Failed != 1 {
			t.Fatalf("失敗件数 = %d, 期待 1", report.Failed)
		}
		if got := hook.calls[testEndpoints.VideoInit]; got != 0 {
			t.Fatalf("入力なしのままジョブが投入された: calls=%d", got)
		}
		if res := list.All()[0]; res.State != domain.StateError {
			t.Fatalf("結果がエラーになっていない: %+v", res)
		}
	})
}

func TestDispatcherFailureAccounting(t *testing.T) {
	t.Run("失敗はメッセージ照合ではなく明示カウントで報告される", func(t *testing.T) {
		hook := newFakeHookClient()
		hook.enqueue(testEndpoints.Image, `{"images": ["ok1"]}`)
		hook.enqueue(testEndpoints.Image, `{"error": "provider exploded"}`)
		d := newTestDispatcher(t, nil, hook)

		pool, _ := runner.NewPool(1, nil)
		d.pool = pool // 応答キューの順序を固定するため直列実行にする

		tasks := []domain.GenerationTask{imageTask(0, "flux-pro"), imageTask(1, "flux-pro")}
		list, report, err := d.RunBatch(context.Background(), tasks, Observer{})
		if err != nil {
			t.Fatalf("RunBatch に失敗: %v", err)
		}
		if report.Failed != 1 || report.Succeeded() != 1 {
			t.Fatalf("report = %+v, 期待 failed=1", report)
		}
		if got := len(list.Retryable()); got != 1 {
			t.Fatalf("リトライ対象 = %d 件, 期待 1", got)
		}
	})

	t.Run("個別リトライは失敗分だけを元のキーで再実行する", func(t *testing.T) {
		hook := newFakeHookClient()
		hook.enqueue(testEndpoints.Image, `{"images": ["ok1"]}`)
		hook.enqueue(testEndpoints.Image, `{"error": "transient"}`)
		d := newTestDispatcher(t, nil, hook)

		pool, _ := runner.NewPool(1, nil)
		d.pool = pool

		tasks := []domain.GenerationTask{imageTask(0, "flux-pro"), imageTask(1, "flux-pro")}
		list, _, err := d.RunBatch(context.Background(), tasks, Observer{})
		if err != nil {
			t.Fatalf("RunBatch に失敗: %v", err)
		}

		hook.enqueue(testEndpoints.Image, `{"images": ["ok2"]}`)
		report, err := d.RetryFailed(context.Background(), list, tasks, Observer{})
		if err != nil {
			t.Fatalf("RetryFailed に失敗: %v", err)
		}
		if report.Total != 1 || report.Failed != 0 {
			t.Fatalf("report = %+v, 期待 total=1 failed=0", report)
		}

		all := list.All()
		if len(all) != 2 {
			t.Fatalf("エントリ数 = %d, 期待 2（位置の安定）", len(all))
		}
		if all[1].State != domain.StateSuccess || all[1].OutputURL != "data:image/jpeg;base64,ok2" {
			t.Fatalf("リトライ結果が元の位置に反映されていない: %+v", all[1])
		}
		if all[0].OutputURL != "data:image/jpeg;base64,ok1" {
			t.Fatalf("成功済みの結果が書き換えられた: %+v", all[0])
		}
	})
}

func TestDispatcherResume(t *testing.T) {
	t.Run("試行上限で打ち切られたジョブはハンドル付きで再開できる", func(t *testing.T) {
		hook := newFakeHookClient()
		hook.enqueue(testEndpoints.VideoInit, `{"request_id": "req-9"}`)
		for i := 0; i < 5; i++ {
			hook.enqueue(testEndpoints.VideoStatus, `{"status": "generating"}`)
		}
		d := newTestDispatcher(t, nil, hook)

		task := imageTask(0, "kling-v2")
		task.DurationSec = 5
		_, report, err := d.RunBatch(context.Background(), []domain.GenerationTask{task}, Observer{})
		if err != nil {
			t.Fatalf("RunBatch に失敗: %v", err)
		}
		if report.Failed != 1 {
			t.Fatalf("失敗件数 = %d, 期待 1（タイムアウト）", report.Failed)
		}

		pending := d.PendingJobs()
		handle, ok := pending[task.Key.String()]
		if !ok {
			t.Fatal("再開待ちハンドルが記録されていない")
		}
		if handle.RequestID != "req-9" || handle.AttemptsMade != 5 {
			t.Fatalf("handle = %+v", handle)
		}

		// プロバイダ側でジョブが完了していた想定で再開する
		hook.enqueue(testEndpoints.VideoStatus, `{"status": "completed", "videos": ["https://v.example.com/late.mp4"]}`)
		d.videoPoll.MaxAttempts = 10
		res, err := d.ResumeVideo(context.Background(), task.Key)
		if err != nil {
			t.Fatalf("ResumeVideo に失敗: %v", err)
		}
		if res.OutputURL != "https://v.example.com/late.mp4" {
			t.Fatalf("OutputURL = %s", res.OutputURL)
		}
		if _, ok := d.PendingJobs()[task.Key.String()]; ok {
			t.Fatal("完了後もハンドルが残っている")
		}
	})
}

func TestDispatcherStitch(t *testing.T) {
	t.Run("2本以上の動画を1本に結合する", func(t *testing.T) {
		hook := newFakeHookClient()
		hook.enqueue(testEndpoints.Stitch, `{"video_url": "https://v.example.com/merged.mp4"}`)
		d := newTestDispatcher(t, nil, hook)

		url, err := d.Stitch(context.Background(),
			[]string{"https://v.example.com/1.mp4", "https://v.example.com/2.mp4"})
		if err != nil {
			t.Fatalf("Stitch に失敗: %v", err)
		}
		if url != "https://v.example.com/merged.mp4" {
			t.Fatalf("結合URL = %s", url)
		}
	})

	t.Run("1本だけの結合要求は弾く", func(t *testing.T) {
		d := newTestDispatcher(t, nil, newFakeHookClient())
		if _, err := d.Stitch(context.Background(), []string{"https://v.example.com/1.mp4"}); err == nil {
			t.Fatal("1本でもエラーにならなかった")
		}
	})
}

package hookclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// デフォルト値です。Options で上書きできます。
const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 1 * time.Second
	DefaultTimeout    = 120 * time.Second
)

// プロキシ経由時のヘッダ契約です。
const (
	HeaderTargetURL    = "X-Target-URL"
	HeaderResponseType = "X-Response-Type"
	ResponseTypeBinary = "binary"
)

// ClientInterface は、フック型プロバイダへのJSON呼び出しの抽象です。
// ポーラーやディスパッチャはこのインターフェースにのみ依存します。
type ClientInterface interface {
	Call(ctx context.Context, url string, payload any, opts Options) (json.RawMessage, error)
}

// Options は1回の呼び出しの挙動を制御します。
type Options struct {
	Method     string        // 省略時は POST
	MaxRetries int           // トランスポート障害の再試行上限
	RetryDelay time.Duration // バックオフの基準値（RetryDelay * 2^attempt）
	Timeout    time.Duration // 1試行あたりの協調キャンセル期限
	Binary     bool          // プロキシにバイナリ応答を要求する場合 true
}

func (o Options) withDefaults() Options {
	if o.Method == "" {
		o.Method = http.MethodPost
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Client はフック型プロバイダ用のHTTPクライアントです。
//
// リトライの非対称性はこのクライアントの不変条件なのだ:
//   - トランスポート障害（HTTP応答にすら到達しない失敗）だけを指数バックオフで再試行する
//   - HTTPエラー応答（4xx/5xx）は確定的な拒否としてそのまま HTTPError で返す
//   - タイムアウトは TimeoutError として区別し、自動リトライせず再開可能にする
type Client struct {
	httpClient *http.Client
	proxyURL   string
}

// New は新しい Client を生成します。timeout はトランスポート全体の保険であり、
// 試行単位の期限は Options.Timeout が担います。
func New(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewWithProxy は、同一オリジンの開発用プロキシを経由する Client を生成します。
// 実宛先は X-Target-URL ヘッダで伝えるだけで、機能的には完全に透過です。
func NewWithProxy(timeout time.Duration, proxyURL string) *Client {
	c := New(timeout)
	c.proxyURL = proxyURL
	return c
}

// Call は payload をJSONで送信し、パース前の生JSONを返します。
func (c *Client) Call(ctx context.Context, url string, payload any, opts Options) (json.RawMessage, error) {
	opts = opts.withDefaults()

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("ペイロードのJSON化に失敗しました: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			// トランスポート障害のみここに到達する。指数バックオフで待つのだ。
			delay := opts.RetryDelay * time.Duration(1<<(attempt-1))
			slog.Warn("通信障害のため再試行します", "url", url, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		raw, err := c.doOnce(ctx, url, body, opts, attempt)
		if err == nil {
			return raw, nil
		}

		var timeoutErr *TimeoutError
		var httpErr *HTTPError
		if errors.As(err, &timeoutErr) || errors.As(err, &httpErr) || errors.Is(err, context.Canceled) {
			// タイムアウトと確定的拒否は再試行しない
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("再試行上限に達しました (url=%s): %w", url, lastErr)
}

// doOnce は1試行分のリクエストを実行します。
func (c *Client) doOnce(ctx context.Context, url string, body []byte, opts Options, attempt int) (json.RawMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	target := url
	if c.proxyURL != "" {
		target = c.proxyURL
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, opts.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("リクエストの構築に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.proxyURL != "" {
		req.Header.Set(HeaderTargetURL, url)
		if opts.Binary {
			req.Header.Set(HeaderResponseType, ResponseTypeBinary)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			return nil, &TimeoutError{URL: url, Payload: body, Attempts: attempt + 1}
		}
		return nil, fmt.Errorf("通信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("応答の読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return json.RawMessage(respBody), nil
}

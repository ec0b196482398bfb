package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-studio-kit/pkg/adapter"
	"github.com/shouni/go-studio-kit/pkg/domain"
	"github.com/shouni/go-studio-kit/pkg/hookclient"
)

// statusRequest はポーリング先への問い合わせペイロードです。
type statusRequest struct {
	ID string `json:"id"`
}

// Poller は、request_id を発行する非同期プロバイダの状態エンドポイントを
// 一定間隔で問い合わせます。
//
// 投入は一度きり・ポーリングは再開可能、という分離が設計の核なのだ。
// 生成は高コストで非冪等なので、タブが閉じられたり期限切れになっても
// JobHandle さえあれば Resume で続きから監視できます。
type Poller struct {
	client      hookclient.ClientInterface
	statusURL   string
	interval    time.Duration
	maxAttempts int
}

// New は新しい Poller を生成します。interval と maxAttempts はプロバイダ固有の値です
// （画像系 5秒 x 60回、動画系 10秒 x 60回が目安）。
func New(client hookclient.ClientInterface, statusURL string, interval time.Duration, maxAttempts int) (*Poller, error) {
	if client == nil {
		return nil, fmt.Errorf("client は必須です")
	}
	if statusURL == "" {
		return nil, fmt.Errorf("statusURL は必須です")
	}
	if interval <= 0 || maxAttempts <= 0 {
		return nil, fmt.Errorf("interval と maxAttempts は正の値が必要です")
	}
	return &Poller{
		client:      client,
		statusURL:   statusURL,
		interval:    interval,
		maxAttempts: maxAttempts,
	}, nil
}

// Poll は投入直後のジョブを最初からポーリングします。
func (p *Poller) Poll(ctx context.Context, requestID string) ([]string, domain.JobHandle, error) {
	return p.Resume(ctx, domain.JobHandle{RequestID: requestID})
}

// Resume は handle.AttemptsMade 回目以降からポーリングを再開します。
//
// 各応答の扱い:
//   - generating: ループ継続
//   - completed: 結果を即時返却
//   - 失敗シグナル: 即時にエラー（以降のポーリングはしない）
//   - 一過性のパース/型エラー: ログに残して同じ試行予算内で継続。
//     ただし最終試行では最後のエラーをそのまま送出する
//
// 試行上限そのものは致命的で、AttemptsMade を載せた TimeoutError を返します。
func (p *Poller) Resume(ctx context.Context, handle domain.JobHandle) ([]string, domain.JobHandle, error) {
	if handle.RequestID == "" {
		return nil, handle, fmt.Errorf("request_id が空のため再開できません")
	}

	var lastErr error
	for attempt := handle.AttemptsMade; attempt < p.maxAttempts; attempt++ {
		handle.AttemptsMade = attempt + 1

		select {
		case <-ctx.Done():
			return nil, handle, ctx.Err()
		case <-time.After(p.interval):
		}

		raw, err := p.client.Call(ctx, p.statusURL, statusRequest{ID: handle.RequestID}, hookclient.Options{})
		if err != nil {
			var httpErr *hookclient.HTTPError
			var timeoutErr *hookclient.TimeoutError
			if errors.As(err, &httpErr) || errors.As(err, &timeoutErr) {
				// 確定的な拒否とタイムアウトは続けても無駄なのだ
				return nil, handle, err
			}
			lastErr = err
			if handle.AttemptsMade >= p.maxAttempts {
				return nil, handle, lastErr
			}
			slog.Warn("状態取得に失敗したため継続します",
				"request_id", handle.RequestID, "attempt", handle.AttemptsMade, "error", err)
			continue
		}

		status, err := adapter.ParseHookStatus(raw)
		if err != nil {
			if status.State == adapter.StateFailed {
				return nil, handle, err
			}
			lastErr = err
			if handle.AttemptsMade >= p.maxAttempts {
				return nil, handle, lastErr
			}
			slog.Warn("状態応答のパースに失敗したため継続します",
				"request_id", handle.RequestID, "attempt", handle.AttemptsMade, "error", err)
			continue
		}

		switch status.State {
		case adapter.StateCompleted:
			return status.Videos, handle, nil
		case adapter.StateGenerating:
			// 継続。一過性エラーのカウントとは区別され、これは正常系なのだ。
		}
	}

	return nil, handle, &hookclient.TimeoutError{
		URL:      p.statusURL,
		Attempts: handle.AttemptsMade,
	}
}

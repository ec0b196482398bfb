package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shouni/go-studio-kit/pkg/domain"
)

// Task はランナーが実行する1ジョブです。Do は1回だけ呼ばれます。
type Task struct {
	Key domain.ResultKey
	Do  func(ctx context.Context) (domain.GenerationResult, error)
}

// Callbacks はジョブの決着ごとに呼び出されるフックです。
// OnProgress は成功・失敗を問わず決着1件につき正確に1回、
// completed が1ずつ単調増加する形で呼ばれます。
type Callbacks struct {
	OnSuccess  func(domain.GenerationResult)
	OnFailure  func(domain.ResultKey, error)
	OnProgress func(completed, total int)
}

// Pool は固定ワーカー数のタスクランナーです。
//
// 同時実行は最大 workers 件に制限されます（プロバイダのレート制限対策として
// スタジオごとに4〜10程度に調整します）。完了順序は保証しません。
// 1件の失敗は他のジョブを中断させず、失敗の分離はタスク単位なのだ。
type Pool struct {
	workers int
	limiter *rate.Limiter // nil なら流量制限なし
}

// NewPool は新しい Pool を生成します。limiter は省略可能です。
func NewPool(workers int, limiter *rate.Limiter) (*Pool, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("workers は1以上が必要です")
	}
	return &Pool{workers: workers, limiter: limiter}, nil
}

// Run はタスク列をすべて決着まで実行し、失敗件数を返します。
//
// 空のタスク列は即座に完了し、コールバックは一切呼ばれません。
// workers がタスク数を超える場合は全並列に縮退します。
// 戻り値のエラーは context の打ち切りなどランナー自体の停止のみを表し、
// 個々のタスクの失敗は failed 件数と OnFailure で報告されます。
func (p *Pool) Run(ctx context.Context, tasks []Task, cb Callbacks) (int, error) {
	total := len(tasks)
	if total == 0 {
		return 0, nil
	}

	// 共有キューはワーカーから取り出されるだけで、実行中の追加はない。
	// そのため同期はチャネルの受信だけで足りるのだ。
	queue := make(chan Task, total)
	for _, t := range tasks {
		queue <- t
	}
	close(queue)

	workers := p.workers
	if workers > total {
		workers = total
	}

	var (
		mu        sync.Mutex
		completed int
		failed    int
	)
	settle := func(key domain.ResultKey, res domain.GenerationResult, err error) {
		// コールバックの直列化と進捗の単調増加をひとつのロックで保証する
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failed++
			if cb.OnFailure != nil {
				cb.OnFailure(key, err)
			}
		} else if cb.OnSuccess != nil {
			cb.OnSuccess(res)
		}
		completed++
		if cb.OnProgress != nil {
			cb.OnProgress(completed, total)
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			for task := range queue {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				if p.limiter != nil {
					if err := p.limiter.Wait(egCtx); err != nil {
						return err
					}
				}
				res, err := task.Do(egCtx)
				if err != nil {
					slog.Warn("タスクが失敗しました", "key", task.Key.String(), "error", err)
				}
				settle(task.Key, res, err)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return failed, err
	}
	return failed, nil
}

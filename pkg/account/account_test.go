package account

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shouni/go-studio-kit/pkg/domain"
)

func TestCheckAndConsume(t *testing.T) {
	ctx := context.Background()

	t.Run("残高が足りれば消費して通過する", func(t *testing.T) {
		store := NewMemoryStore(map[string]Profile{
			"user@example.com": {Status: "active", Credits: 10},
		})
		if _, err := CheckAndConsume(ctx, store, "user@example.com", 4); err != nil {
			t.Fatalf("CheckAndConsume に失敗: %v", err)
		}
		profile, _ := store.Get(ctx, "user@example.com")
		if profile.Credits != 6 {
			t.Errorf("残高 = %d, 期待 6", profile.Credits)
		}
		if profile.UsageCount != 4 {
			t.Errorf("利用回数 = %d, 期待 4", profile.UsageCount)
		}
	})

	t.Run("残高不足はユーザー向けエラーになり消費しない", func(t *testing.T) {
		store := NewMemoryStore(map[string]Profile{
			"user@example.com": {Credits: 2},
		})
		_, err := CheckAndConsume(ctx, store, "user@example.com", 5)
		var apiErr *domain.APIError
		if !errors.As(err, &apiErr) || !apiErr.UserFacing {
			t.Fatalf("ユーザー向け APIError を期待: %v", err)
		}
		profile, _ := store.Get(ctx, "user@example.com")
		if profile.Credits != 2 {
			t.Errorf("残高が変化した: %d", profile.Credits)
		}
	})

	t.Run("管理者と社内利用者は残高に関わらず免除される", func(t *testing.T) {
		store := NewMemoryStore(map[string]Profile{
			"admin@example.com":    {IsAdmin: true, Credits: 0},
			"internal@example.com": {IsInternalUser: true, Credits: 0},
		})
		for _, email := range []string{"admin@example.com", "internal@example.com"} {
			if _, err := CheckAndConsume(ctx, store, email, 100); err != nil {
				t.Errorf("%s が免除されなかった: %v", email, err)
			}
			profile, _ := store.Get(ctx, email)
			if profile.Credits != 0 || profile.UsageCount != 0 {
				t.Errorf("%s のドキュメントが変化した: %+v", email, profile)
			}
		}
	})
}

func TestRefundFailed(t *testing.T) {
	ctx := context.Background()

	t.Run("失敗件数分だけ払い戻し利用回数は戻さない", func(t *testing.T) {
		store := NewMemoryStore(map[string]Profile{
			"user@example.com": {Credits: 10},
		})
		profile, err := CheckAndConsume(ctx, store, "user@example.com", 6)
		if err != nil {
			t.Fatalf("CheckAndConsume に失敗: %v", err)
		}
		if err := RefundFailed(ctx, store, profile, "user@example.com", 2); err != nil {
			t.Fatalf("RefundFailed に失敗: %v", err)
		}
		after, _ := store.Get(ctx, "user@example.com")
		if after.Credits != 6 {
			t.Errorf("残高 = %d, 期待 6", after.Credits)
		}
		if after.UsageCount != 6 {
			t.Errorf("利用回数 = %d, 期待 6（払い戻しで戻らない）", after.UsageCount)
		}
	})

	t.Run("免除対象者の払い戻しは何もしない", func(t *testing.T) {
		store := NewMemoryStore(map[string]Profile{
			"admin@example.com": {IsAdmin: true, Credits: 0},
		})
		profile, _ := store.Get(ctx, "admin@example.com")
		if err := RefundFailed(ctx, store, profile, "admin@example.com", 3); err != nil {
			t.Fatalf("RefundFailed に失敗: %v", err)
		}
		after, _ := store.Get(ctx, "admin@example.com")
		if after.Credits != 0 {
			t.Errorf("免除対象者に払い戻された: %d", after.Credits)
		}
	})
}

func TestMemoryStoreConcurrentUpdates(t *testing.T) {
	t.Run("並行する増減でも更新が失われない", func(t *testing.T) {
		store := NewMemoryStore(map[string]Profile{
			"user@example.com": {Credits: 1000},
		})
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = store.ConsumeCredits(context.Background(), "user@example.com", 2)
				_ = store.RefundCredits(context.Background(), "user@example.com", 1)
			}()
		}
		wg.Wait()
		profile, _ := store.Get(context.Background(), "user@example.com")
		if profile.Credits != 1000-50*2+50 {
			t.Errorf("残高 = %d, 期待 %d", profile.Credits, 950)
		}
	})
}

package account

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore はテストとローカル開発用のインメモリ Store 実装です。
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]Profile
}

// NewMemoryStore は profiles を初期状態とする MemoryStore を生成します。
func NewMemoryStore(profiles map[string]Profile) *MemoryStore {
	store := &MemoryStore{profiles: make(map[string]Profile, len(profiles))}
	for email, p := range profiles {
		store.profiles[email] = p
	}
	return store
}

func (s *MemoryStore) Get(ctx context.Context, email string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[email]
	if !ok {
		return Profile{}, fmt.Errorf("利用者 %s は登録されていません", email)
	}
	return profile, nil
}

func (s *MemoryStore) ConsumeCredits(ctx context.Context, email string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[email]
	if !ok {
		return fmt.Errorf("利用者 %s は登録されていません", email)
	}
	profile.Credits -= amount
	profile.UsageCount += amount
	s.profiles[email] = profile
	return nil
}

func (s *MemoryStore) RefundCredits(ctx context.Context, email string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[email]
	if !ok {
		return fmt.Errorf("利用者 %s は登録されていません", email)
	}
	profile.Credits += amount
	s.profiles[email] = profile
	return nil
}

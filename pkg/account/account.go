// Package account は、利用者のプロフィールとクレジット残高を管理します。
// 残高の増減は原子的なフィールドインクリメントで行い、
// 読み出し→書き戻しの競合による更新喪失を避けます。
package account

import (
	"context"
	"fmt"

	"github.com/shouni/go-studio-kit/pkg/domain"
)

// Profile は利用者1人分のドキュメントです。メールアドレスがキーになります。
type Profile struct {
	Status         string         `firestore:"status" json:"status"`
	IsAdmin        bool           `firestore:"isAdmin" json:"is_admin"`
	Credits        int64          `firestore:"credits" json:"credits"`
	UsageCount     int64          `firestore:"usageCount" json:"usage_count"`
	Domain         string         `firestore:"domain" json:"domain"`
	IsInternalUser bool           `firestore:"isInternalUser" json:"is_internal_user"`
	Preferences    map[string]any `firestore:"preferences" json:"preferences,omitempty"`
}

// Exempt は、クレジット消費を免除される利用者（管理者・社内利用者）かを返します。
func (p Profile) Exempt() bool {
	return p.IsAdmin || p.IsInternalUser
}

// Store はプロフィールの読み出しと残高の原子的な増減です。
type Store interface {
	Get(ctx context.Context, email string) (Profile, error)
	// ConsumeCredits は credits を amount 減らし、usageCount を amount 増やします。
	ConsumeCredits(ctx context.Context, email string, amount int64) error
	// RefundCredits は credits を amount 戻します。usageCount は戻しません。
	RefundCredits(ctx context.Context, email string, amount int64) error
}

// CheckAndConsume は、バッチ投入前のクレジット検査と消費をまとめて行います。
// 免除対象者は残高に関わらず消費なしで通過します。
func CheckAndConsume(ctx context.Context, store Store, email string, cost int64) (Profile, error) {
	profile, err := store.Get(ctx, email)
	if err != nil {
		return Profile{}, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile.Exempt() {
		return profile, nil
	}
	if profile.Credits < cost {
		return profile, &domain.APIError{
			Message:    fmt.Sprintf("クレジットが不足しています（残高 %d / 必要 %d）", profile.Credits, cost),
			UserFacing: true,
		}
	}
	if err := store.ConsumeCredits(ctx, email, cost); err != nil {
		return profile, fmt.Errorf("クレジットの消費に失敗しました: %w", err)
	}
	return profile, nil
}

// RefundFailed は、バッチ決着後に失敗件数分のクレジットを払い戻します。
// 免除対象者はそもそも消費していないため何もしません。
func RefundFailed(ctx context.Context, store Store, profile Profile, email string, failed int64) error {
	if profile.Exempt() || failed <= 0 {
		return nil
	}
	if err := store.RefundCredits(ctx, email, failed); err != nil {
		return fmt.Errorf("クレジットの払い戻しに失敗しました: %w", err)
	}
	return nil
}

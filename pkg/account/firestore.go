package account

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

const usersCollection = "users"

// FirestoreStore は Firestore をドキュメントストアとして使う Store 実装です。
// 残高の増減は firestore.Increment によるサーバ側の原子的更新で行うのだ。
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore は新しい FirestoreStore を生成します。
func NewFirestoreStore(client *firestore.Client) (*FirestoreStore, error) {
	if client == nil {
		return nil, fmt.Errorf("client は必須です")
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) doc(email string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(email)
}

// Get はメールアドレスに対応するプロフィールを読み出します。
func (s *FirestoreStore) Get(ctx context.Context, email string) (Profile, error) {
	snap, err := s.doc(email).Get(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("ドキュメントの取得に失敗しました: %w", err)
	}
	var profile Profile
	if err := snap.DataTo(&profile); err != nil {
		return Profile{}, fmt.Errorf("ドキュメントの変換に失敗しました: %w", err)
	}
	return profile, nil
}

// ConsumeCredits は残高を原子的に減算し、利用回数を同時に加算します。
func (s *FirestoreStore) ConsumeCredits(ctx context.Context, email string, amount int64) error {
	_, err := s.doc(email).Update(ctx, []firestore.Update{
		{Path: "credits", Value: firestore.Increment(-amount)},
		{Path: "usageCount", Value: firestore.Increment(amount)},
	})
	return err
}

// RefundCredits は残高を原子的に加算します。
func (s *FirestoreStore) RefundCredits(ctx context.Context, email string, amount int64) error {
	_, err := s.doc(email).Update(ctx, []firestore.Update{
		{Path: "credits", Value: firestore.Increment(amount)},
	})
	return err
}

package studio

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/shouni/go-studio-kit/pkg/adapter"
	"github.com/shouni/go-studio-kit/pkg/domain"
	"github.com/shouni/go-studio-kit/pkg/hookclient"
)

// uploadRequest はアップロードエンドポイントへのペイロードです（image_url 契約）。
type uploadRequest struct {
	ImageURL string `json:"image_url"`
	Filename string `json:"filename,omitempty"`
}

// Uploader は、フック型プロバイダが要求する「公開URL化」を担います。
// data URL をアップロードエンドポイントに送り、得られた公開URLをTTL付きでキャッシュします。
//
// 同じ元画像が1バッチ内の多数のタスクから参照されるため、
// singleflight で同一キーの同時アップロードを1回に集約するのだ。
type Uploader struct {
	client    hookclient.ClientInterface
	uploadURL string
	urlCache  *cache.Cache
	group     singleflight.Group
}

// NewUploader は新しい Uploader を生成します。
func NewUploader(client hookclient.ClientInterface, uploadURL string, ttl time.Duration) (*Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("client は必須です")
	}
	if uploadURL == "" {
		return nil, fmt.Errorf("uploadURL は必須です")
	}
	return &Uploader{
		client:    client,
		uploadURL: uploadURL,
		urlCache:  cache.New(ttl, 2*ttl),
	}, nil
}

// PublicURL は、元画像（Base64）に対応する公開URLを返します。
// キャッシュ命中時は通信しません。cacheKey には元画像の識別子
// （セッションID + ファイル名など）を渡してください。
func (u *Uploader) PublicURL(ctx context.Context, cacheKey string, blob domain.ImageBlob) (string, error) {
	if cached, ok := u.urlCache.Get(cacheKey); ok {
		return cached.(string), nil
	}

	val, err, _ := u.group.Do(cacheKey, func() (interface{}, error) {
		// singleflight 待機中に先行のアップロードが完了している可能性を再確認
		if cached, ok := u.urlCache.Get(cacheKey); ok {
			return cached.(string), nil
		}

		dataURL := fmt.Sprintf("data:%s;base64,%s", blob.MimeType, blob.Data)
		raw, err := u.client.Call(ctx, u.uploadURL, uploadRequest{
			ImageURL: dataURL,
			Filename: cacheKey,
		}, hookclient.Options{})
		if err != nil {
			return nil, fmt.Errorf("元画像のアップロードに失敗しました: %w", err)
		}

		publicURL, err := adapter.ParseHookUpload(raw)
		if err != nil {
			return nil, err
		}

		u.urlCache.SetDefault(cacheKey, publicURL)
		return publicURL, nil
	})
	if err != nil {
		return "", err
	}

	url, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("unexpected return type from singleflight: %T", val)
	}
	return url, nil
}

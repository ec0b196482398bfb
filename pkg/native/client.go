// Package native は、Gemini ネイティブSDK経路の生成呼び出しを担います。
// フック型プロバイダと違い、元画像はアップロード不要でインラインのまま送れます。
package native

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"

	"github.com/shouni/go-studio-kit/pkg/domain"
)

// Client は genai クライアントの薄いラッパです。
// 認証は SDK 標準の環境変数（GEMINI_API_KEY 等）に委ねます。
type Client struct {
	inner *genai.Client
}

// NewClient は新しいネイティブ経路クライアントを生成します。
func NewClient(ctx context.Context) (*Client, error) {
	inner, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("genaiクライアントの初期化に失敗しました: %w", err)
	}
	return &Client{inner: inner}, nil
}

// Generate はタスク1件をネイティブSDKに投げ、応答を未加工のまま返します。
// 応答の正否判定と正規化はアダプタ側の仕事です。
func (c *Client) Generate(ctx context.Context, task domain.GenerationTask) (*genai.GenerateContentResponse, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(task.Prompt),
	}
	for i, img := range task.Images {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return nil, fmt.Errorf("元画像%dのBase64復号に失敗しました: %w", i, err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: img.MimeType,
				Data:     data,
			},
		})
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	resp, err := c.inner.Models.GenerateContent(ctx, task.Model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("ネイティブ生成の呼び出しに失敗しました: %w", err)
	}
	return resp, nil
}

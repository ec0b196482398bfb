package adapter

import "strings"

// モデルIDからプロバイダ系統を一度だけ判定するための述語です。
// 呼び出し先の散在した型チェックではなく、この2つでルーティングします。

// IsNativeModel は、ネイティブSDK（Gemini）で呼び出すモデルかを判定します。
func IsNativeModel(model string) bool {
	return strings.HasPrefix(model, "gemini-")
}

// IsHookModel は、外部のWebhookエンドポイント経由で呼び出すモデルかを判定します。
func IsHookModel(model string) bool {
	return model != "" && !IsNativeModel(model)
}

package domain

// APIError は、あらゆる失敗経路（SDK例外・フックのHTTPエラー・JSON不正・タイムアウト）を
// 流し込む唯一のエラー形です。分類フラグはアダプタ層の共有述語でのみ設定します。
type APIError struct {
	Message       string `json:"message"`
	UserFacing    bool   `json:"user_facing"`
	SafetyFilter  bool   `json:"safety_filter"`
	QuotaExceeded bool   `json:"quota_exceeded"`
}

// Error は error インターフェースを満たします。
func (e *APIError) Error() string {
	return e.Message
}

// UserMessage は、ユーザーに提示してよいメッセージを返します。
// ユーザー向けでない内部エラーは汎用メッセージに丸めるのだ。
func (e *APIError) UserMessage() string {
	if e.UserFacing {
		return e.Message
	}
	return "生成に失敗しました。時間をおいて再試行してください。"
}

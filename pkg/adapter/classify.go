package adapter

import (
	"errors"
	"strings"

	"github.com/shouni/go-studio-kit/pkg/domain"
	"github.com/shouni/go-studio-kit/pkg/hookclient"
)

// エラーメッセージの分類はこのファイルの共有述語に一元化します。
// 全スタジオの生成タスクが同じアダプタを通るため、スタジオ側での再実装は禁止なのだ。

var quotaTokens = []string{"429", "RESOURCE_EXHAUSTED", "quota", "Quota"}

var safetyTokens = []string{"SAFETY", "safety", "policy violation"}

// IsQuotaMessage は、メッセージがクォータ超過を示すかを判定します。
func IsQuotaMessage(message string) bool {
	for _, token := range quotaTokens {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}

// IsSafetyMessage は、メッセージがセーフティフィルタ起因かを判定します。
func IsSafetyMessage(message string) bool {
	for _, token := range safetyTokens {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}

// Classify は、任意の失敗を正規化された APIError に変換します。
// hookclient の型付きエラーはここで吸収し、以後の層は APIError だけを見ます。
func Classify(err error) *domain.APIError {
	if err == nil {
		return nil
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	message := err.Error()

	var httpErr *hookclient.HTTPError
	if errors.As(err, &httpErr) {
		message = httpErr.Error()
	}

	var timeoutErr *hookclient.TimeoutError
	if errors.As(err, &timeoutErr) {
		return &domain.APIError{
			Message:    "生成がタイムアウトしました。再開できます。",
			UserFacing: true,
		}
	}

	return classifyMessage(message, false)
}

// classifyMessage は、メッセージに共有述語を適用した APIError を生成します。
// フック系パーサはプロバイダの error 文字列をここへ通すこと。
// Classify は既存の APIError を素通しするため、この経路を経ないと
// 200応答に埋め込まれたクォータ超過やセーフティ起因が素通りしてしまうのだ。
func classifyMessage(message string, userFacing bool) *domain.APIError {
	out := &domain.APIError{Message: message, UserFacing: userFacing}
	switch {
	case IsQuotaMessage(message):
		out.QuotaExceeded = true
		out.UserFacing = true
		out.Message = "利用枠の上限に達しました。しばらく待ってから再試行してください。"
	case IsSafetyMessage(message):
		out.SafetyFilter = true
		out.UserFacing = true
	}
	return out
}

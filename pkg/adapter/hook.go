package adapter

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shouni/go-studio-kit/pkg/domain"
)

// ポーリング状態の定数です。フックプロバイダの status 文字列に対応します。
const (
	StateGenerating = "generating"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// hookImageResponse はフック型画像エンドポイントの応答形です。
// 成功の判定は images 配列の存在であり、error フィールドの不在ではありません。
// 一部の失敗経路では明示的な error が省略されるため、この向きの判定が必須なのだ。
type hookImageResponse struct {
	Images   []string `json:"images"`
	Error    string   `json:"error"`
	ErrorAlt string   `json:"Error"`
	Message  string   `json:"message"`
}

// hookVideoInitResponse は非同期動画ジョブの投入応答です。
type hookVideoInitResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"Error"`
	ErrorLow  string `json:"error"`
}

// hookStatusResponse はポーリング先の状態応答です。status が第一判定、
// videos 配列は completed の二次確認として扱います。
type hookStatusResponse struct {
	Status   string   `json:"status"`
	Videos   []string `json:"videos"`
	Error    string   `json:"error"`
	ErrorAlt string   `json:"Error"`
}

// hookUploadResponse はアップロードエンドポイントの応答です。
// image_url 系と file_url 系の2種類の契約があります。
type hookUploadResponse struct {
	ImageURL string `json:"image_url"`
	FileURL  string `json:"file_url"`
	Error    string `json:"error"`
}

// hookStitchResponse は動画結合エンドポイントの応答です。
type hookStitchResponse struct {
	VideoURL string `json:"video_url"`
	Error    string `json:"error"`
}

// StatusResult はポーリング1回分の正規化された結果です。
type StatusResult struct {
	State  string
	Videos []string
}

// firstNonEmpty は複数の別名フィールドから最初の非空文字列を返します。
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// malformed は、スキーマ違反の応答を生ペイロード付きでログに残しつつ、
// ユーザーには汎用メッセージとなる APIError を返します。
func malformed(operation string, raw json.RawMessage, err error) *domain.APIError {
	slog.Error("フック応答のパースに失敗しました",
		"operation", operation, "error", err, "raw", string(raw))
	return &domain.APIError{Message: fmt.Sprintf("%s の応答形式が不正です", operation)}
}

// ParseHookImage は画像フックの応答をパースし、Base64本体を data URI の列に変換します。
func ParseHookImage(raw json.RawMessage) ([]string, error) {
	var resp hookImageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, malformed("hook image", raw, err)
	}

	if len(resp.Images) == 0 {
		message := firstNonEmpty(resp.Error, resp.ErrorAlt, resp.Message)
		if message == "" {
			message = "プロバイダから画像が返されませんでした"
		}
		return nil, classifyMessage(message, true)
	}

	uris := make([]string, 0, len(resp.Images))
	for _, b64 := range resp.Images {
		uris = append(uris, "data:image/jpeg;base64,"+b64)
	}
	return uris, nil
}

// ParseHookVideoInit は動画ジョブ投入の応答から request_id を取り出します。
func ParseHookVideoInit(raw json.RawMessage) (string, error) {
	var resp hookVideoInitResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", malformed("hook video init", raw, err)
	}
	if resp.RequestID == "" {
		message := firstNonEmpty(resp.Error, resp.ErrorLow)
		if message == "" {
			message = "ジョブIDが発行されませんでした"
		}
		return "", classifyMessage(message, true)
	}
	return resp.RequestID, nil
}

// ParseHookStatus はポーリング応答を StatusResult に正規化します。
func ParseHookStatus(raw json.RawMessage) (StatusResult, error) {
	var resp hookStatusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return StatusResult{}, malformed("hook status", raw, err)
	}

	if message := firstNonEmpty(resp.Error, resp.ErrorAlt); message != "" {
		return StatusResult{State: StateFailed}, classifyMessage(message, true)
	}

	switch resp.Status {
	case StateGenerating, "":
		// videos が既に届いていれば status の欠落は完了として扱う
		if len(resp.Videos) > 0 {
			return StatusResult{State: StateCompleted, Videos: resp.Videos}, nil
		}
		if resp.Status == "" {
			return StatusResult{}, malformed("hook status", raw, fmt.Errorf("status も videos も存在しません"))
		}
		return StatusResult{State: StateGenerating}, nil
	case StateCompleted:
		return StatusResult{State: StateCompleted, Videos: resp.Videos}, nil
	case StateFailed:
		return StatusResult{State: StateFailed}, classifyMessage("プロバイダ側でジョブが失敗しました", true)
	default:
		return StatusResult{}, malformed("hook status", raw, fmt.Errorf("未知のstatus: %s", resp.Status))
	}
}

// ParseHookUpload はアップロード応答から公開URLを取り出します。
// image_url / file_url のどちらの契約にも対応します。
func ParseHookUpload(raw json.RawMessage) (string, error) {
	var resp hookUploadResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", malformed("hook upload", raw, err)
	}
	if url := firstNonEmpty(resp.ImageURL, resp.FileURL); url != "" {
		return url, nil
	}
	message := resp.Error
	if message == "" {
		message = "アップロード先URLが返されませんでした"
	}
	return "", classifyMessage(message, false)
}

// ParseHookStitch は動画結合応答から結合済み動画のURLを取り出します。
func ParseHookStitch(raw json.RawMessage) (string, error) {
	var resp hookStitchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", malformed("hook stitch", raw, err)
	}
	if resp.VideoURL != "" {
		return resp.VideoURL, nil
	}
	message := resp.Error
	if message == "" {
		message = "結合済み動画のURLが返されませんでした"
	}
	return "", classifyMessage(message, true)
}

package adapter

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"

	"github.com/shouni/go-studio-kit/pkg/domain"
)

// ParseNativeImage は、ネイティブSDKの画像応答を正規化された結果に変換します。
//
// プロバイダの成功シグナルは candidates[0].content.parts[] 内の inlineData の有無です。
// text のみの応答は「呼び出し自体は成功したが画像の生成を拒否された」ケースであり、
// ハードエラーではなく warning として分類し、診断用に生テキストを添付するのだ。
func ParseNativeImage(resp *genai.GenerateContentResponse, key domain.ResultKey, prompt string) (domain.GenerationResult, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return domain.GenerationResult{}, &domain.APIError{
			Message: "モデル応答に候補が含まれていません",
		}
	}

	var declineText string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			dataURI := fmt.Sprintf("data:%s;base64,%s",
				mime, base64.StdEncoding.EncodeToString(part.InlineData.Data))
			return domain.GenerationResult{
				Key:       key,
				State:     domain.StateSuccess,
				OutputURL: dataURI,
				Prompt:    prompt,
			}, nil
		}
		if part.Text != "" {
			declineText += part.Text
		}
	}

	if declineText != "" {
		// セーフティ等で画像が返らなかったケース
		return domain.GenerationResult{
			Key:     key,
			State:   domain.StateWarning,
			Prompt:  prompt,
			Message: "モデルが画像の生成を見送りました",
			RawText: declineText,
		}, nil
	}

	return domain.GenerationResult{}, &domain.APIError{
		Message: "モデル応答に画像もテキストも含まれていません",
	}
}

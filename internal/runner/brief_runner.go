package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-gemini-client/gemini"
	"github.com/shouni/go-web-exact/v2/extract"
)

// briefPromptTemplate は参照広告ページの本文を生成用の要約に圧縮する指示文なのだ。
const briefPromptTemplate = `以下は広告ページから抽出した本文です。
この広告の商品、訴求ポイント、トーン（雰囲気）を3文以内の英語で要約してください。
要約は画像生成プロンプトに埋め込むため、簡潔で視覚的な表現を使ってください。

---
%s`

// briefInputLimit は要約に渡す本文の上限文字数です。長大なページの暴発を防ぎます。
const briefInputLimit = 8000

// BriefRunner は、広告クローンスタジオの参照ページを取得・要約する構造体なのだ。
// ページ本文の抽出にはエクストラクター、要約にはテキストモデルを使います。
type BriefRunner struct {
	extractor *extract.Extractor     // Webサイトから本文を抽出するエクストラクター
	aiClient  gemini.GenerativeModel // Gemini APIと通信するクライアント
	model     string
}

// NewBriefRunner は、BriefRunnerの新しいインスタンスを生成して返すのだ。
func NewBriefRunner(ext *extract.Extractor, ai gemini.GenerativeModel, model string) (*BriefRunner, error) {
	if ext == nil {
		return nil, fmt.Errorf("extractor は必須です")
	}
	if ai == nil {
		return nil, fmt.Errorf("aiClient は必須です")
	}
	if model == "" {
		return nil, fmt.Errorf("model は必須です")
	}
	return &BriefRunner{extractor: ext, aiClient: ai, model: model}, nil
}

// Run は、参照URLの本文抽出と要約を一気に行い、生成プロンプト用の要約文を返すのだ。
func (br *BriefRunner) Run(ctx context.Context, referenceURL string) (string, error) {
	text, _, err := br.extractor.FetchAndExtractText(ctx, referenceURL)
	if err != nil {
		return "", fmt.Errorf("参照ページの本文抽出に失敗したのだ: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("参照ページから本文を抽出できませんでした: %s", referenceURL)
	}
	if len(text) > briefInputLimit {
		text = text[:briefInputLimit]
	}

	slog.Info("参照広告の要約を開始するのだ", "url", referenceURL, "model", br.model)
	resp, err := br.aiClient.GenerateContent(ctx, fmt.Sprintf(briefPromptTemplate, text), br.model)
	if err != nil {
		return "", fmt.Errorf("参照広告の要約に失敗したのだ: %w", err)
	}

	brief := strings.TrimSpace(resp.Text)
	if brief == "" {
		return "", fmt.Errorf("要約が空でした: %s", referenceURL)
	}
	return brief, nil
}

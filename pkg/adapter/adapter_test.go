package adapter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/shouni/go-studio-kit/pkg/domain"
	"github.com/shouni/go-studio-kit/pkg/hookclient"
)

var testKey = domain.ResultKey{BatchStamp: "b1", SourceIndex: 0, VariantIndex: 0}

func TestParseNativeImage(t *testing.T) {
	t.Run("inlineDataがあれば成功としてdata URIを返すこと", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{0x89, 0x50}}},
				}},
			}},
		}
		res, err := ParseNativeImage(resp, testKey, "a cat")
		if err != nil {
			t.Fatalf("成功応答でエラーになったのだ: %v", err)
		}
		if res.State != domain.StateSuccess {
			t.Errorf("stateが違う: %s", res.State)
		}
		if !strings.HasPrefix(res.OutputURL, "data:image/png;base64,") {
			t.Errorf("data URIの形式が違う: %s", res.OutputURL)
		}
		if res.Prompt != "a cat" {
			t.Errorf("使用プロンプトが保持されていない: %s", res.Prompt)
		}
	})

	t.Run("textのみの応答はwarningに分類し生テキストを添付すること", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "I cannot generate this image due to safety policies."},
				}},
			}},
		}
		res, err := ParseNativeImage(resp, testKey, "p")
		if err != nil {
			t.Fatalf("拒否応答はハードエラーではないのだ: %v", err)
		}
		if res.State != domain.StateWarning {
			t.Errorf("warningではなく%sになった", res.State)
		}
		if res.RawText == "" {
			t.Error("診断用の生テキストが欠落している")
		}
	})

	t.Run("候補が空ならエラーになること", func(t *testing.T) {
		if _, err := ParseNativeImage(&genai.GenerateContentResponse{}, testKey, "p"); err == nil {
			t.Error("空の応答がエラーにならなかった")
		}
	})
}

func TestParseHookImage(t *testing.T) {
	t.Run("imagesのBase64が正確なdata URIになること", func(t *testing.T) {
		uris, err := ParseHookImage(json.RawMessage(`{"images":["abc123"]}`))
		if err != nil {
			t.Fatalf("成功応答でエラー: %v", err)
		}
		if len(uris) != 1 || uris[0] != "data:image/jpeg;base64,abc123" {
			t.Errorf("期待値 'data:image/jpeg;base64,abc123', 実際の値 %v", uris)
		}
	})

	t.Run("errorフィールドが無くてもimages欠落は失敗とみなすこと", func(t *testing.T) {
		_, err := ParseHookImage(json.RawMessage(`{}`))
		if err == nil {
			t.Error("images欠落が成功扱いになったのだ")
		}
	})

	t.Run("Error(大文字)フィールドも失敗として拾うこと", func(t *testing.T) {
		_, err := ParseHookImage(json.RawMessage(`{"Error":"bad prompt"}`))
		var apiErr *domain.APIError
		if !errors.As(err, &apiErr) || !strings.Contains(apiErr.Message, "bad prompt") {
			t.Errorf("エラーメッセージが伝搬していない: %v", err)
		}
	})

	t.Run("200応答のerrorフィールドでもquotaトークンが分類されること", func(t *testing.T) {
		_, err := ParseHookImage(json.RawMessage(`{"error":"RESOURCE_EXHAUSTED: quota exceeded for model"}`))
		var apiErr *domain.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("APIErrorに正規化されていない: %v", err)
		}
		if !apiErr.QuotaExceeded {
			t.Error("quotaトークンを含むメッセージなのにQuotaExceededがfalseなのだ")
		}
		if !apiErr.UserFacing {
			t.Error("クォータ超過はユーザーに伝えるべきメッセージのはず")
		}
	})

	t.Run("200応答のerrorフィールドでもsafetyトークンが分類されること", func(t *testing.T) {
		_, err := ParseHookImage(json.RawMessage(`{"error":"blocked due to policy violation"}`))
		var apiErr *domain.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("APIErrorに正規化されていない: %v", err)
		}
		if !apiErr.SafetyFilter {
			t.Error("safetyトークンを含むメッセージなのにSafetyFilterがfalseなのだ")
		}
	})

	t.Run("JSONとして壊れた応答はMalformed扱いになること", func(t *testing.T) {
		_, err := ParseHookImage(json.RawMessage(`{invalid`))
		var apiErr *domain.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("APIErrorに正規化されていない: %v", err)
		}
		if apiErr.UserFacing {
			t.Error("スキーマ違反の詳細がユーザー向けになっている")
		}
	})
}

func TestParseHookVideoInit(t *testing.T) {
	t.Run("request_idを取り出すこと", func(t *testing.T) {
		id, err := ParseHookVideoInit(json.RawMessage(`{"request_id":"req-1"}`))
		if err != nil || id != "req-1" {
			t.Errorf("期待値 req-1, 実際の値 %s (err=%v)", id, err)
		}
	})

	t.Run("投入失敗のErrorメッセージにも共有述語が効くこと", func(t *testing.T) {
		_, err := ParseHookVideoInit(json.RawMessage(`{"Error":"429 Too Many Requests"}`))
		var apiErr *domain.APIError
		if !errors.As(err, &apiErr) || !apiErr.QuotaExceeded {
			t.Errorf("429を含むメッセージがQuotaExceededにならなかった: %v", err)
		}
	})
}

func TestParseHookStatus(t *testing.T) {
	t.Run("generatingは継続でありエラーではないこと", func(t *testing.T) {
		st, err := ParseHookStatus(json.RawMessage(`{"status":"generating"}`))
		if err != nil {
			t.Fatalf("generatingがエラー扱いされたのだ: %v", err)
		}
		if st.State != StateGenerating {
			t.Errorf("stateが違う: %s", st.State)
		}
	})

	t.Run("completedはvideosを返すこと", func(t *testing.T) {
		st, err := ParseHookStatus(json.RawMessage(`{"status":"completed","videos":["https://cdn.example.com/v.mp4"]}`))
		if err != nil {
			t.Fatalf("completedでエラー: %v", err)
		}
		if st.State != StateCompleted || len(st.Videos) != 1 {
			t.Errorf("完了応答の正規化に失敗: %+v", st)
		}
	})

	t.Run("statusが欠けてもvideosがあれば完了とみなすこと", func(t *testing.T) {
		st, err := ParseHookStatus(json.RawMessage(`{"videos":["https://cdn.example.com/v.mp4"]}`))
		if err != nil || st.State != StateCompleted {
			t.Errorf("二次判定が機能していない: %+v, %v", st, err)
		}
	})

	t.Run("failedは即時にエラーを返すこと", func(t *testing.T) {
		st, err := ParseHookStatus(json.RawMessage(`{"status":"failed"}`))
		if err == nil {
			t.Fatal("failedがエラーにならなかった")
		}
		if st.State != StateFailed {
			t.Errorf("stateが違う: %s", st.State)
		}
	})
}

func TestParseHookUpload(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"image_url契約", `{"image_url":"https://files.example.com/a.jpg"}`, "https://files.example.com/a.jpg"},
		{"file_url契約", `{"file_url":"https://files.example.com/b.bin"}`, "https://files.example.com/b.bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := ParseHookUpload(json.RawMessage(tt.raw))
			if err != nil || url != tt.want {
				t.Errorf("期待値 %s, 実際の値 %s (err=%v)", tt.want, url, err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Run("RESOURCE_EXHAUSTEDを含む429はQuotaExceededになること", func(t *testing.T) {
		err := Classify(&hookclient.HTTPError{
			StatusCode: 429,
			Body:       `{"error":{"status":"RESOURCE_EXHAUSTED"}}`,
		})
		if !err.QuotaExceeded {
			t.Error("isQuotaExceededがtrueになっていないのだ")
		}
		if !err.UserFacing {
			t.Error("クォータ超過はユーザーに伝えるべきメッセージのはず")
		}
	})

	t.Run("SAFETYトークンはSafetyFilterになること", func(t *testing.T) {
		err := Classify(errors.New("blocked due to SAFETY"))
		if !err.SafetyFilter {
			t.Error("isSafetyFilterがtrueになっていない")
		}
	})

	t.Run("TimeoutErrorは再開可能な文言に変換されること", func(t *testing.T) {
		err := Classify(&hookclient.TimeoutError{URL: "u", Attempts: 3})
		if !err.UserFacing || err.QuotaExceeded || err.SafetyFilter {
			t.Errorf("タイムアウトの分類が誤っている: %+v", err)
		}
	})

	t.Run("既にAPIErrorならそのまま返すこと", func(t *testing.T) {
		orig := &domain.APIError{Message: "m", SafetyFilter: true}
		if got := Classify(orig); got != orig {
			t.Error("APIErrorが二重に変換されたのだ")
		}
	})
}

func TestModelRouting(t *testing.T) {
	if !IsNativeModel("gemini-3-pro-image-preview") {
		t.Error("geminiモデルがネイティブ判定されない")
	}
	if IsNativeModel("flux-kontext-hook") {
		t.Error("フックモデルがネイティブ判定されたのだ")
	}
	if !IsHookModel("flux-kontext-hook") || IsHookModel("") {
		t.Error("フックモデル判定が誤っている")
	}
}

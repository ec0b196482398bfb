package domain

// 結果の状態定数です。pending から success / error / warning へ遷移します。
const (
	StatePending = "pending"
	StateSuccess = "success"
	StateError   = "error"
	StateWarning = "warning"
)

// GenerationResult は、全プロバイダのレスポンスを正規化した単一の結果契約です。
//   - success: OutputURL（URLまたはdata URI）と使用したプロンプトを保持
//   - warning: API呼び出し自体は成功したが画像が生成されなかったケース（セーフティ等）。
//     診断用にモデルの生テキストを RawText に保持
//   - error: ユーザー向けメッセージのみ保持
type GenerationResult struct {
	Key       ResultKey `json:"key"`
	State     string    `json:"state"`
	OutputURL string    `json:"output_url,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	Message   string    `json:"message,omitempty"`
	RawText   string    `json:"raw_text,omitempty"`
	FileName  string    `json:"file_name,omitempty"` // タスク由来の決定的な出力ファイル名
}

// IsSettled は、結果が終態（success / error / warning）に達したかを返します。
func (r GenerationResult) IsSettled() bool {
	return r.State == StateSuccess || r.State == StateError || r.State == StateWarning
}

// IsRetryable は、個別リトライの対象（error / warning）かどうかを返します。
func (r GenerationResult) IsRetryable() bool {
	return r.State == StateError || r.State == StateWarning
}

// Progress はバッチの進捗カウンタです。Completed は単調増加のみで、
// バッチ途中で減算やリセットは行いません。
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// ResultList は ResultKey で一意に管理される結果の集合です。
// 順不同で届く完了通知を正しいスロットへ突き合わせるための唯一の仕組みであり、
// 同一キーへの重複した完了は上書きになります（最終エントリは常に1件）。
type ResultList struct {
	order   []string
	entries map[string]GenerationResult
}

// NewResultList は tasks の順序で pending エントリを並べた ResultList を作るのだ。
func NewResultList(tasks []GenerationTask) *ResultList {
	rl := &ResultList{entries: make(map[string]GenerationResult, len(tasks))}
	for _, t := range tasks {
		id := t.Key.String()
		if _, ok := rl.entries[id]; ok {
			continue
		}
		rl.order = append(rl.order, id)
		rl.entries[id] = GenerationResult{Key: t.Key, State: StatePending, Prompt: t.Prompt}
	}
	return rl
}

// Upsert は結果をキーで突き合わせて反映します。未知のキーは末尾に追加します。
func (rl *ResultList) Upsert(res GenerationResult) {
	id := res.Key.String()
	if _, ok := rl.entries[id]; !ok {
		rl.order = append(rl.order, id)
	}
	rl.entries[id] = res
}

// MarkPending は個別リトライのために該当キーを pending に戻します。
// リスト上の位置は変わりません。
func (rl *ResultList) MarkPending(key ResultKey) {
	id := key.String()
	if cur, ok := rl.entries[id]; ok {
		rl.entries[id] = GenerationResult{Key: cur.Key, State: StatePending, Prompt: cur.Prompt}
	}
}

// Get はキーに対応する結果を返します。
func (rl *ResultList) Get(key ResultKey) (GenerationResult, bool) {
	res, ok := rl.entries[key.String()]
	return res, ok
}

// All は挿入順で全結果を返します。
func (rl *ResultList) All() []GenerationResult {
	out := make([]GenerationResult, 0, len(rl.order))
	for _, id := range rl.order {
		out = append(out, rl.entries[id])
	}
	return out
}

// Retryable は error / warning 状態のエントリだけを挿入順で返します。
func (rl *ResultList) Retryable() []GenerationResult {
	var out []GenerationResult
	for _, res := range rl.All() {
		if res.IsRetryable() {
			out = append(out, res)
		}
	}
	return out
}

// Len は管理中のエントリ数を返します。
func (rl *ResultList) Len() int {
	return len(rl.order)
}

package domain

import "fmt"

// ImageBlob は、タスクに添付される入力画像（Base64本体とMIMEタイプ）です。
type ImageBlob struct {
	Data     string `json:"data"`      // Base64エンコード済みの画像本体
	MimeType string `json:"mime_type"` // 例: "image/jpeg"
}

// ResultKey は、非同期に完了した結果を元のUIスロットへ紐付けるための複合キーです。
// バッチのタイムスタンプ、元画像のインデックス、バリアントのインデックスの組で一意になります。
// 個別リトライでは同じキーを引き継ぐことで、結果リスト上の位置が安定します。
type ResultKey struct {
	BatchStamp   string `json:"batch_stamp"`
	SourceIndex  int    `json:"source_index"`
	VariantIndex int    `json:"variant_index"`
}

// String はキーの正規化表現を返します。マップのキーとしてもこの形式を使います。
func (k ResultKey) String() string {
	return fmt.Sprintf("%s-%d-%d", k.BatchStamp, k.SourceIndex, k.VariantIndex)
}

// GenerationTask は、1件の生成作業を完全に記述する不変のデータなのだ。
// スタジオのビルダーが一度だけ生成し、ランナーが一度だけ消費する。生成後の書き換えは禁止。
type GenerationTask struct {
	Key         ResultKey   `json:"key"`
	Prompt      string      `json:"prompt"`
	Images      []ImageBlob `json:"images,omitempty"`
	Model       string      `json:"model"`
	AspectRatio string      `json:"aspect_ratio,omitempty"`
	Resolution  string      `json:"resolution,omitempty"`
	DurationSec int         `json:"duration_sec,omitempty"` // 動画生成時のみ使用
	EndImageURL string      `json:"end_image_url,omitempty"`
	FileName    string      `json:"file_name"`
}

// JobHandle は、ポーリングが中断・タイムアウトした非同期ジョブを、
// 再投入せずに途中から再開するためのハンドルです。
// 生成処理は高コストかつ非冪等なので、RequestID を失わないことが重要なのだ。
type JobHandle struct {
	RequestID    string `json:"request_id"`
	AttemptsMade int    `json:"attempts_made"`
}

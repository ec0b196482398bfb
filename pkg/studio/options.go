package studio

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-studio-kit/pkg/domain"
)

// Axis は1つの選択軸（スタイル、カラー、ポーズ等）のユーザー入力です。
// プールの解決順序は次のとおりで、結果が空になることはありません:
//  1. Custom（カンマ区切りの自由入力）があればそれをそのまま使う
//  2. Selected（名前付き候補の明示選択）があればそれだけを使う
//  3. どちらも無ければカタログ全体にフォールバックする
type Axis struct {
	Selected []string
	Custom   string
}

// Pool は上記の規則でこの軸の選択プールを解決します。
func (a Axis) Pool(catalog []string) []string {
	if strings.TrimSpace(a.Custom) != "" {
		var pool []string
		for _, v := range strings.Split(a.Custom, ",") {
			if v = strings.TrimSpace(v); v != "" {
				pool = append(pool, v)
			}
		}
		if len(pool) > 0 {
			return pool
		}
	}
	if len(a.Selected) > 0 {
		return append([]string(nil), a.Selected...)
	}
	return append([]string(nil), catalog...)
}

// pick はプールから一様ランダムに1値を選びます。
func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

// SourceImage は、スタジオに投入された元画像1枚です。
type SourceImage struct {
	Name string
	Blob domain.ImageBlob
}

// BatchContext は1回の「生成」操作に共通する文脈です。
type BatchContext struct {
	SessionID  string
	BatchStamp string
	Sources    []SourceImage
	Seed       int64 // 0ならランダムプールの抽選は非決定的
}

// NewBatchStamp は結果の突き合わせに使うバッチのタイムスタンプを発行します。
// 同一ミリ秒の多重起動でも衝突しないよう、uuid の先頭を添えるのだ。
func NewBatchStamp(now time.Time) string {
	return fmt.Sprintf("%s-%s", now.Format("20060102T150405"), uuid.NewString()[:8])
}

func (bc BatchContext) rng() *rand.Rand {
	seed := bc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

var unsafeToken = regexp.MustCompile(`[^a-z0-9]+`)

// Sanitize はファイル名に埋め込む値を小文字英数とハイフンに正規化します。
func Sanitize(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = unsafeToken.ReplaceAllString(value, "-")
	return strings.Trim(value, "-")
}

// buildFileName は決定的な出力ファイル名を導出します。
// セッションID + 正規化済み元ファイル名 + 正規化済みオプション値 + タスク番号付きのバッチ刻印、
// という構成なので、中央のカウンタなしでバッチ内の一意性が保証されます。
func buildFileName(bc BatchContext, sourceName string, optionValues []string, taskIndex int, ext string) string {
	parts := []string{bc.SessionID, Sanitize(sourceName)}
	for _, v := range optionValues {
		if s := Sanitize(v); s != "" {
			parts = append(parts, s)
		}
	}
	parts = append(parts, fmt.Sprintf("%s-%d", bc.BatchStamp, taskIndex))
	return strings.Join(parts, "_") + "." + ext
}

package asset

import (
	"github.com/shouni/go-utils/urlpath"
)

const (
	// DefaultManifestName はバッチ結果マニフェストのデフォルト JSON ファイル名です。
	DefaultManifestName = "batch_results.json"
	// DefaultTimelineFileName は結合済みタイムライン動画のベースファイル名です。
	DefaultTimelineFileName = "timeline.mp4"
)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolvePath(baseDir, fileName)
}

// ResolveBaseURL は、入力パス（URLまたはローカルパス）から
// 親ディレクトリのパスを解決し、末尾がセパレータで終わるように正規化します。
func ResolveBaseURL(rawPath string) string {
	return urlpath.ResolveBaseDir(rawPath)
}

// GenerateIndexedPath は、指定されたベースパスの拡張子の前に連番を挿入し、
// 新しいパス文字列を生成します。同じバッチを再実行した際の上書きを避けるために使います。
// 例: "out/timeline.mp4", 2 -> "out/timeline_2.mp4"
func GenerateIndexedPath(basePath string, index int) (string, error) {
	return urlpath.GenerateIndexedPath(basePath, index)
}

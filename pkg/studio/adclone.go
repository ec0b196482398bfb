package studio

import (
	"fmt"

	"github.com/shouni/go-studio-kit/pkg/domain"
)

const adClonePromptTemplate = "Recreate this advertisement as a %s featuring the uploaded product. " +
	"Match the composition, lighting and mood of the reference ad. " +
	"Reference ad summary: %s"

// AdCloneOptions は広告クローンスタジオのユーザー選択です。
// ReferenceBrief は参照広告ページから抽出・要約済みのテキストで、
// 抽出そのものはパイプライン側（エクストラクタ + テキストモデル）が行います。
type AdCloneOptions struct {
	Formats        Axis
	PerFormat      int
	ReferenceBrief string
	Model          string
	AspectRatio    string
}

// BuildAdCloneTasks は「フォーマットごとに正確にK枚」の網羅モードでタスクを展開します。
func BuildAdCloneTasks(opts AdCloneOptions, bc BatchContext) []domain.GenerationTask {
	formats := opts.Formats.Pool(AdFormatCatalog)
	perFormat := opts.PerFormat
	if perFormat <= 0 {
		perFormat = 1
	}

	var tasks []domain.GenerationTask
	for srcIdx, src := range bc.Sources {
		variant := 0
		for _, format := range formats {
			for k := 0; k < perFormat; k++ {
				tasks = append(tasks, domain.GenerationTask{
					Key: domain.ResultKey{
						BatchStamp:   bc.BatchStamp,
						SourceIndex:  srcIdx,
						VariantIndex: variant,
					},
					Prompt:      fmt.Sprintf(adClonePromptTemplate, format, opts.ReferenceBrief),
					Images:      []domain.ImageBlob{src.Blob},
					Model:       opts.Model,
					AspectRatio: opts.AspectRatio,
					FileName:    buildFileName(bc, src.Name, []string{format}, variant, "jpg"),
				})
				variant++
			}
		}
	}
	return tasks
}

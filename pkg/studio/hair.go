package studio

import (
	"fmt"

	"github.com/shouni/go-studio-kit/pkg/domain"
)

// hairPromptTemplate は不透明なプロンプト雛形です。文言自体は契約の対象外なのだ。
const hairPromptTemplate = "Change the person's hairstyle to a %s in %s color. " +
	"Keep the face, skin tone and background identical to the source photo. " +
	"Photorealistic, salon catalog quality."

// HairOptions はヘアスタジオのユーザー選択です。
type HairOptions struct {
	Styles      Axis
	Colors      Axis
	PerStyle    int // スタイル1件あたりの生成枚数（網羅モード）
	Model       string
	AspectRatio string
}

// BuildHairTasks は「スタイルごとに正確にK枚」の網羅モードでタスクを展開します。
// 総数は 元画像数 x |styles| x PerStyle になります。
// カラーはスタイルごとの抽選ではなく、プールを順繰りに割り当てて偏りを防ぎます。
func BuildHairTasks(opts HairOptions, bc BatchContext) []domain.GenerationTask {
	styles := opts.Styles.Pool(HairStyleCatalog)
	colors := opts.Colors.Pool(HairColorCatalog)
	perStyle := opts.PerStyle
	if perStyle <= 0 {
		perStyle = 1
	}

	var tasks []domain.GenerationTask
	for srcIdx, src := range bc.Sources {
		variant := 0
		for _, style := range styles {
			for k := 0; k < perStyle; k++ {
				color := colors[(variant+k)%len(colors)]
				prompt := fmt.Sprintf(hairPromptTemplate, style, color)
				tasks = append(tasks, domain.GenerationTask{
					Key: domain.ResultKey{
						BatchStamp:   bc.BatchStamp,
						SourceIndex:  srcIdx,
						VariantIndex: variant,
					},
					Prompt:      prompt,
					Images:      []domain.ImageBlob{src.Blob},
					Model:       opts.Model,
					AspectRatio: opts.AspectRatio,
					FileName:    buildFileName(bc, src.Name, []string{style, color}, variant, "jpg"),
				})
				variant++
			}
		}
	}
	return tasks
}

package studio

import (
	"fmt"

	"github.com/shouni/go-studio-kit/pkg/domain"
)

const archiPromptTemplate = "Redesign this %s in %s style, photographed at %s. " +
	"Keep the room geometry and window positions from the source photo. " +
	"Architectural magazine quality, wide-angle lens."

// ArchiOptions は建築スタジオのユーザー選択です。
type ArchiOptions struct {
	RoomTypes   Axis
	Styles      Axis
	TimesOfDay  Axis
	Count       int // 元画像1枚あたりの生成枚数（ランダムプールモード）
	Model       string
	AspectRatio string
	Resolution  string
}

// BuildArchiTasks は、元画像ごとにN枚、各軸から一様抽選するランダムプールモードです。
func BuildArchiTasks(opts ArchiOptions, bc BatchContext) []domain.GenerationTask {
	rooms := opts.RoomTypes.Pool(RoomTypeCatalog)
	styles := opts.Styles.Pool(ArchiStyleCatalog)
	times := opts.TimesOfDay.Pool(TimeOfDayCatalog)
	count := opts.Count
	if count <= 0 {
		count = 4
	}
	rng := bc.rng()

	var tasks []domain.GenerationTask
	for srcIdx, src := range bc.Sources {
		for i := 0; i < count; i++ {
			room := pick(rng, rooms)
			style := pick(rng, styles)
			tod := pick(rng, times)
			tasks = append(tasks, domain.GenerationTask{
				Key: domain.ResultKey{
					BatchStamp:   bc.BatchStamp,
					SourceIndex:  srcIdx,
					VariantIndex: i,
				},
				Prompt:      fmt.Sprintf(archiPromptTemplate, room, style, tod),
				Images:      []domain.ImageBlob{src.Blob},
				Model:       opts.Model,
				AspectRatio: opts.AspectRatio,
				Resolution:  opts.Resolution,
				FileName:    buildFileName(bc, src.Name, []string{room, style, tod}, i, "jpg"),
			})
		}
	}
	return tasks
}

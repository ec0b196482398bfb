package studio

import (
	"fmt"

	"github.com/shouni/go-studio-kit/pkg/domain"
)

const babyPromptTemplate = "A realistic photo of the couple's future baby as a %s, %s. " +
	"Blend the facial features of both parents naturally. Soft studio lighting."

// BabyOptions はベビースタジオのユーザー選択です。
type BabyOptions struct {
	Ages        Axis
	Poses       Axis
	Count       int // 合計生成枚数（ランダムプールモード）
	Model       string
	AspectRatio string
}

// BuildBabyTasks は「合計N枚、各軸から一様抽選」のランダムプールモードでタスクを展開します。
// 両親の写真（Sources全件）を1タスクの入力として束ねるため、SourceIndex は常に0です。
func BuildBabyTasks(opts BabyOptions, bc BatchContext) []domain.GenerationTask {
	ages := opts.Ages.Pool(BabyAgeCatalog)
	poses := opts.Poses.Pool(BabyPoseCatalog)
	count := opts.Count
	if count <= 0 {
		count = 4
	}
	rng := bc.rng()

	blobs := make([]domain.ImageBlob, 0, len(bc.Sources))
	sourceName := "parents"
	for _, src := range bc.Sources {
		blobs = append(blobs, src.Blob)
	}
	if len(bc.Sources) > 0 {
		sourceName = bc.Sources[0].Name
	}

	tasks := make([]domain.GenerationTask, 0, count)
	for i := 0; i < count; i++ {
		age := pick(rng, ages)
		pose := pick(rng, poses)
		tasks = append(tasks, domain.GenerationTask{
			Key: domain.ResultKey{
				BatchStamp:   bc.BatchStamp,
				SourceIndex:  0,
				VariantIndex: i,
			},
			Prompt:      fmt.Sprintf(babyPromptTemplate, age, pose),
			Images:      blobs,
			Model:       opts.Model,
			AspectRatio: opts.AspectRatio,
			FileName:    buildFileName(bc, sourceName, []string{age, pose}, i, "jpg"),
		})
	}
	return tasks
}

package studio

import (
	"fmt"

	"github.com/shouni/go-studio-kit/pkg/domain"
)

const videoPromptTemplate = "Animate this photo with a %s camera motion. " +
	"Preserve the subject and scene exactly as in the source image."

// VideoOptions は動画スタジオのユーザー選択です。
type VideoOptions struct {
	Motions     Axis
	DurationSec int
	Model       string
	AspectRatio string
	Resolution  string
}

// BuildVideoTasks は、元画像ごとに選択されたモーション全件のタスクを展開します。
func BuildVideoTasks(opts VideoOptions, bc BatchContext) []domain.GenerationTask {
	motions := opts.Motions.Pool(VideoMotionCatalog)
	duration := opts.DurationSec
	if duration <= 0 {
		duration = 5
	}

	var tasks []domain.GenerationTask
	for srcIdx, src := range bc.Sources {
		for variant, motion := range motions {
			tasks = append(tasks, domain.GenerationTask{
				Key: domain.ResultKey{
					BatchStamp:   bc.BatchStamp,
					SourceIndex:  srcIdx,
					VariantIndex: variant,
				},
				Prompt:      fmt.Sprintf(videoPromptTemplate, motion),
				Images:      []domain.ImageBlob{src.Blob},
				Model:       opts.Model,
				AspectRatio: opts.AspectRatio,
				Resolution:  opts.Resolution,
				DurationSec: duration,
				FileName:    buildFileName(bc, src.Name, []string{motion}, variant, "mp4"),
			})
		}
	}
	return tasks
}

// TimelineSegment はタイムラインスタジオの1区間です。
// EndImageURL を指定すると、次区間へ滑らかに繋がる終端フレームを固定できます。
type TimelineSegment struct {
	Prompt      string
	StartBlob   domain.ImageBlob
	EndImageURL string
	DurationSec int
}

// TimelineOptions はタイムラインスタジオのユーザー選択です。
type TimelineOptions struct {
	Segments    []TimelineSegment
	Model       string
	AspectRatio string
	Resolution  string
}

// BuildTimelineTasks は、区間の並び順を VariantIndex に写した順序付きタスク列を返します。
// 生成後の結合（スティッチ）はディスパッチャ側の仕事です。
func BuildTimelineTasks(opts TimelineOptions, bc BatchContext) []domain.GenerationTask {
	tasks := make([]domain.GenerationTask, 0, len(opts.Segments))
	for i, seg := range opts.Segments {
		duration := seg.DurationSec
		if duration <= 0 {
			duration = 5
		}
		tasks = append(tasks, domain.GenerationTask{
			Key: domain.ResultKey{
				BatchStamp:   bc.BatchStamp,
				SourceIndex:  0,
				VariantIndex: i,
			},
			Prompt:      seg.Prompt,
			Images:      []domain.ImageBlob{seg.StartBlob},
			Model:       opts.Model,
			AspectRatio: opts.AspectRatio,
			Resolution:  opts.Resolution,
			DurationSec: duration,
			EndImageURL: seg.EndImageURL,
			FileName:    buildFileName(bc, "timeline", []string{fmt.Sprintf("seg%02d", i+1)}, i, "mp4"),
		})
	}
	return tasks
}

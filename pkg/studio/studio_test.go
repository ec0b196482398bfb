package studio

import (
	"strings"
	"testing"
	"time"

	"github.com/shouni/go-studio-kit/pkg/domain"
)

func testBatchContext(sources int) BatchContext {
	bc := BatchContext{
		SessionID:  "sess01",
		BatchStamp: "20260829T120000-abcd1234",
		Seed:       42,
	}
	for i := 0; i < sources; i++ {
		bc.Sources = append(bc.Sources, SourceImage{
			Name: "photo" + string(rune('A'+i)) + ".jpg",
			Blob: domain.ImageBlob{Data: "aGVsbG8=", MimeType: "image/jpeg"},
		})
	}
	return bc
}

func TestAxisPool(t *testing.T) {
	catalog := []string{"a", "b", "c"}

	t.Run("未選択の軸はカタログ全体にフォールバックする", func(t *testing.T) {
		pool := Axis{}.Pool(catalog)
		if len(pool) != len(catalog) {
			t.Fatalf("プール件数 = %d, 期待 %d", len(pool), len(catalog))
		}
	})

	t.Run("明示選択があればそれだけを使う", func(t *testing.T) {
		pool := Axis{Selected: []string{"b"}}.Pool(catalog)
		if len(pool) != 1 || pool[0] != "b" {
			t.Fatalf("プール = %v, 期待 [b]", pool)
		}
	})

	t.Run("カスタムCSVは選択より優先され空要素は捨てる", func(t *testing.T) {
		pool := Axis{Selected: []string{"b"}, Custom: " x , , y "}.Pool(catalog)
		if len(pool) != 2 || pool[0] != "x" || pool[1] != "y" {
			t.Fatalf("プール = %v, 期待 [x y]", pool)
		}
	})

	t.Run("空白だけのカスタムはフォールバックに回る", func(t *testing.T) {
		pool := Axis{Custom: "  , , "}.Pool(catalog)
		if len(pool) != len(catalog) {
			t.Fatalf("プール件数 = %d, 期待 %d", len(pool), len(catalog))
		}
	})

	t.Run("どの経路でもプールは空にならない", func(t *testing.T) {
		for _, axis := range []Axis{{}, {Custom: ","}, {Selected: nil}} {
			if len(axis.Pool(catalog)) == 0 {
				t.Fatalf("axis %+v でプールが空になった", axis)
			}
		}
	})
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"My Photo (1).JPG": "my-photo-1-jpg",
		"milk tea beige":   "milk-tea-beige",
		"  wolf cut  ":     "wolf-cut",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, 期待 %q", in, got, want)
		}
	}
}

func TestBuildHairTasks(t *testing.T) {
	t.Run("総数は元画像数×スタイル数×PerStyleになる", func(t *testing.T) {
		opts := HairOptions{
			Styles:   Axis{Selected: []string{"bob", "perm", "bun"}},
			Colors:   Axis{Selected: []string{"ash brown"}},
			PerStyle: 2,
		}
		tasks := BuildHairTasks(opts, testBatchContext(2))
		if want := 2 * 3 * 2; len(tasks) != want {
			t.Fatalf("タスク数 = %d, 期待 %d", len(tasks), want)
		}
	})

	t.Run("識別キーはバッチ内で一意になる", func(t *testing.T) {
		opts := HairOptions{PerStyle: 2}
		tasks := BuildHairTasks(opts, testBatchContext(2))
		seen := make(map[string]bool)
		for _, task := range tasks {
			key := task.Key.String()
			if seen[key] {
				t.Fatalf("識別キー %s が重複している", key)
			}
			seen[key] = true
		}
	})

	t.Run("ファイル名はバッチ内で一意になる", func(t *testing.T) {
		opts := HairOptions{PerStyle: 3}
		tasks := BuildHairTasks(opts, testBatchContext(3))
		seen := make(map[string]bool)
		for _, task := range tasks {
			if seen[task.FileName] {
				t.Fatalf("ファイル名 %s が重複している", task.FileName)
			}
			seen[task.FileName] = true
		}
	})

	t.Run("軸が未選択でもタスクは必ず生成される", func(t *testing.T) {
		tasks := BuildHairTasks(HairOptions{}, testBatchContext(1))
		if want := len(HairStyleCatalog); len(tasks) != want {
			t.Fatalf("タスク数 = %d, 期待 %d（カタログ全体）", len(tasks), want)
		}
	})
}

func TestBuildBabyTasks(t *testing.T) {
	t.Run("合計枚数は元画像数に依らずCountになる", func(t *testing.T) {
		opts := BabyOptions{Count: 6}
		tasks := BuildBabyTasks(opts, testBatchContext(2))
		if len(tasks) != 6 {
			t.Fatalf("タスク数 = %d, 期待 6", len(tasks))
		}
	})

	t.Run("両親の写真は全タスクに束ねられSourceIndexは0固定", func(t *testing.T) {
		tasks := BuildBabyTasks(BabyOptions{Count: 3}, testBatchContext(2))
		for _, task := range tasks {
			if len(task.Images) != 2 {
				t.Errorf("入力画像数 = %d, 期待 2", len(task.Images))
			}
			if task.Key.SourceIndex != 0 {
				t.Errorf("SourceIndex = %d, 期待 0", task.Key.SourceIndex)
			}
		}
	})

	t.Run("同じシードなら抽選結果は再現する", func(t *testing.T) {
		opts := BabyOptions{Count: 5}
		first := BuildBabyTasks(opts, testBatchContext(1))
		second := BuildBabyTasks(opts, testBatchContext(1))
		for i := range first {
			if first[i].Prompt != second[i].Prompt {
				t.Fatalf("タスク%d のプロンプトが再現しない: %q != %q", i, first[i].Prompt, second[i].Prompt)
			}
		}
	})
}

func TestBuildArchiTasks(t *testing.T) {
	t.Run("元画像ごとにCount枚を抽選する", func(t *testing.T) {
		opts := ArchiOptions{Count: 3}
		tasks := BuildArchiTasks(opts, testBatchContext(2))
		if len(tasks) != 6 {
			t.Fatalf("タスク数 = %d, 期待 6", len(tasks))
		}
	})

	t.Run("プロンプトには抽選された三軸の値が埋まる", func(t *testing.T) {
		opts := ArchiOptions{
			RoomTypes:  Axis{Selected: []string{"kitchen"}},
			Styles:     Axis{Selected: []string{"japandi"}},
			TimesOfDay: Axis{Selected: []string{"golden hour"}},
			Count:      1,
		}
		tasks := BuildArchiTasks(opts, testBatchContext(1))
		for _, want := range []string{"kitchen", "japandi", "golden hour"} {
			if !strings.Contains(tasks[0].Prompt, want) {
				t.Errorf("プロンプトに %q が含まれない: %s", want, tasks[0].Prompt)
			}
		}
	})
}

func TestBuildAdCloneTasks(t *testing.T) {
	t.Run("フォーマットごとに正確にPerFormat枚を展開する", func(t *testing.T) {
		opts := AdCloneOptions{
			Formats:        Axis{Selected: []string{"square feed post", "wide banner"}},
			PerFormat:      3,
			ReferenceBrief: "summer sale campaign",
		}
		tasks := BuildAdCloneTasks(opts, testBatchContext(1))
		if want := 2 * 3; len(tasks) != want {
			t.Fatalf("タスク数 = %d, 期待 %d", len(tasks), want)
		}
		for _, task := range tasks {
			if !strings.Contains(task.Prompt, "summer sale campaign") {
				t.Errorf("参照要約がプロンプトに埋まっていない: %s", task.Prompt)
			}
		}
	})
}

func TestBuildVideoTasks(t *testing.T) {
	t.Run("モーションごとに1本ずつ展開し既定尺は5秒になる", func(t *testing.T) {
		opts := VideoOptions{Motions: Axis{Selected: []string{"slow zoom in", "orbit around subject"}}}
		tasks := BuildVideoTasks(opts, testBatchContext(1))
		if len(tasks) != 2 {
			t.Fatalf("タスク数 = %d, 期待 2", len(tasks))
		}
		for _, task := range tasks {
			if task.DurationSec != 5 {
				t.Errorf("DurationSec = %d, 期待 5", task.DurationSec)
			}
			if !strings.HasSuffix(task.FileName, ".mp4") {
				t.Errorf("ファイル名の拡張子が mp4 でない: %s", task.FileName)
			}
		}
	})
}

func TestBuildTimelineTasks(t *testing.T) {
	t.Run("区間の並び順がVariantIndexにそのまま写る", func(t *testing.T) {
		blob := domain.ImageBlob{Data: "aGVsbG8=", MimeType: "image/jpeg"}
		opts := TimelineOptions{
			Segments: []TimelineSegment{
				{Prompt: "opening", StartBlob: blob},
				{Prompt: "middle", StartBlob: blob, EndImageURL: "https://example.com/end.jpg"},
				{Prompt: "ending", StartBlob: blob, DurationSec: 8},
			},
		}
		tasks := BuildTimelineTasks(opts, testBatchContext(0))
		if len(tasks) != 3 {
			t.Fatalf("タスク数 = %d, 期待 3", len(tasks))
		}
		for i, task := range tasks {
			if task.Key.VariantIndex != i {
				t.Errorf("区間%d の VariantIndex = %d", i, task.Key.VariantIndex)
			}
		}
		if tasks[1].EndImageURL != "https://example.com/end.jpg" {
			t.Errorf("EndImageURL が引き継がれていない: %s", tasks[1].EndImageURL)
		}
		if tasks[2].DurationSec != 8 {
			t.Errorf("区間尺の指定が既定値で潰された: %d", tasks[2].DurationSec)
		}
	})
}

func TestNewBatchStamp(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	stamp := NewBatchStamp(now)
	if !strings.HasPrefix(stamp, "20260829T120000-") {
		t.Fatalf("バッチ刻印の形式が不正です: %s", stamp)
	}
	if stamp == NewBatchStamp(now) {
		t.Fatal("同時刻でもバッチ刻印は衝突しないはず")
	}
}

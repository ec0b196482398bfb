package studio

// 各スタジオの選択軸カタログです。UIで何も選択されなかった軸は、
// ここにある全候補がプールになります（「未選択」は「全部」であって「空」ではないのだ）。

// HairStyleCatalog はヘアスタジオのスタイル軸の全候補です。
var HairStyleCatalog = []string{
	"bob", "long straight", "layered", "pixie", "wolf cut",
	"ponytail", "bun", "perm", "wavy", "braided",
}

// HairColorCatalog はヘアスタジオのカラー軸の全候補です。
var HairColorCatalog = []string{
	"natural black", "dark brown", "ash brown", "milk tea beige",
	"platinum blonde", "silver gray", "inner pink", "blue black",
}

// BabyAgeCatalog はベビースタジオの月齢・年齢軸の全候補です。
var BabyAgeCatalog = []string{
	"newborn", "3 months", "6 months", "1 year old", "2 years old",
}

// BabyPoseCatalog はベビースタジオのポーズ軸の全候補です。
var BabyPoseCatalog = []string{
	"sleeping", "smiling at camera", "crawling", "sitting with toy", "yawning",
}

// RoomTypeCatalog は建築スタジオの部屋・空間軸の全候補です。
var RoomTypeCatalog = []string{
	"living room", "bedroom", "kitchen", "home office",
	"bathroom", "entrance", "balcony garden",
}

// ArchiStyleCatalog は建築スタジオのスタイル軸の全候補です。
var ArchiStyleCatalog = []string{
	"japandi", "scandinavian", "industrial", "mid-century modern",
	"minimalist", "bohemian", "wabi-sabi",
}

// TimeOfDayCatalog は建築スタジオの時間帯軸の全候補です。
var TimeOfDayCatalog = []string{
	"morning light", "midday", "golden hour", "blue hour", "night with warm lamps",
}

// AdFormatCatalog は広告クローンスタジオの出力フォーマット軸の全候補です。
var AdFormatCatalog = []string{
	"square feed post", "vertical story", "wide banner", "product close-up",
}

// VideoMotionCatalog は動画スタジオのモーションプリセット軸の全候補です。
var VideoMotionCatalog = []string{
	"slow zoom in", "slow zoom out", "pan left to right",
	"orbit around subject", "gentle handheld",
}

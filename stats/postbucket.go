package stats

// PostBuckets
//
// 用來快速定位真實設定後驗 -> PostCollect 位置 O(1)
//
// 請勿修改預設值
//   - post區間: 後驗十分位 [0,0.1), [0.1,0.2), ..., [0.9,1.0]
type PostBuckets struct {
	postBucketStr []string
	buckets       int
}

// Buckets
//
// 後驗分桶的唯一實例。
var Buckets *PostBuckets = &PostBuckets{
	postBucketStr: []string{
		"[0.0,0.1)", "[0.1,0.2)", "[0.2,0.3)", "[0.3,0.4)", "[0.4,0.5)",
		"[0.5,0.6)", "[0.6,0.7)", "[0.7,0.8)", "[0.8,0.9)", "[0.9,1.0]",
	},
	buckets: 10,
}

func (b *PostBuckets) PostBucketStr() []string {
	return b.postBucketStr
}

// Index 後驗值對應的桶位。超出 [0,1] 的輸入夾到邊界桶。
func (b *PostBuckets) Index(post float64) int {
	if post <= 0 {
		return 0
	}
	if post >= 1 {
		return b.buckets - 1
	}
	idx := int(post * float64(b.buckets))
	if idx >= b.buckets {
		idx = b.buckets - 1
	}
	return idx
}

func (b *PostBuckets) Len() int {
	return b.buckets
}

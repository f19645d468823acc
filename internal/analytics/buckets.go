package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

type buckets struct {
	sums   map[string]decimal.Decimal
	counts map[string]int
}

func newBuckets() *buckets {
	return &buckets{sums: map[string]decimal.Decimal{}, counts: map[string]int{}}
}

func (b *buckets) add(key string, amount core.Yen) {
	b.sums[key] = b.sums[key].Add(decimal.NewFromInt(int64(amount)))
	b.counts[key]++
}

func (b *buckets) bucket(key string) (Bucket, bool) {
	n, ok := b.counts[key]
	if !ok {
		return Bucket{}, false
	}
	sum := b.sums[key]
	return Bucket{
		Key:   key,
		Count: n,
		Sum:   sum.Round(2),
		Mean:  sum.Div(decimal.NewFromInt(int64(n))).Round(2),
	}, true
}

func (b *buckets) sorted() []Bucket {
	keys := make([]string, 0, len(b.counts))
	for k := range b.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		bk, _ := b.bucket(k)
		out = append(out, bk)
	}
	return out
}

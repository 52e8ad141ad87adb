package pairs

import (
	"sort"

	"github.com/asteroid-belt/partmatch/internal/features"
	"github.com/asteroid-belt/partmatch/internal/similarity"
)

// wildcard marks an unknown category or unresolved sub-type in a bucket key.
// Such products are compatible with every bucket on that axis.
const wildcard = "\x00"

type bucketKey struct {
	category string
	subtype  string
}

func keyOf(f features.Features) bucketKey {
	k := bucketKey{category: f.Category, subtype: string(f.Subtype)}
	if k.category == "" {
		k.category = wildcard
	}
	if !f.Subtype.Known() {
		k.subtype = wildcard
	}
	return k
}

func (k bucketKey) compatible(o bucketKey) bool {
	catOK := k.category == wildcard || o.category == wildcard || k.category == o.category
	subOK := k.subtype == wildcard || o.subtype == wildcard || k.subtype == o.subtype
	return catOK && subOK
}

// buckets groups catalog rows by (category, sub-type). Rows inside a bucket
// are ascending.
type buckets struct {
	keys []bucketKey
	rows map[bucketKey][]int
}

func newBuckets(feats []features.Features) *buckets {
	b := &buckets{rows: make(map[bucketKey][]int)}
	for i, f := range feats {
		k := keyOf(f)
		if _, ok := b.rows[k]; !ok {
			b.keys = append(b.keys, k)
		}
		b.rows[k] = append(b.rows[k], i)
	}
	return b
}

// positiveMatches returns, for every row i, the first max rows j > i in
// catalog order that the oracle accepts. Rows in incompatible buckets fail
// the category or sub-type rule, so skipping them gives the same result as
// testing every later row.
func positiveMatches(feats []features.Features, max int) [][]int {
	b := newBuckets(feats)
	out := make([][]int, len(feats))

	for i, f := range feats {
		k := keyOf(f)
		var lists [][]int
		for _, other := range b.keys {
			if !k.compatible(other) {
				continue
			}
			rows := b.rows[other]
			start := sort.SearchInts(rows, i+1)
			if start < len(rows) {
				lists = append(lists, rows[start:])
			}
		}
		out[i] = mergeScan(lists, max, func(j int) bool {
			return similarity.Compare(f, feats[j]).Similar
		})
	}
	return out
}

// mergeScan walks the ascending lists as one merged ascending sequence and
// collects up to max rows that accept.
func mergeScan(lists [][]int, max int, accept func(int) bool) []int {
	var hits []int
	cursors := make([]int, len(lists))
	for len(hits) < max {
		best := -1
		for li, l := range lists {
			if cursors[li] >= len(l) {
				continue
			}
			if best < 0 || l[cursors[li]] < lists[best][cursors[best]] {
				best = li
			}
		}
		if best < 0 {
			break
		}
		j := lists[best][cursors[best]]
		cursors[best]++
		if accept(j) {
			hits = append(hits, j)
		}
	}
	return hits
}

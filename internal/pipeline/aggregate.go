package pipeline

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/helixir/research-analytics-service/internal/domain"
)

// Number is a metric value type.
type Number interface {
	~int | ~int32 | ~int64 | ~float64
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Percentage returns count as a percentage of total rounded to two decimal
// places, or 0 when total is 0.
func Percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(count) / float64(total) * 100)
}

// Average returns the mean of the known values rounded to two decimal
// places. Unknown values are skipped; no known value yields 0.
func Average[N Number](values []*N) float64 {
	var (
		sum float64
		n   int
	)
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += float64(*v)
		n++
	}
	if n == 0 {
		return 0
	}
	return Round2(sum / float64(n))
}

// Frequency counts rows by key. Rows for which key reports false are skipped.
func Frequency[R any, K comparable](rows []R, key func(R) (K, bool)) map[K]int {
	counts := make(map[K]int)
	for _, row := range rows {
		if k, ok := key(row); ok {
			counts[k]++
		}
	}
	return counts
}

// FrequencyEach counts every distinct key of every row once per row.
func FrequencyEach[R any, K comparable](rows []R, keys func(R) []K) map[K]int {
	counts := make(map[K]int)
	for _, row := range rows {
		ks := keys(row)
		seen := make(map[K]struct{}, len(ks))
		for _, k := range ks {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			counts[k]++
		}
	}
	return counts
}

// Shares converts counts into field shares sorted by count descending and
// then by field ascending, truncated to n entries. n <= 0 keeps all. The
// percentage base is the sum of all counts, not only the kept ones.
func Shares(counts map[string]int, n int) []domain.FieldShare {
	total := 0
	for _, c := range counts {
		total += c
	}

	shares := make([]domain.FieldShare, 0, len(counts))
	for field, c := range counts {
		shares = append(shares, domain.FieldShare{
			Field:      field,
			Count:      c,
			Percentage: Percentage(c, total),
		})
	}
	slices.SortFunc(shares, func(a, b domain.FieldShare) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Field, b.Field)
	})
	if n > 0 && len(shares) > n {
		shares = shares[:n]
	}
	return shares
}

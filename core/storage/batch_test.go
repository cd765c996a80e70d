package storage

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartSizes(t *testing.T) {
	const mb = int64(1024 * 1024)

	cases := []struct {
		name      string
		totalSize int64
		partSize  int64
		want      []int64
	}{
		{"File chia không hết, part cuối mang phần dư", 20 * mb, 8 * mb, []int64{8 * mb, 8 * mb, 4 * mb}},
		{"File chia hết thành các part bằng nhau", 16 * mb, 8 * mb, []int64{8 * mb, 8 * mb}},
		{"File nhỏ hơn một part", 5 * mb, 8 * mb, []int64{5 * mb}},
		{"File đúng bằng một part", 8 * mb, 8 * mb, []int64{8 * mb}},
		{"File rỗng vẫn có một part kích thước 0", 0, 8 * mb, []int64{0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PartSizes(tc.totalSize, tc.partSize)
			assert.Equal(t, tc.want, got)

			// Tổng các part phải đúng bằng kích thước file
			var sum int64
			for _, s := range got {
				sum += s
			}
			if tc.totalSize > 0 {
				assert.Equal(t, tc.totalSize, sum)
			}
		})
	}
}

func TestRunBatch(t *testing.T) {
	t.Run("Mỗi phần tử được xử lý đúng một lần", func(t *testing.T) {
		const n = 20
		var mu sync.Mutex
		seen := make(map[int]int)

		RunBatch(3, n, func(i int) {
			mu.Lock()
			seen[i]++
			mu.Unlock()
		})

		assert.Len(t, seen, n)
		for i := 0; i < n; i++ {
			assert.Equal(t, 1, seen[i], "phần tử %d phải được xử lý đúng một lần", i)
		}
	})

	t.Run("Số worker chạy đồng thời không vượt giới hạn", func(t *testing.T) {
		const workers = 3
		var inFlight, maxInFlight int32
		var mu sync.Mutex

		RunBatch(workers, 30, func(i int) {
			cur := atomic.AddInt32(&inFlight, 1)
			mu.Lock()
			if cur > maxInFlight {
				maxInFlight = cur
			}
			mu.Unlock()
			atomic.AddInt32(&inFlight, -1)
		})

		assert.LessOrEqual(t, maxInFlight, int32(workers))
		assert.Greater(t, maxInFlight, int32(0))
	})

	t.Run("Workers không hợp lệ hoặc nhiều hơn batch vẫn chạy đủ", func(t *testing.T) {
		var count int32
		RunBatch(0, 5, func(i int) { atomic.AddInt32(&count, 1) })
		assert.Equal(t, int32(5), count)

		count = 0
		RunBatch(10, 2, func(i int) { atomic.AddInt32(&count, 1) })
		assert.Equal(t, int32(2), count)

		// Batch rỗng là no-op
		RunBatch(3, 0, func(i int) { t.Fatal("không được gọi fn với batch rỗng") })
	})
}

package storage

import "sync"

// PartSizes chia tổng kích thước một file thành kích thước của từng part
// liên tiếp. Part cuối mang phần dư; file rỗng vẫn có đúng một part kích
// thước 0 để phiên upload hợp lệ.
func PartSizes(totalSize, partSize int64) []int64 {
	if totalSize <= 0 {
		return []int64{0}
	}
	if partSize <= 0 || totalSize <= partSize {
		return []int64{totalSize}
	}

	sizes := make([]int64, 0, totalSize/partSize+1)
	for offset := int64(0); offset < totalSize; offset += partSize {
		size := partSize
		if remaining := totalSize - offset; remaining < partSize {
			size = remaining
		}
		sizes = append(sizes, size)
	}
	return sizes
}

// RunBatch chạy fn(i) cho mọi i trong [0, n) qua một pool worker cố định
// và block tới khi cả batch xong. Mỗi i được xử lý đúng một lần; fn phải
// tự cô lập lỗi của mình vì RunBatch không dừng batch giữa chừng.
func RunBatch(workers int, n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	wg.Wait()
}

package genre

// block is a half-open range [start, end) of the input handled by one worker.
type block struct {
	start int
	end   int
}

// partition splits n items across at most maxWorkers contiguous blocks.
// The last block absorbs the remainder of the floor division.
// Callers must handle n == 0 before calling.
func partition(n, maxWorkers int) []block {
	workers := min(maxWorkers, n)
	size := n / workers

	blocks := make([]block, workers)
	for i := range workers {
		blocks[i] = block{start: i * size, end: (i + 1) * size}
	}
	blocks[workers-1].end = n
	return blocks
}

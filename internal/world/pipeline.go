package world

import "sync"

// task runs fn over data split into one contiguous chunk per worker. fn gets
// the element index so each call can write its own result slot.
func task[T any](workersCount int, data []T, fn func(i int, item T)) {
	if len(data) == 0 {
		return
	}
	workersCount = max(1, min(workersCount, len(data)))
	if workersCount == 1 {
		for i, item := range data {
			fn(i, item)
		}
		return
	}

	var wg sync.WaitGroup
	dataSize := len(data)
	chunkSize := (dataSize + workersCount - 1) / workersCount

	for workerID := 0; workerID < workersCount; workerID++ {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i, data[i])
			}
		}(workerID*chunkSize, min((workerID+1)*chunkSize, dataSize))
	}
	wg.Wait()
}

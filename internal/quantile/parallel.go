package quantile

import (
	"runtime"
	"sync"
)

func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// forEachColumn runs fn once per column index on at most workers goroutines
// and returns when every call has finished. fn must only write state owned by
// its own column.
func forEachColumn(cols, workers int, fn func(j int)) {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if workers > cols {
		workers = cols
	}
	if workers <= 1 {
		for j := range cols {
			fn(j)
		}
		return
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	wg.Add(cols)

	for j := range cols {
		sem <- struct{}{}
		go func(j int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(j)
		}(j)
	}

	wg.Wait()
}

// Package workerpool runs a fixed, known-in-advance list of tasks across a
// bounded number of goroutines and collects one error per task.
//
// This is the Go-native replacement for the source implementation's
// per-file OS process pool (see the extraction driver's design notes): Go
// goroutines give true parallelism without the process-isolation workaround
// CPython's GIL forces, so task execution is modeled as stateless goroutines
// over a static task slice instead of a subprocess-per-file pool.
package workerpool

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Task is one unit of work dispatched to a worker goroutine.
type Task struct {
	ID      string
	Execute func(ctx context.Context) error
}

// Stats summarizes a completed Run.
type Stats struct {
	Total     int
	Completed int64
	Failed    int64
}

// Run executes tasks across workers goroutines (bounded to at least 1) and
// returns one error per task in task order (nil for success). Tasks are
// pulled from a shared channel so a slow task never stalls an idle worker;
// order of execution across workers is not guaranteed, matching the "no
// ordering across files" guarantee of the extraction driver.
func Run(ctx context.Context, workers int, tasks []Task, logger *logrus.Logger) ([]error, Stats) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]error, len(tasks))
	indices := make(chan int, len(tasks))
	for i := range tasks {
		indices <- i
	}
	close(indices)

	var wg sync.WaitGroup
	var completed, failed int64

	for w := 0; w < workers; w++ {
		wg.Add(1)
		workerID := w
		go func() {
			defer wg.Done()
			for i := range indices {
				task := tasks[i]
				err := task.Execute(ctx)
				results[i] = err
				if err != nil {
					atomic.AddInt64(&failed, 1)
					logger.WithFields(logrus.Fields{
						"worker_id": workerID,
						"task_id":   task.ID,
						"error":     err,
					}).Error("task failed")
				} else {
					atomic.AddInt64(&completed, 1)
					logger.WithFields(logrus.Fields{
						"worker_id": workerID,
						"task_id":   task.ID,
					}).Debug("task completed")
				}
			}
		}()
	}
	wg.Wait()

	return results, Stats{Total: len(tasks), Completed: completed, Failed: failed}
}

// ResolveCount translates the extraction driver's worker-count convention
// into a concrete goroutine count:
//
//	1              -> serial (1 worker)
//	positive n     -> min(n, NumCPU())
//	negative n     -> NumCPU() + n + 1 ("-2" means "all but one")
//	windows         -> always forced to 1
func ResolveCount(workers int, numCPU int, goos string) int {
	if goos == "windows" {
		return 1
	}
	if numCPU < 1 {
		numCPU = 1
	}
	if workers == 0 {
		workers = -2
	}
	switch {
	case workers == 1:
		return 1
	case workers < 0:
		resolved := numCPU + workers + 1
		if resolved < 1 {
			resolved = 1
		}
		return resolved
	case workers > numCPU:
		return numCPU
	default:
		return workers
	}
}

// DefaultGOOS is a seam for tests; production callers pass runtime.GOOS.
func DefaultGOOS() string {
	return runtime.GOOS
}

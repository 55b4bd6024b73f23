package resolve

import (
	"runtime"
	"sync"
)

// pathResult pairs a path-keyed lookup's value with its original index, so
// the caller can rebuild a path-ordered result even though the workers
// that computed it ran out of order (spec.md §9: parallelism is allowed
// anywhere that doesn't change the K-way fold's fixed sequential order in
// §4.5.2).
type pathResult struct {
	path    string
	content []byte
	ok      bool
	err     error
}

// pathPool fans out path-keyed work (reading base content for the
// hash-equality short-circuit and the three-way merge) to a fixed number
// of goroutines, collecting results back in input order. Adapted from the
// teacher's internal/worker.Pool[T] generic fan-out/fan-in pool; narrowed
// to the one shape this package needs (path in, content out) since
// nothing else in the merge engine uses the general items-of-any-string
// form the teacher's Process method exposed.
type pathPool struct {
	concurrency int
}

// newPathPool builds a pool with the given concurrency, defaulting to
// runtime.NumCPU() when concurrency <= 0, matching the teacher's NewPool.
func newPathPool(concurrency int) *pathPool {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &pathPool{concurrency: concurrency}
}

// ReadPathsConcurrently reads every path's content via read concurrently
// and returns a path -> content map covering only the paths read reports
// present. It is used for the base-content lookups Resolve and the Build
// phase both need before the hash-equality short-circuit and the K-way
// fold run — both read-only and independent per path, unlike the fold
// itself, which must stay strictly sequential.
func ReadPathsConcurrently(paths []string, read func(path string) (content []byte, ok bool, err error)) (map[string][]byte, error) {
	if len(paths) == 0 {
		return map[string][]byte{}, nil
	}

	pool := newPathPool(0)
	workers := pool.concurrency
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan int, len(paths))
	results := make([]pathResult, len(paths))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				content, ok, err := read(paths[i])
				results[i] = pathResult{path: paths[i], content: content, ok: ok, err: err}
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	out := make(map[string][]byte, len(paths))
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		if r.ok {
			out[r.path] = r.content
		}
	}
	return out, nil
}

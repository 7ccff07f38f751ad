package booksearch

import (
	"context"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"novelmeta/src/internal/schema"
)

type loadResult struct {
	ref CandidateRef
	rec schema.Record
	err error
}

func aborted(abort <-chan struct{}) bool {
	select {
	case <-abort:
		return true
	default:
		return false
	}
}

// loadAll loads refs on a pool bounded by the configured concurrency and
// collects records in completion order. A failed candidate is logged and
// skipped. Once abort fires no further loads start and ErrAborted is
// returned; loads already running finish in the background and are dropped.
func (s *Searcher) loadAll(ctx context.Context, refs []CandidateRef, abort <-chan struct{}) ([]schema.Record, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	results := make(chan loadResult, len(refs))
	p := pool.New().WithMaxGoroutines(s.cfg.Concurrency)
	go func() {
		for _, ref := range refs {
			if aborted(abort) {
				break
			}
			p.Go(func() {
				rec, err := s.LoadBook(ctx, ref)
				results <- loadResult{ref: ref, rec: rec, err: err}
			})
		}
		p.Wait()
		close(results)
	}()

	var out []schema.Record
	for r := range results {
		if aborted(abort) {
			return nil, ErrAborted
		}
		if r.err != nil {
			s.log.Debug("candidate failed", zap.String("novel_id", r.ref.ID), zap.Error(r.err))
			continue
		}
		out = append(out, r.rec)
	}
	if aborted(abort) {
		return nil, ErrAborted
	}
	s.log.Info("loaded books", zap.Int("candidates", len(refs)), zap.Int("records", len(out)))
	return out, nil
}

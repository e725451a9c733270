package cache

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/skylift/rotoreval/internal/bemt"
)

// Observer receives cache traffic events. The monitor metrics registry
// implements it.
type Observer interface {
	CacheHit(kind string)
	CacheMiss(kind string)
}

// RemoteStore is a shared second-level cache keyed by the same quantized
// hash pair. RedisStore implements it.
type RemoteStore interface {
	GetHover(ctx context.Context, key Key) (bemt.Result, bool, error)
	PutHover(ctx context.Context, key Key, value bemt.Result) error
	GetForward(ctx context.Context, key Key) (bemt.ForwardResult, bool, error)
	PutForward(ctx context.Context, key Key, value bemt.ForwardResult) error
}

// CachedSolver memoizes hover and forward solves through the LRU, with an
// optional shared remote backend. Inputs whose quantized fingerprints
// collide (optimizer jitter) reuse the stored result instead of
// re-iterating.
type CachedSolver struct {
	hover   *bemt.Solver
	forward *bemt.ForwardSolver
	cache   *EvalCache
	keys    *KeyBuilder

	remote   RemoteStore
	observer Observer
}

// NewCachedSolver wires the solvers to a cache and key builder.
func NewCachedSolver(hover *bemt.Solver, forward *bemt.ForwardSolver,
	cache *EvalCache, keys *KeyBuilder) *CachedSolver {
	return &CachedSolver{hover: hover, forward: forward, cache: cache, keys: keys}
}

// SetRemote attaches a shared second-level store.
func (s *CachedSolver) SetRemote(remote RemoteStore) {
	s.remote = remote
}

// SetObserver attaches a traffic observer.
func (s *CachedSolver) SetObserver(o Observer) {
	s.observer = o
}

func (s *CachedSolver) hit(kind string) {
	if s.observer != nil {
		s.observer.CacheHit(kind)
	}
}

func (s *CachedSolver) miss(kind string) {
	if s.observer != nil {
		s.observer.CacheMiss(kind)
	}
}

// Solve runs a hover/trim solve through the cache: local LRU first, then
// the remote store, then the solver. Remote failures degrade to a solve.
func (s *CachedSolver) Solve(in bemt.Inputs) (bemt.Result, error) {
	key, err := s.keys.HoverKey(&in)
	if err != nil {
		return bemt.Result{}, err
	}
	if res, ok := s.cache.GetHover(key); ok {
		s.hit("hover")
		return res, nil
	}
	if s.remote != nil {
		res, ok, err := s.remote.GetHover(context.Background(), key)
		if err != nil {
			log.Debug().Err(err).Msg("remote cache lookup failed")
		} else if ok {
			s.cache.PutHover(key, res)
			s.hit("hover")
			return res, nil
		}
	}
	s.miss("hover")

	res, err := s.hover.Solve(in)
	if err != nil {
		return bemt.Result{}, err
	}
	s.cache.PutHover(key, res)
	if s.remote != nil {
		if err := s.remote.PutHover(context.Background(), key, res); err != nil {
			log.Debug().Err(err).Msg("remote cache store failed")
		}
	}
	return res, nil
}

// SolveForward runs a forward solve through the cache.
func (s *CachedSolver) SolveForward(in bemt.Inputs, vInplaneMps float64,
	fcfg bemt.ForwardConfig) (bemt.ForwardResult, error) {

	key, err := s.keys.ForwardKey(&in, vInplaneMps, &fcfg)
	if err != nil {
		return bemt.ForwardResult{}, err
	}
	if res, ok := s.cache.GetForward(key); ok {
		s.hit("forward")
		return res, nil
	}
	if s.remote != nil {
		res, ok, err := s.remote.GetForward(context.Background(), key)
		if err != nil {
			log.Debug().Err(err).Msg("remote cache lookup failed")
		} else if ok {
			s.cache.PutForward(key, res)
			s.hit("forward")
			return res, nil
		}
	}
	s.miss("forward")

	res, err := s.forward.Solve(in.Geom, in.Env, in.Op, in.Cfg, vInplaneMps, fcfg)
	if err != nil {
		return bemt.ForwardResult{}, err
	}
	s.cache.PutForward(key, res)
	if s.remote != nil {
		if err := s.remote.PutForward(context.Background(), key, res); err != nil {
			log.Debug().Err(err).Msg("remote cache store failed")
		}
	}
	return res, nil
}

// Stats exposes the underlying cache counters.
func (s *CachedSolver) Stats() Stats {
	return s.cache.Stats()
}

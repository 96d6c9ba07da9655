// Package cleanup runs the vertex weight and normal repair passes over a whole
// mesh and reports what changed.
package cleanup

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/tiendc/go-deepcopy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/weightfix/pkg/mesh"
)

// ErrPrecondition is returned when the input mesh is malformed. Nothing is
// modified when it is returned.
var ErrPrecondition = errors.New("mesh precondition violated")

// DefaultChunkSize is the number of vertices handled per worker task.
const DefaultChunkSize = 4096

// Config controls a Pipeline.
type Config struct {
	WeightTolerance float64 // 0 means mesh.DefaultWeightTolerance
	NormalTolerance float64 // 0 means mesh.DefaultNormalTolerance
	KeepFormat      bool    // Never downgrade weight formats

	Workers   int // 0 means GOMAXPROCS
	ChunkSize int // 0 means DefaultChunkSize

	Logger *zap.Logger

	// Progress, if set, is called as vertices complete within a stage.
	// Calls are serialized.
	Progress func(stage Stage, done, total int)
}

// Pipeline repairs skin weights and normals of meshes.
type Pipeline struct {
	cfg Config
	log *zap.Logger
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &Pipeline{cfg: cfg, log: log}
}

// run is the state of a single Run call.
type run struct {
	p       *Pipeline
	m       *mesh.Mesh
	stage   Stage
	summary *Summary
}

// Run repairs m in place.
func (p *Pipeline) Run(m *mesh.Mesh) (*Summary, error) {
	r := &run{p: p, m: m, stage: StageStart, summary: &Summary{Vertices: len(m.Vertices)}}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrecondition, err)
	}

	r.enter(StageWeights)
	if err := r.weightPass(); err != nil {
		return nil, err
	}

	r.enter(StageNormals)
	if err := r.normalPass(); err != nil {
		return nil, err
	}

	r.enter(StageDone)
	r.summary.updateAnyChange()
	p.log.Info("cleanup finished",
		zap.Int("vertices", r.summary.Vertices),
		zap.Int("weights_changed", r.summary.WeightsChanged),
		zap.Int("normals_renormalized", r.summary.NormalsRenormalized),
		zap.Int("normals_reconstructed", r.summary.NormalsReconstructed),
		zap.Int("fallbacks", len(r.summary.Fallbacks)),
		zap.Int("normalization_failures", len(r.summary.NormalizationFailures)),
		zap.Bool("changed", r.summary.AnyChange))
	return r.summary, nil
}

// Preview runs the pipeline on a deep copy of m and leaves m untouched.
func (p *Pipeline) Preview(m *mesh.Mesh) (*Summary, error) {
	var clone mesh.Mesh
	if err := deepcopy.Copy(&clone, m); err != nil {
		return nil, fmt.Errorf("copying mesh: %w", err)
	}
	return p.Run(&clone)
}

func (r *run) enter(next Stage) {
	if next <= r.stage {
		panic(fmt.Sprintf("cleanup: stage %s cannot follow %s", next, r.stage))
	}
	r.p.log.Debug("stage", zap.Stringer("from", r.stage), zap.Stringer("to", next))
	r.stage = next
}

type weightTally struct {
	changed  int
	failures []int
}

func (r *run) weightPass() error {
	opts := mesh.WeightOptions{Tolerance: r.p.cfg.WeightTolerance, KeepFormat: r.p.cfg.KeepFormat}
	verts := r.m.Vertices
	tallies := make([]weightTally, r.p.chunkCount(len(verts)))

	err := r.forEachChunk(len(verts), func(c, start, end int) {
		t := &tallies[c]
		for v := start; v < end; v++ {
			res := mesh.NormalizeWeight(verts[v].Weight, opts)
			if res.Failed {
				t.failures = append(t.failures, v)
				continue
			}
			if res.Changed {
				verts[v].Weight = res.Weight
				t.changed++
			}
		}
	})
	if err != nil {
		return err
	}

	for _, t := range tallies {
		r.summary.WeightsChanged += t.changed
		r.summary.NormalizationFailures = append(r.summary.NormalizationFailures, t.failures...)
	}
	for _, v := range r.summary.NormalizationFailures {
		r.p.log.Warn("quad weights sum to zero, cannot normalize", zap.Int("vertex", v))
	}
	return nil
}

type normalTally struct {
	renormalized  int
	reconstructed int
	fallbacks     []Fallback
}

func (r *run) normalPass() error {
	verts := r.m.Vertices
	adj, err := mesh.BuildAdjacency(r.m.Faces, len(verts))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPrecondition, err)
	}
	positions := r.m.Positions()
	tol := r.p.cfg.NormalTolerance
	tallies := make([]normalTally, r.p.chunkCount(len(verts)))

	err = r.forEachChunk(len(verts), func(c, start, end int) {
		t := &tallies[c]
		for i, rep := range mesh.RepairNormals(r.m, start, end, positions, adj, tol) {
			switch {
			case rep == mesh.NormalRenormalized:
				t.renormalized++
			case rep.Reconstructed():
				t.reconstructed++
				if rep.Fallback() {
					t.fallbacks = append(t.fallbacks, Fallback{Vertex: start + i, Reason: rep})
				}
			}
		}
	})
	if err != nil {
		return err
	}

	for _, t := range tallies {
		r.summary.NormalsRenormalized += t.renormalized
		r.summary.NormalsReconstructed += t.reconstructed
		r.summary.Fallbacks = append(r.summary.Fallbacks, t.fallbacks...)
	}
	for _, f := range r.summary.Fallbacks {
		r.p.log.Debug("fallback normal used", zap.Int("vertex", f.Vertex), zap.Stringer("reason", f.Reason))
	}
	return nil
}

func (p *Pipeline) chunkCount(n int) int {
	return (n + p.cfg.ChunkSize - 1) / p.cfg.ChunkSize
}

// forEachChunk calls fn for every chunk of [0, n) on the worker pool. Chunk c
// covers [c*ChunkSize, min((c+1)*ChunkSize, n)).
func (r *run) forEachChunk(n int, fn func(c, start, end int)) error {
	size := r.p.cfg.ChunkSize
	stage := r.stage

	var (
		mu   sync.Mutex
		done int
		g    errgroup.Group
	)
	g.SetLimit(r.p.cfg.Workers)
	r.p.report(stage, 0, n)

	for c := 0; c < r.p.chunkCount(n); c++ {
		start := c * size
		end := min(start+size, n)
		g.Go(func() error {
			fn(c, start, end)
			mu.Lock()
			done += end - start
			r.p.report(stage, done, n)
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) report(stage Stage, done, total int) {
	if p.cfg.Progress != nil {
		p.cfg.Progress(stage, done, total)
	}
}

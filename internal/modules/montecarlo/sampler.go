package montecarlo

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler names accepted by SamplerByName.
const (
	SamplerUniform   = "uniform"
	SamplerDirichlet = "dirichlet"
)

// simplexTolerance is the largest accepted deviation of a weight sum from 1.
const simplexTolerance = 1e-12

// Sampler draws one weight vector of length n from src.
// Implementations must be safe for concurrent use; all randomness comes from src.
type Sampler interface {
	Name() string
	Sample(n int, src rand.Source) WeightVector
}

// UniformSampler draws n independent U(0,1) values and divides by their sum.
//
// This is the historical sampling scheme. It is NOT uniform over the simplex:
// normalized uniforms concentrate around the equal-weight portfolio, and
// corner allocations are rarely drawn. Use DirichletSampler for a uniform
// simplex draw.
type UniformSampler struct{}

// Name implements Sampler.
func (UniformSampler) Name() string { return SamplerUniform }

// Sample implements Sampler.
func (UniformSampler) Sample(n int, src rand.Source) WeightVector {
	return drawNormalized(n, distuv.Uniform{Min: 0, Max: 1, Src: src})
}

// DirichletSampler draws n i.i.d. Exp(1) values and normalizes them, which is a
// Dirichlet(1,...,1) draw: uniform over the probability simplex.
type DirichletSampler struct{}

// Name implements Sampler.
func (DirichletSampler) Name() string { return SamplerDirichlet }

// Sample implements Sampler.
func (DirichletSampler) Sample(n int, src rand.Source) WeightVector {
	return drawNormalized(n, distuv.Exponential{Rate: 1, Src: src})
}

// SamplerByName resolves a configured sampler name.
func SamplerByName(name string) (Sampler, error) {
	switch name {
	case "", SamplerUniform:
		return UniformSampler{}, nil
	case SamplerDirichlet:
		return DirichletSampler{}, nil
	default:
		return nil, fmt.Errorf("unknown sampler %q (want %s or %s)", name, SamplerUniform, SamplerDirichlet)
	}
}

type randomVariate interface {
	Rand() float64
}

func drawNormalized(n int, dist randomVariate) WeightVector {
	w := make(WeightVector, n)
	for {
		for i := range w {
			w[i] = dist.Rand()
		}
		// An all-zero draw has probability zero but cannot be normalized.
		if floats.Sum(w) > 0 {
			break
		}
	}
	normalize(w)
	return w
}

// normalize scales w onto the simplex, renormalizing once more if rounding
// left the sum outside simplexTolerance.
func normalize(w WeightVector) {
	for pass := 0; pass < 2; pass++ {
		sum := floats.Sum(w)
		if pass > 0 && math.Abs(sum-1) <= simplexTolerance {
			return
		}
		floats.Scale(1/sum, w)
	}
}

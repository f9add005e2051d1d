package parlay

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/yourusername/parlay-edge/internal/probability"
)

// JointEstimator approximates the probability that every leg hits, given the
// marginal hit probabilities and the k×k leg correlation matrix.
type JointEstimator interface {
	Name() string
	Joint(p []float64, corr *mat.SymDense) float64
}

// Thresholds returns z_i = Φ⁻¹(1 − p_i): leg i hits when its latent normal is at or above z_i.
func Thresholds(p []float64) []float64 {
	z := make([]float64, len(p))
	for i, pi := range p {
		z[i] = distuv.UnitNormal.Quantile(1 - probability.Clamp(pi))
	}
	return z
}

// CorrelationMatrix builds R with a unit diagonal from the upper-triangle coefficients
// listed pair by pair: (0,1), (0,2), ..., (1,2), ...
func CorrelationMatrix(k int, coefficients []float64) *mat.SymDense {
	r := mat.NewSymDense(k, nil)
	n := 0
	for i := 0; i < k; i++ {
		r.SetSym(i, i, 1)
		for j := i + 1; j < k; j++ {
			r.SetSym(i, j, coefficients[n])
			n++
		}
	}
	return r
}

// PairwiseCorrection is a second-order Bahadur expansion around independence:
//
//	J ≈ ∏p + Σ_{i<j} ρ_ij·√(p_i(1−p_i))·√(p_j(1−p_j))·∏_{k≠i,j} p_k
//
// bounded by the Fréchet limits max(0, Σp − (k−1)) ≤ J ≤ min p_i.
type PairwiseCorrection struct{}

// Name identifies the estimator in configuration.
func (PairwiseCorrection) Name() string { return JointPairwise }

// Joint returns the corrected joint hit probability.
func (PairwiseCorrection) Joint(p []float64, corr *mat.SymDense) float64 {
	k := len(p)
	product := 1.0
	sum := 0.0
	upper := 1.0
	for _, pi := range p {
		product *= pi
		sum += pi
		upper = math.Min(upper, pi)
	}

	joint := product
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			rho := corr.At(i, j)
			if rho == 0 {
				continue
			}
			rest := 1.0
			for m := 0; m < k; m++ {
				if m != i && m != j {
					rest *= p[m]
				}
			}
			joint += rho * math.Sqrt(p[i]*(1-p[i])) * math.Sqrt(p[j]*(1-p[j])) * rest
		}
	}

	lower := math.Max(0, sum-float64(k-1))
	joint = math.Max(lower, math.Min(upper, joint))
	return probability.Clamp(joint)
}

// MonteCarloCopula samples the latent Gaussian copula and counts draws where every
// leg clears its threshold. A fixed seed keeps results reproducible.
type MonteCarloCopula struct {
	Samples  int
	Seed     uint64
	Fallback JointEstimator
}

// NewMonteCarloCopula creates a copula estimator that falls back to the pairwise
// correction when R is not positive definite.
func NewMonteCarloCopula(samples int, seed uint64) *MonteCarloCopula {
	if samples <= 0 {
		samples = DefaultSamples
	}
	return &MonteCarloCopula{Samples: samples, Seed: seed, Fallback: PairwiseCorrection{}}
}

// DefaultSamples is the copula draw count when none is configured.
const DefaultSamples = 20000

// Name identifies the estimator in configuration.
func (*MonteCarloCopula) Name() string { return JointMonteCarlo }

// Joint returns the sampled joint hit probability.
func (mc *MonteCarloCopula) Joint(p []float64, corr *mat.SymDense) float64 {
	k := len(p)
	mu := make([]float64, k)
	dist, ok := distmv.NewNormal(mu, corr, rand.NewSource(mc.Seed))
	if !ok {
		return mc.Fallback.Joint(p, corr)
	}

	z := Thresholds(p)
	draw := make([]float64, k)
	hits := 0
	for s := 0; s < mc.Samples; s++ {
		dist.Rand(draw)
		all := true
		for i := range draw {
			if draw[i] < z[i] {
				all = false
				break
			}
		}
		if all {
			hits++
		}
	}
	return probability.Clamp(float64(hits) / float64(mc.Samples))
}

// Joint estimator names accepted by configuration.
const (
	JointPairwise   = "pairwise"
	JointMonteCarlo = "monte_carlo"
)

// NewJointEstimator resolves a configured estimator name.
func NewJointEstimator(name string, samples int, seed uint64) JointEstimator {
	if name == JointMonteCarlo {
		return NewMonteCarloCopula(samples, seed)
	}
	return PairwiseCorrection{}
}

package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// psdTolerance absorbs floating-point noise when testing the correlation
// matrix for positive semi-definiteness.
const psdTolerance = 1e-9

// CorrelationModel imposes statistical dependence across the shocks of one
// trial through a one-factor decomposition: shocks in the same correlation
// group share a systemic factor, scaled by a per-shock loading, plus an
// idiosyncratic residual sized to preserve unit marginal variance.
//
// The model is built once per run and is read-only afterwards.
type CorrelationModel struct {
	loadings []float64
	groupOf  []string
	groups   []string
}

// NewCorrelationModel validates the target matrix against the template list
// and derives factor loadings. A nil matrix means independent shocks.
func NewCorrelationModel(templates []ShockTemplate, matrix [][]float64) (*CorrelationModel, error) {
	n := len(templates)
	m := &CorrelationModel{
		loadings: make([]float64, n),
		groupOf:  make([]string, n),
	}
	for i, t := range templates {
		m.groupOf[i] = t.CorrelationGroup
	}

	if matrix == nil {
		return m, nil
	}
	if err := ValidateCorrelationMatrix(matrix, n); err != nil {
		return nil, err
	}

	// The factor model can only realize non-negative co-movement between
	// templates sharing a group. Any other non-zero target would be
	// silently dropped, so reject it here instead.
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := matrix[i][j]
			if math.Abs(v) <= psdTolerance {
				continue
			}
			if m.groupOf[i] == "" || m.groupOf[i] != m.groupOf[j] {
				return nil, &ValidationError{
					Field: "correlation",
					Reason: fmt.Sprintf("entry [%d][%d]=%v requires templates %q and %q to share a correlation group",
						i, j, v, templates[i].ID, templates[j].ID),
				}
			}
			if v < 0 {
				return nil, &ValidationError{
					Field: "correlation",
					Reason: fmt.Sprintf("entry [%d][%d]=%v: negative correlation targets are not supported by the one-factor model",
						i, j, v),
				}
			}
		}
	}

	// One loading per shock: lambda_i^2 approximates the average pairwise
	// correlation with the other members of its group, so the factor model
	// reproduces the requested co-movement (exactly, for a uniform block).
	members := make(map[string][]int)
	for i, g := range m.groupOf {
		if g == "" {
			continue
		}
		members[g] = append(members[g], i)
	}
	for g, idx := range members {
		if len(idx) < 2 {
			continue
		}
		for _, i := range idx {
			sum := 0.0
			for _, j := range idx {
				if i == j {
					continue
				}
				sum += matrix[i][j]
			}
			avg := sum / float64(len(idx)-1)
			m.loadings[i] = math.Sqrt(clamp(avg, 0, 1))
		}
		m.groups = append(m.groups, g)
	}
	sort.Strings(m.groups)

	return m, nil
}

// Correlate transforms independently drawn standard-normal latents into
// correlated ones. Group factors are drawn from rng in sorted group order so
// the transformation is deterministic for a given trial source.
func (m *CorrelationModel) Correlate(latents []float64, rng *rand.Rand) []float64 {
	if len(m.groups) == 0 {
		return latents
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	factors := make(map[string]float64, len(m.groups))
	for _, g := range m.groups {
		factors[g] = normal.Rand()
	}

	out := make([]float64, len(latents))
	for i, eps := range latents {
		lambda := m.loadings[i]
		if lambda == 0 {
			out[i] = eps
			continue
		}
		residual := math.Sqrt(1 - lambda*lambda)
		out[i] = lambda*factors[m.groupOf[i]] + residual*eps
	}
	return out
}

// ValidateCorrelationMatrix checks that the matrix is n x n, symmetric,
// has a unit diagonal, entries in [-1, 1], and is positive semi-definite.
// This runs once at parameter-validation time.
func ValidateCorrelationMatrix(matrix [][]float64, n int) error {
	if len(matrix) != n {
		return &ValidationError{
			Field:  "correlation",
			Reason: fmt.Sprintf("matrix has %d rows, want %d", len(matrix), n),
		}
	}
	for i, row := range matrix {
		if len(row) != n {
			return &ValidationError{
				Field:  "correlation",
				Reason: fmt.Sprintf("row %d has %d columns, want %d", i, len(row), n),
			}
		}
	}
	for i := 0; i < n; i++ {
		if math.Abs(matrix[i][i]-1) > psdTolerance {
			return &ValidationError{
				Field:  "correlation",
				Reason: fmt.Sprintf("diagonal entry [%d][%d] must be 1, got %v", i, i, matrix[i][i]),
			}
		}
		for j := 0; j < n; j++ {
			v := matrix[i][j]
			if math.IsNaN(v) || v < -1 || v > 1 {
				return &ValidationError{
					Field:  "correlation",
					Reason: fmt.Sprintf("entry [%d][%d] must be in [-1, 1], got %v", i, j, v),
				}
			}
			if math.Abs(v-matrix[j][i]) > psdTolerance {
				return &ValidationError{
					Field:  "correlation",
					Reason: fmt.Sprintf("matrix is not symmetric at [%d][%d]", i, j),
				}
			}
		}
	}

	if n == 0 {
		return nil
	}

	flat := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		flat = append(flat, matrix[i]...)
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(n, flat), false); !ok {
		return &ValidationError{Field: "correlation", Reason: "eigendecomposition failed"}
	}
	for _, v := range eig.Values(nil) {
		if v < -psdTolerance {
			return &ValidationError{
				Field:  "correlation",
				Reason: fmt.Sprintf("matrix is not positive semi-definite (eigenvalue %v)", v),
			}
		}
	}
	return nil
}

// IdentityMatrix builds an n x n identity correlation matrix, useful for
// explicitly-independent scenario configurations.
func IdentityMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return m
}

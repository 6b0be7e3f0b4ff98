package simulation

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupedTemplates(group string) []ShockTemplate {
	templates := testTemplates()
	for i := range templates {
		templates[i].CorrelationGroup = group
	}
	return templates
}

func TestValidateCorrelationMatrix(t *testing.T) {
	tests := []struct {
		name    string
		matrix  [][]float64
		n       int
		wantErr bool
	}{
		{
			name:   "identity",
			matrix: IdentityMatrix(3),
			n:      3,
		},
		{
			name: "valid uniform block",
			matrix: [][]float64{
				{1, 0.6},
				{0.6, 1},
			},
			n: 2,
		},
		{
			name:    "wrong row count",
			matrix:  IdentityMatrix(2),
			n:       3,
			wantErr: true,
		},
		{
			name: "ragged row",
			matrix: [][]float64{
				{1, 0},
				{0},
			},
			n:       2,
			wantErr: true,
		},
		{
			name: "non-unit diagonal",
			matrix: [][]float64{
				{1, 0.2},
				{0.2, 0.9},
			},
			n:       2,
			wantErr: true,
		},
		{
			name: "entry out of range",
			matrix: [][]float64{
				{1, 1.2},
				{1.2, 1},
			},
			n:       2,
			wantErr: true,
		},
		{
			name: "asymmetric",
			matrix: [][]float64{
				{1, 0.3},
				{0.5, 1},
			},
			n:       2,
			wantErr: true,
		},
		{
			name: "not positive semi-definite",
			matrix: [][]float64{
				{1, 0.9, -0.9},
				{0.9, 1, 0.9},
				{-0.9, 0.9, 1},
			},
			n:       3,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCorrelationMatrix(tt.matrix, tt.n)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCorrelationModel_NilMatrixIsIndependent(t *testing.T) {
	templates := groupedTemplates("macro")
	model, err := NewCorrelationModel(templates, nil)
	require.NoError(t, err)

	latents := []float64{0.5, -1.2}
	out := model.Correlate(latents, rand.New(rand.NewPCG(1, 0)))
	assert.Equal(t, latents, out)
}

func TestCorrelationModel_IdentityMatrixPreservesLatents(t *testing.T) {
	templates := groupedTemplates("macro")
	model, err := NewCorrelationModel(templates, IdentityMatrix(len(templates)))
	require.NoError(t, err)

	latents := []float64{0.5, -1.2}
	out := model.Correlate(latents, rand.New(rand.NewPCG(1, 0)))
	assert.InDeltaSlice(t, latents, out, 1e-12, "zero loadings must leave latents untouched")
}

func TestCorrelationModel_FullCorrelationCollapsesGroup(t *testing.T) {
	templates := groupedTemplates("macro")
	full := [][]float64{
		{1, 1},
		{1, 1},
	}
	model, err := NewCorrelationModel(templates, full)
	require.NoError(t, err)

	out := model.Correlate([]float64{0.5, -1.2}, rand.New(rand.NewPCG(3, 0)))
	assert.InDelta(t, out[0], out[1], 1e-12, "unit loadings must collapse the group onto its shared factor")
}

func TestCorrelationModel_RejectsTargetsWithoutSharedGroup(t *testing.T) {
	matrix := [][]float64{
		{1, 0.6},
		{0.6, 1},
	}

	tests := []struct {
		name   string
		groups [2]string
	}{
		{name: "one template ungrouped", groups: [2]string{"", "macro"}},
		{name: "both templates ungrouped", groups: [2]string{"", ""}},
		{name: "different groups", groups: [2]string{"macro", "regulatory"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			templates := testTemplates()
			templates[0].CorrelationGroup = tt.groups[0]
			templates[1].CorrelationGroup = tt.groups[1]

			_, err := NewCorrelationModel(templates, matrix)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr, "a target the factor model cannot realize must be rejected")
			assert.Equal(t, "correlation", verr.Field)
		})
	}
}

func TestCorrelationModel_ZeroCrossGroupEntriesAllowed(t *testing.T) {
	templates := testTemplates()
	templates[0].CorrelationGroup = "macro"
	templates[1].CorrelationGroup = ""

	_, err := NewCorrelationModel(templates, IdentityMatrix(len(templates)))
	assert.NoError(t, err, "zero entries between unrelated templates are fine")
}

func TestCorrelationModel_RejectsNegativeTargets(t *testing.T) {
	templates := groupedTemplates("macro")
	matrix := [][]float64{
		{1, -0.4},
		{-0.4, 1},
	}

	_, err := NewCorrelationModel(templates, matrix)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "correlation", verr.Field)
}

func TestCorrelationModel_PartialCorrelationPreservesMarginals(t *testing.T) {
	templates := groupedTemplates("macro")
	matrix := [][]float64{
		{1, 0.5},
		{0.5, 1},
	}
	model, err := NewCorrelationModel(templates, matrix)
	require.NoError(t, err)

	// With enough draws the correlated latents must stay standard normal.
	rng := rand.New(rand.NewPCG(17, 0))
	normal := rand.New(rand.NewPCG(18, 0))
	n := 20000
	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		latents := []float64{normal.NormFloat64(), normal.NormFloat64()}
		out := model.Correlate(latents, rng)
		sum += out[0]
		sumSq += out[0] * out[0]
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean

	assert.InDelta(t, 0, mean, 0.05)
	assert.InDelta(t, 1, variance, 0.05)
}

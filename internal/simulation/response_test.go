package simulation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marketProfile() DomainResponseProfile {
	return DomainResponseProfile{
		Key:          "fintech",
		Name:         "Fintech",
		Resilience:   1,
		RecoveryRate: 0.05,
		Sensitivity: map[ShockCategory]float64{
			CategoryMarket: 1.0,
			CategoryPolicy: 0.5,
		},
	}
}

func TestDirectResponse_NoShocksStaysAtBaseline(t *testing.T) {
	trajectory := DirectResponse(marketProfile(), nil, 90)
	require.Len(t, trajectory, 90)
	for day, v := range trajectory {
		assert.Zero(t, v, "day %d", day)
	}
}

func TestDirectResponse_ActiveWindow(t *testing.T) {
	profile := marketProfile()
	shock := Shock{
		TemplateID: "crash",
		Category:   CategoryMarket,
		Magnitude:  -0.4,
		OnsetDay:   10,
		Duration:   20,
		Decay:      1,
	}

	trajectory := DirectResponse(profile, []Shock{shock}, 90)

	// Before onset: baseline.
	assert.Zero(t, trajectory[9])
	// During [onset, onset+duration): full contribution.
	assert.InDelta(t, -0.4, trajectory[10], 1e-12)
	assert.InDelta(t, -0.4, trajectory[29], 1e-12)
	// After the window: exponential recovery toward baseline.
	assert.InDelta(t, -0.4*math.Exp(-0.05*1), trajectory[31], 1e-12)
	assert.InDelta(t, -0.4*math.Exp(-0.05*59), trajectory[89], 1e-12)
	// Recovery is monotone.
	for day := 31; day < 90; day++ {
		assert.Greater(t, trajectory[day], trajectory[day-1])
	}
}

func TestDirectResponse_SensitivityAndResilience(t *testing.T) {
	profile := marketProfile()
	profile.Resilience = 2

	shock := Shock{
		Category:  CategoryPolicy,
		Magnitude: -0.4,
		OnsetDay:  0,
		Duration:  30,
		Decay:     1,
	}

	trajectory := DirectResponse(profile, []Shock{shock}, 30)
	// magnitude * sensitivity / resilience = -0.4 * 0.5 / 2.
	assert.InDelta(t, -0.1, trajectory[0], 1e-12)
}

func TestDirectResponse_MissingCategoryHasNoEffect(t *testing.T) {
	profile := marketProfile()
	shock := Shock{
		Category:  CategoryNatural,
		Magnitude: -0.9,
		OnsetDay:  0,
		Duration:  90,
		Decay:     1,
	}

	trajectory := DirectResponse(profile, []Shock{shock}, 90)
	for _, v := range trajectory {
		assert.Zero(t, v)
	}
}

func TestDirectResponse_DecayScalesRecovery(t *testing.T) {
	profile := marketProfile()
	slow := Shock{Category: CategoryMarket, Magnitude: -0.4, OnsetDay: 0, Duration: 10, Decay: 0.5}
	fast := Shock{Category: CategoryMarket, Magnitude: -0.4, OnsetDay: 0, Duration: 10, Decay: 2}

	slowTraj := DirectResponse(profile, []Shock{slow}, 60)
	fastTraj := DirectResponse(profile, []Shock{fast}, 60)

	// The higher decay factor recovers closer to baseline on every
	// post-window day.
	for day := 11; day < 60; day++ {
		assert.Greater(t, fastTraj[day], slowTraj[day])
	}
}

func TestDirectResponse_ConcurrentShocksAreCapped(t *testing.T) {
	profile := marketProfile()
	shocks := []Shock{
		{Category: CategoryMarket, Magnitude: -0.7, OnsetDay: 0, Duration: 30, Decay: 1},
		{Category: CategoryMarket, Magnitude: -0.7, OnsetDay: 0, Duration: 30, Decay: 1},
	}

	trajectory := DirectResponse(profile, shocks, 30)
	for _, v := range trajectory {
		assert.Equal(t, -MaxDayImpact, v)
	}
}

func TestApplySpillover(t *testing.T) {
	profiles := map[string]DomainResponseProfile{
		"fintech": marketProfile(),
		"saas": {
			Key:          "saas",
			Resilience:   1,
			RecoveryRate: 0.05,
			Sensitivity:  map[ShockCategory]float64{CategoryMarket: 0.5},
			Spillover:    map[string]float64{"fintech": 0.3},
		},
	}
	direct := map[string][]float64{
		"fintech": {-0.4, -0.4, -0.4},
		"saas":    {-0.1, -0.1, -0.1},
	}

	final := ApplySpillover(direct, profiles, 3)

	// Fintech has no spillover sources: unchanged.
	assert.InDeltaSlice(t, direct["fintech"], final["fintech"], 1e-12)
	// SaaS receives 0.3 * fintech's same-day direct value.
	for day := 0; day < 3; day++ {
		assert.InDelta(t, -0.1+0.3*(-0.4), final["saas"][day], 1e-12)
	}
}

func TestApplySpillover_IgnoresOutOfScopeSources(t *testing.T) {
	profiles := map[string]DomainResponseProfile{
		"saas": {
			Key:          "saas",
			Resilience:   1,
			RecoveryRate: 0.05,
			Sensitivity:  map[ShockCategory]float64{CategoryMarket: 0.5},
			Spillover:    map[string]float64{"fintech": 0.3},
		},
	}
	direct := map[string][]float64{
		"saas": {-0.1, -0.1},
	}

	final := ApplySpillover(direct, profiles, 2)
	assert.InDeltaSlice(t, direct["saas"], final["saas"], 1e-12)
}

func TestApplySpillover_ReclampsCombined(t *testing.T) {
	profiles := map[string]DomainResponseProfile{
		"a": {Key: "a", Resilience: 1, RecoveryRate: 0.05, Sensitivity: map[ShockCategory]float64{}},
		"b": {
			Key:          "b",
			Resilience:   1,
			RecoveryRate: 0.05,
			Sensitivity:  map[ShockCategory]float64{},
			Spillover:    map[string]float64{"a": 1},
		},
	}
	direct := map[string][]float64{
		"a": {-MaxDayImpact},
		"b": {-MaxDayImpact},
	}

	final := ApplySpillover(direct, profiles, 1)
	assert.Equal(t, -MaxDayImpact, final["b"][0])
}

func TestTerminalImpact(t *testing.T) {
	assert.Zero(t, TerminalImpact(nil))
	assert.Equal(t, -0.3, TerminalImpact([]float64{-0.1, -0.2, -0.3}))
}

func TestDomainResponseProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DomainResponseProfile)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(p *DomainResponseProfile) {},
		},
		{
			name:    "empty key",
			mutate:  func(p *DomainResponseProfile) { p.Key = "" },
			wantErr: true,
		},
		{
			name:    "zero resilience",
			mutate:  func(p *DomainResponseProfile) { p.Resilience = 0 },
			wantErr: true,
		},
		{
			name:    "negative recovery rate",
			mutate:  func(p *DomainResponseProfile) { p.RecoveryRate = -0.1 },
			wantErr: true,
		},
		{
			name:    "self spillover",
			mutate:  func(p *DomainResponseProfile) { p.Spillover = map[string]float64{"fintech": 0.2} },
			wantErr: true,
		},
		{
			name:    "spillover weight above one",
			mutate:  func(p *DomainResponseProfile) { p.Spillover = map[string]float64{"saas": 1.5} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := marketProfile()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

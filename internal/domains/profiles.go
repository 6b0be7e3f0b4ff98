package domains

import (
	"github.com/aristath/foresight/internal/simulation"
)

// builtinProfiles returns the canonical sector set. Resilience dampens shock
// magnitudes, recovery rate is the per-day exponential pull back to baseline,
// and sensitivities weight each shock category. Spillover weights model how
// distress in one sector bleeds into another (capital supply chains mostly:
// venture funding contraction hits everything downstream).
func builtinProfiles() []simulation.DomainResponseProfile {
	return []simulation.DomainResponseProfile{
		{
			Key:          "fintech",
			Name:         "Fintech",
			Resilience:   1.0,
			RecoveryRate: 0.04,
			Sensitivity: map[simulation.ShockCategory]float64{
				simulation.CategoryPolicy:    0.9,
				simulation.CategoryMarket:    1.0,
				simulation.CategoryNatural:   0.3,
				simulation.CategoryComposite: 0.8,
			},
			Spillover: map[string]float64{
				"venture_capital": 0.25,
			},
		},
		{
			Key:          "saas",
			Name:         "SaaS",
			Resilience:   1.3,
			RecoveryRate: 0.05,
			Sensitivity: map[simulation.ShockCategory]float64{
				simulation.CategoryPolicy:    0.4,
				simulation.CategoryMarket:    0.8,
				simulation.CategoryNatural:   0.2,
				simulation.CategoryComposite: 0.6,
			},
			Spillover: map[string]float64{
				"venture_capital": 0.2,
			},
		},
		{
			Key:          "healthtech_biotech",
			Name:         "Healthtech & Biotech",
			Resilience:   1.1,
			RecoveryRate: 0.03,
			Sensitivity: map[simulation.ShockCategory]float64{
				simulation.CategoryPolicy:    1.0,
				simulation.CategoryMarket:    0.6,
				simulation.CategoryNatural:   0.7,
				simulation.CategoryComposite: 0.7,
			},
			Spillover: map[string]float64{
				"public_sector_funded": 0.15,
				"venture_capital":      0.2,
			},
		},
		{
			Key:          "greentech",
			Name:         "Greentech",
			Resilience:   0.9,
			RecoveryRate: 0.03,
			Sensitivity: map[simulation.ShockCategory]float64{
				simulation.CategoryPolicy:    1.1,
				simulation.CategoryMarket:    0.7,
				simulation.CategoryNatural:   0.5,
				simulation.CategoryComposite: 0.8,
			},
			Spillover: map[string]float64{
				"public_sector_funded": 0.3,
				"venture_capital":      0.15,
			},
		},
		{
			Key:          "mediatech_politicaltech",
			Name:         "Mediatech & Politicaltech",
			Resilience:   0.8,
			RecoveryRate: 0.06,
			Sensitivity: map[simulation.ShockCategory]float64{
				simulation.CategoryPolicy:    1.2,
				simulation.CategoryMarket:    0.7,
				simulation.CategoryNatural:   0.2,
				simulation.CategoryComposite: 0.9,
			},
			Spillover: map[string]float64{
				"venture_capital": 0.15,
			},
		},
		{
			Key:          "cross_border",
			Name:         "Cross-border Operations",
			Resilience:   0.85,
			RecoveryRate: 0.04,
			Sensitivity: map[simulation.ShockCategory]float64{
				simulation.CategoryPolicy:    1.2,
				simulation.CategoryMarket:    0.9,
				simulation.CategoryNatural:   0.6,
				simulation.CategoryComposite: 1.0,
			},
			Spillover: map[string]float64{
				"fintech":         0.1,
				"venture_capital": 0.15,
			},
		},
		{
			Key:          "public_sector_funded",
			Name:         "Public-sector Funded",
			Resilience:   1.2,
			RecoveryRate: 0.02,
			Sensitivity: map[simulation.ShockCategory]float64{
				simulation.CategoryPolicy:    1.3,
				simulation.CategoryMarket:    0.4,
				simulation.CategoryNatural:   0.4,
				simulation.CategoryComposite: 0.7,
			},
		},
		{
			Key:          "accelerators",
			Name:         "Accelerators & Incubators",
			Resilience:   0.9,
			RecoveryRate: 0.05,
			Sensitivity: map[simulation.ShockCategory]float64{
				simulation.CategoryPolicy:    0.5,
				simulation.CategoryMarket:    0.9,
				simulation.CategoryNatural:   0.3,
				simulation.CategoryComposite: 0.7,
			},
			Spillover: map[string]float64{
				"venture_capital": 0.35,
			},
		},
		{
			Key:          "venture_capital",
			Name:         "Venture Capital",
			Resilience:   0.95,
			RecoveryRate: 0.03,
			Sensitivity: map[simulation.ShockCategory]float64{
				simulation.CategoryPolicy:    0.6,
				simulation.CategoryMarket:    1.2,
				simulation.CategoryNatural:   0.3,
				simulation.CategoryComposite: 1.0,
			},
		},
	}
}

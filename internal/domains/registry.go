// Package domains holds the sector resilience profiles the scenario engine
// simulates against: how strongly each startup sector reacts to policy,
// market, and natural shocks, how fast it recovers, and how distress bleeds
// between sectors.
package domains

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/foresight/internal/simulation"
)

// Registry is the lookup table of sector profiles. It is populated at setup
// time and read-only during simulation.
type Registry struct {
	profiles map[string]simulation.DomainResponseProfile
	log      zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		profiles: make(map[string]simulation.DomainResponseProfile),
		log:      log.With().Str("component", "domain_registry").Logger(),
	}
}

// Register validates and stores a profile. Re-registering a key replaces the
// profile, which lets configuration files override built-in sectors.
func (r *Registry) Register(p simulation.DomainResponseProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.profiles[p.Key] = p
	r.log.Debug().Str("domain", p.Key).Msg("registered domain profile")
	return nil
}

// Get returns a profile by key.
func (r *Registry) Get(key string) (simulation.DomainResponseProfile, bool) {
	p, ok := r.profiles[key]
	return p, ok
}

// Keys lists registered domain keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.profiles))
	for k := range r.profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot copies the profile map for handing to a scenario engine. The
// engine keeps its own copy, so later registry edits never leak into a run.
func (r *Registry) Snapshot() map[string]simulation.DomainResponseProfile {
	out := make(map[string]simulation.DomainResponseProfile, len(r.profiles))
	for k, v := range r.profiles {
		out[k] = v
	}
	return out
}

// DefaultRegistry builds the registry with the built-in sector profiles.
func DefaultRegistry(log zerolog.Logger) *Registry {
	r := NewRegistry(log)
	for _, p := range builtinProfiles() {
		// Built-ins are code constants; a registration failure here is a
		// programming error.
		if err := r.Register(p); err != nil {
			panic(fmt.Sprintf("builtin domain profile %s: %v", p.Key, err))
		}
	}
	return r
}

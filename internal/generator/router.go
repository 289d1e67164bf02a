package generator

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Vendor identifies a generative video provider.
type Vendor string

// Known vendors.
const (
	VendorRunway Vendor = "runway"
	VendorVeo    Vendor = "veo"
	VendorSora   Vendor = "sora"
	VendorKling  Vendor = "kling"
)

// IsValid returns true if the vendor is known.
func (v Vendor) IsValid() bool {
	switch v {
	case VendorRunway, VendorVeo, VendorSora, VendorKling:
		return true
	default:
		return false
	}
}

// ErrVendorUnavailable is returned when the resolved vendor has no registered adapter,
// usually because its credentials are not configured.
var ErrVendorUnavailable = errors.New("vendor not configured")

// ResolveVendor maps a model identifier to its vendor by prefix.
// Models matching no known prefix fall through to Veo, whose adapter rejects
// model names it does not know.
func ResolveVendor(model string) Vendor {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "runway"):
		return VendorRunway
	case strings.HasPrefix(m, "sora"):
		return VendorSora
	case strings.HasPrefix(m, "kling"):
		return VendorKling
	default:
		return VendorVeo
	}
}

// Registry holds one Generator per vendor.
type Registry struct {
	mu         sync.RWMutex
	generators map[Vendor]Generator
}

// NewRegistry creates a registry with the given generators.
func NewRegistry(gens ...Generator) *Registry {
	r := &Registry{generators: make(map[Vendor]Generator)}
	for _, g := range gens {
		r.Register(g)
	}
	return r
}

// Register adds or replaces the generator for its vendor.
func (r *Registry) Register(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[g.Vendor()] = g
}

// Get returns the generator for a vendor.
func (r *Registry) Get(v Vendor) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[v]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVendorUnavailable, v)
	}
	return g, nil
}

// Vendors lists the registered vendors.
func (r *Registry) Vendors() []Vendor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Vendor, 0, len(r.generators))
	for v := range r.generators {
		out = append(out, v)
	}
	return out
}

// Resolve maps a model identifier to its vendor and returns that vendor's generator.
func (r *Registry) Resolve(model string) (Generator, Vendor, error) {
	v := ResolveVendor(model)
	g, err := r.Get(v)
	if err != nil {
		return nil, v, err
	}
	return g, v, nil
}

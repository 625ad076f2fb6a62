// Package catalog is the minimal in-memory product definition lookup
// the saga executor needs. The catalog's real contents — compositions,
// schemas, connection secret conventions — are out of scope for the
// core (spec.md §1, "merely data read by the core"); this package only
// supplies a concrete saga.Catalog so the process has something to
// wire at startup.
package catalog

import "github.com/quantumlayer-dev/controlplane/internal/claim"

// Static is a fixed, in-memory product definition catalog.
type Static struct {
	products map[string]claim.ProductDefinition
}

// NewStatic builds a catalog from a fixed product list.
func NewStatic(products []claim.ProductDefinition) *Static {
	m := make(map[string]claim.ProductDefinition, len(products))
	for _, p := range products {
		m[p.Name] = p
	}
	return &Static{products: m}
}

// Get looks up a product definition by name.
func (s *Static) Get(name string) (claim.ProductDefinition, bool) {
	p, ok := s.products[name]
	return p, ok
}

// Defaults returns the small built-in product set the service starts
// with out of the box — real deployments load their own catalog from
// configuration.
func Defaults() []claim.ProductDefinition {
	return []claim.ProductDefinition{
		{
			Name:                   "postgres",
			APIVersion:             "database.quantumlayer.dev/v1alpha1",
			Kind:                   "PostgresInstance",
			CompositionClassName:   "postgres-standard",
			ConnectionSecretSuffix: "-conn",
		},
		{
			Name:                   "redis",
			APIVersion:             "cache.quantumlayer.dev/v1alpha1",
			Kind:                   "RedisInstance",
			CompositionClassName:   "redis-standard",
			ConnectionSecretSuffix: "-conn",
		},
		{
			Name:                   "object-bucket",
			APIVersion:             "storage.quantumlayer.dev/v1alpha1",
			Kind:                   "ObjectBucket",
			CompositionClassName:   "bucket-standard",
			ConnectionSecretSuffix: "-conn",
		},
	}
}

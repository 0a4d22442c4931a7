// Package web serves live delegation lookups and the indexed distribution over HTTP.
package web

import (
	"net/http"

	"github.com/screwyprof/atlas/web/handler"
	"github.com/screwyprof/atlas/web/lookup"
)

// Store is the read side backed by the indexed database
type Store interface {
	lookup.DistributionFinder
	lookup.IdentityFinder
	lookup.MappingsFinder
}

// Dependencies are the collaborators of every route
type Dependencies struct {
	Version  string
	Tickers  []string
	Resolver lookup.Resolver
	Oracles  lookup.OracleLocator
	Store    Store
}

// AddRoutes registers every API route on m
func AddRoutes(m *http.ServeMux, deps Dependencies) {
	handler.NewStatus(deps.Version, deps.Tickers).AddRoutes(m)
	handler.NewWallets(deps.Resolver, deps.Store).AddRoutes(m)
	handler.NewOracles(deps.Oracles).AddRoutes(m)
	handler.NewProjects(deps.Store).AddRoutes(m)
	handler.NewIdentity(deps.Store).AddRoutes(m)
}

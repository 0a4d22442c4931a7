package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/screwyprof/atlas/pkg/httpkit"
	"github.com/screwyprof/atlas/web/api"
	"github.com/screwyprof/atlas/web/handler/bind"
	"github.com/screwyprof/atlas/web/lookup"
)

const (
	GetWalletDelegationsRoute = http.MethodGet + " /wallets/{wallet}/delegations"
	GetWalletMappingsRoute    = http.MethodGet + " /wallets/{wallet}/mappings"
)

// Sentinel errors
var (
	ErrResolveFailed = errors.New("failed to resolve delegations")
	ErrQueryFailed   = errors.New("failed to query history")
)

// Wallets serves the live profile and the backfilled mappings of a wallet
type Wallets struct {
	resolver lookup.Resolver
	mappings lookup.MappingsFinder
}

func NewWallets(resolver lookup.Resolver, mappings lookup.MappingsFinder) *Wallets {
	return &Wallets{resolver: resolver, mappings: mappings}
}

func (h *Wallets) AddRoutes(m *http.ServeMux) {
	m.Handle(GetWalletDelegationsRoute, httpkit.HandlerFunc(h.GetDelegations))
	m.Handle(GetWalletMappingsRoute, httpkit.HandlerFunc(h.GetMappings))
}

// GetDelegations resolves the wallet against the live ledger
func (h *Wallets) GetDelegations(_ http.ResponseWriter, r *http.Request) http.HandlerFunc {
	wallet, err := bind.Wallet(r)
	if err != nil {
		return httpkit.JSONError(api.BadRequest(err))
	}

	res, err := h.resolver.Resolve(r.Context(), wallet)
	if err != nil {
		return httpkit.JSONError(api.Wrap(fmt.Errorf("%w: %w", ErrResolveFailed, err)))
	}

	return httpkit.JSON(bind.DelegationsResponse(res))
}

// GetMappings pages through the stored mapping rows delegating from the wallet
func (h *Wallets) GetMappings(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	wallet, err := bind.Wallet(r)
	if err != nil {
		return httpkit.JSONError(api.BadRequest(err))
	}

	criteria, err := historyCriteria(r)
	if err != nil {
		return httpkit.JSONError(api.BadRequest(err))
	}

	page, err := h.mappings.MappingsFrom(r.Context(), wallet, criteria)
	if err != nil {
		return httpkit.JSONError(api.InternalServerError(fmt.Errorf("%w: %w", ErrQueryFailed, err)))
	}

	if linkHeader := buildPaginationLinks(page, r.URL); linkHeader != "" {
		w.Header().Set("Link", linkHeader)
	}

	return httpkit.JSON(bind.MappingsResponse(page.Items))
}

package handler

import (
	"fmt"
	"net/http"

	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/pkg/httpkit"
	"github.com/screwyprof/atlas/web/api"
	"github.com/screwyprof/atlas/web/handler/bind"
	"github.com/screwyprof/atlas/web/lookup"
)

const (
	GetIdentityByWalletRoute = http.MethodGet + " /identity/wallets/{wallet}"
	GetIdentityByEOARoute    = http.MethodGet + " /identity/eoas/{eoa}"
)

// Identity serves the wallet to EOA links recorded from oracle snapshots
type Identity struct {
	finder lookup.IdentityFinder
}

func NewIdentity(finder lookup.IdentityFinder) *Identity {
	return &Identity{finder: finder}
}

func (h *Identity) AddRoutes(m *http.ServeMux) {
	m.Handle(GetIdentityByWalletRoute, httpkit.HandlerFunc(h.GetByWallet))
	m.Handle(GetIdentityByEOARoute, httpkit.HandlerFunc(h.GetByEOA))
}

func (h *Identity) GetByWallet(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	wallet, err := bind.Wallet(r)
	if err != nil {
		return httpkit.JSONError(api.BadRequest(err))
	}

	criteria, err := historyCriteria(r)
	if err != nil {
		return httpkit.JSONError(api.BadRequest(err))
	}

	page, err := h.finder.LinksByWallet(r.Context(), wallet, criteria)
	return h.respond(w, r, page, err)
}

func (h *Identity) GetByEOA(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	eoa, err := bind.EOA(r)
	if err != nil {
		return httpkit.JSONError(api.BadRequest(err))
	}

	criteria, err := historyCriteria(r)
	if err != nil {
		return httpkit.JSONError(api.BadRequest(err))
	}

	page, err := h.finder.LinksByEOA(r.Context(), eoa, criteria)
	return h.respond(w, r, page, err)
}

func (h *Identity) respond(w http.ResponseWriter, r *http.Request, page *lookup.ResultPage[flp.IdentityLink], err error) http.HandlerFunc {
	if err != nil {
		return httpkit.JSONError(api.InternalServerError(fmt.Errorf("%w: %w", ErrQueryFailed, err)))
	}

	if linkHeader := buildPaginationLinks(page, r.URL); linkHeader != "" {
		w.Header().Set("Link", linkHeader)
	}

	return httpkit.JSON(bind.IdentityResponse(page.Items))
}

func historyCriteria(r *http.Request) (lookup.HistoryCriteria, error) {
	req, err := bind.HistoryRequestFrom(r)
	if err != nil {
		return lookup.HistoryCriteria{}, err
	}
	return lookup.NewHistoryCriteria(req.Page, req.PerPage)
}

package bind

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/screwyprof/atlas/delegation"
	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/web/api"
	"github.com/screwyprof/atlas/web/lookup"
)

// Sentinel errors for request binding
var (
	ErrInvalidPage    = errors.New("invalid page parameter")
	ErrInvalidPerPage = errors.New("invalid per_page parameter")
	ErrInvalidProject = errors.New("invalid project")

	// Specific page validation errors
	ErrPageNotNumeric  = errors.New("page must be numeric")
	ErrPageNotPositive = errors.New("page must be positive")

	// Specific per_page validation errors
	ErrPerPageNotNumeric  = errors.New("per_page must be numeric")
	ErrPerPageNotPositive = errors.New("per_page must be positive")
	ErrPerPageTooLarge    = fmt.Errorf("per_page must be between 1 and %d", lookup.MaxPerPage)
)

// HistoryRequest holds the pagination query parameters of history endpoints
type HistoryRequest struct {
	Page    uint64
	PerPage uint64
}

// Wallet binds the {wallet} path segment
func Wallet(r *http.Request) (flp.WalletAddress, error) {
	return flp.ParseWalletAddress(r.PathValue("wallet"))
}

// EOA binds the {eoa} path segment, lower-cased so lookups match stored rows
func EOA(r *http.Request) (string, error) {
	eoa := r.PathValue("eoa")
	if err := flp.ValidateEOA(eoa); err != nil {
		return "", err
	}
	return strings.ToLower(eoa), nil
}

// Project binds the {project} path segment. Known projects may be named by
// ticker; anything else must be shaped like a process id.
func Project(r *http.Request) (flp.Project, error) {
	value := r.PathValue("project")
	if p, ok := flp.LookupProject(value); ok {
		return p, nil
	}
	if _, err := flp.ParseWalletAddress(value); err != nil {
		return flp.Project{}, fmt.Errorf("%w: %w: %q is neither a known ticker nor a process id", flp.ErrValidation, ErrInvalidProject, value)
	}
	return flp.Project{PID: value}, nil
}

// HistoryRequestFrom binds page and per_page with defaults
func HistoryRequestFrom(r *http.Request) (HistoryRequest, error) {
	req := HistoryRequest{
		Page:    lookup.DefaultPage,
		PerPage: lookup.DefaultPerPage,
	}

	query := r.URL.Query()

	if pageParam := query.Get("page"); pageParam != "" {
		page, err := parsePageNumber(pageParam)
		if err != nil {
			return req, fmt.Errorf("%w: %w: %w", flp.ErrValidation, ErrInvalidPage, err)
		}
		req.Page = page
	}

	if perPageParam := query.Get("per_page"); perPageParam != "" {
		perPage, err := parsePerPageLimit(perPageParam)
		if err != nil {
			return req, fmt.Errorf("%w: %w: %w", flp.ErrValidation, ErrInvalidPerPage, err)
		}
		req.PerPage = perPage
	}

	return req, nil
}

// parsePageNumber validates that the page parameter is a positive integer
func parsePageNumber(pageParam string) (uint64, error) {
	page, err := strconv.ParseUint(pageParam, 10, 64)
	if err != nil {
		return 0, ErrPageNotNumeric
	}
	if page == 0 {
		return 0, ErrPageNotPositive
	}
	return page, nil
}

// parsePerPageLimit validates that the per_page parameter is within acceptable limits
func parsePerPageLimit(perPageParam string) (uint64, error) {
	perPage, err := strconv.ParseUint(perPageParam, 10, 64)
	if err != nil {
		return 0, ErrPerPageNotNumeric
	}
	if perPage == 0 {
		return 0, ErrPerPageNotPositive
	}
	if perPage > lookup.MaxPerPage {
		return 0, ErrPerPageTooLarge
	}
	return perPage, nil
}

// DelegationsResponse binds a resolution to the API response
func DelegationsResponse(res delegation.Resolution) api.DelegationsResponse {
	resp := api.DelegationsResponse{
		Wallet:        res.Profile.Wallet.String(),
		Outcome:       res.Outcome.String(),
		DeclarationID: res.DeclarationID,
		RelayID:       res.RelayID,
		Preferences:   make([]api.Preference, len(res.Profile.Preferences)),
	}
	if !res.Profile.LastUpdate.IsZero() {
		resp.LastUpdate = res.Profile.LastUpdate.UTC().Format(time.RFC3339)
	}
	for i, p := range res.Profile.Preferences {
		resp.Preferences[i] = api.Preference{WalletTo: p.Target, Factor: p.Factor}
	}
	return resp
}

// DistributionResponse binds a project snapshot to the API response
func DistributionResponse(snap lookup.ProjectSnapshot) api.DistributionResponse {
	resp := api.DistributionResponse{
		Project:    snap.Project.PID,
		Name:       snap.Project.Name,
		Totals:     make([]api.ProjectTotal, len(snap.Totals)),
		Delegators: make([]api.Delegator, len(snap.Positions)),
	}
	for i, d := range snap.Totals {
		resp.Totals[i] = api.ProjectTotal{
			Ticker:      d.Ticker,
			TotalAmount: d.TotalAmount.String(),
			Delegators:  d.Delegators,
		}
	}
	for i, p := range snap.Positions {
		resp.Delegators[i] = api.Delegator{
			Ticker:    p.Ticker,
			Wallet:    p.Wallet.String(),
			EOA:       p.EOA,
			Factor:    p.Factor,
			Amount:    p.Amount.String(),
			Timestamp: p.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	return resp
}

// IdentityResponse binds identity links to the API response
func IdentityResponse(links []flp.IdentityLink) api.IdentityResponse {
	data := make([]api.IdentityLink, len(links))
	for i, l := range links {
		data[i] = api.IdentityLink{
			Wallet:    l.Wallet.String(),
			EOA:       l.EOA,
			Timestamp: l.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	return api.IdentityResponse{Data: data}
}

// MappingsResponse binds mapping rows to the API response
func MappingsResponse(mappings []flp.DelegationMapping) api.MappingsResponse {
	data := make([]api.Mapping, len(mappings))
	for i, m := range mappings {
		data[i] = api.Mapping{
			Height:     m.Height,
			TxID:       m.TxID,
			WalletFrom: m.WalletFrom,
			WalletTo:   m.WalletTo,
			Factor:     m.Factor,
		}
	}
	return api.MappingsResponse{Data: data}
}

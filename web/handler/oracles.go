package handler

import (
	"net/http"
	"strings"

	"github.com/screwyprof/atlas/pkg/httpkit"
	"github.com/screwyprof/atlas/web/api"
	"github.com/screwyprof/atlas/web/lookup"
)

const GetOracleLatestRoute = http.MethodGet + " /oracles/{ticker}/latest"

// Oracles serves the latest snapshot id of a ticker
type Oracles struct {
	locator lookup.OracleLocator
}

func NewOracles(locator lookup.OracleLocator) *Oracles {
	return &Oracles{locator: locator}
}

func (h *Oracles) AddRoutes(m *http.ServeMux) {
	m.Handle(GetOracleLatestRoute, httpkit.HandlerFunc(h.GetLatest))
}

func (h *Oracles) GetLatest(_ http.ResponseWriter, r *http.Request) http.HandlerFunc {
	ticker := strings.ToLower(r.PathValue("ticker"))

	txID, err := h.locator.LatestTxID(r.Context(), ticker)
	if err != nil {
		return httpkit.JSONError(api.Wrap(err))
	}

	return httpkit.JSON(api.OracleLatestResponse{Ticker: ticker, TxID: txID})
}

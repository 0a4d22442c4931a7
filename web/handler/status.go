package handler

import (
	"net/http"

	"github.com/screwyprof/atlas/pkg/httpkit"
	"github.com/screwyprof/atlas/web/api"
)

const StatusRoute = http.MethodGet + " /{$}"

// Status reports liveness and the served tickers
type Status struct {
	version string
	tickers []string
}

func NewStatus(version string, tickers []string) *Status {
	return &Status{version: version, tickers: tickers}
}

func (h *Status) AddRoutes(m *http.ServeMux) {
	m.Handle(StatusRoute, httpkit.HandlerFunc(h.GetStatus))
}

func (h *Status) GetStatus(http.ResponseWriter, *http.Request) http.HandlerFunc {
	tickers := h.tickers
	if tickers == nil {
		tickers = []string{}
	}
	return httpkit.JSON(api.Status{Status: "ok", Version: h.version, Tickers: tickers})
}

package handler

import (
	"fmt"
	"net/http"

	"github.com/screwyprof/atlas/distribution"
	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/pkg/httpkit"
	"github.com/screwyprof/atlas/web/api"
	"github.com/screwyprof/atlas/web/handler/bind"
	"github.com/screwyprof/atlas/web/lookup"
)

const GetProjectDistributionRoute = http.MethodGet + " /projects/{project}/distribution"

// Projects serves the stored distribution of a project
type Projects struct {
	finder lookup.DistributionFinder
}

func NewProjects(finder lookup.DistributionFinder) *Projects {
	return &Projects{finder: finder}
}

func (h *Projects) AddRoutes(m *http.ServeMux) {
	m.Handle(GetProjectDistributionRoute, httpkit.HandlerFunc(h.GetDistribution))
}

// GetDistribution aggregates the project's positions from the latest indexed snapshot of every ticker
func (h *Projects) GetDistribution(_ http.ResponseWriter, r *http.Request) http.HandlerFunc {
	project, err := bind.Project(r)
	if err != nil {
		return httpkit.JSONError(api.BadRequest(err))
	}

	positions, err := h.finder.LatestPositions(r.Context(), project.PID)
	if err != nil {
		return httpkit.JSONError(api.InternalServerError(fmt.Errorf("%w: %w", ErrQueryFailed, err)))
	}

	if len(positions) == 0 {
		return httpkit.JSONError(api.NotFound(fmt.Errorf("%w: no indexed positions for project %s", flp.ErrNotFound, project.PID)))
	}

	snap := lookup.ProjectSnapshot{
		Project:   project,
		Totals:    distribution.Aggregate(positions),
		Positions: positions,
	}
	return httpkit.JSON(bind.DistributionResponse(snap))
}

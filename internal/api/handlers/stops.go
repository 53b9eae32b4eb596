package handlers

import (
	"log"
	"net/http"

	"collection-route-service/internal/api/dto"
	"collection-route-service/internal/ports"
)

// StopHandler exposes read-only stop retrieval endpoints.
type StopHandler struct {
	Repo ports.StopRepository
}

func (h *StopHandler) List(w http.ResponseWriter, r *http.Request) {
	stops, err := h.Repo.ListStops(r.Context())
	if err != nil {
		log.Printf("list stops failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListStopsResponse{
		Stops: make([]dto.StopResponse, 0, len(stops)),
	}
	for _, s := range stops {
		res.Stops = append(res.Stops, dto.StopResponse{
			StopID:    s.StopID,
			Lat:       s.Location.Lat,
			Lon:       s.Location.Lon,
			Demand:    s.Demand,
			Available: s.Available,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

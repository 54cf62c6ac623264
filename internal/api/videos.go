// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/ManuGH/amvhub/internal/gallery"
	xglog "github.com/ManuGH/amvhub/internal/log"
	"github.com/ManuGH/amvhub/internal/telemetry"
)

type videosResponse struct {
	Videos   []gallery.Video `json:"videos"`
	SyncedAt *string         `json:"syncedAt"`
}

// handleVideos serves the cached snapshot. A missing or unreadable snapshot
// renders as an empty gallery.
func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	resp := videosResponse{Videos: []gallery.Video{}}

	snap, found, err := s.gallery.Snapshot(r.Context())
	switch {
	case err != nil:
		logger := xglog.WithContext(r.Context(), s.logger)
		logger.Error().Err(err).
			Str(xglog.FieldEvent, "videos.read_failed").
			Msg("could not read cached video list")
		s.reporter.Capture(r.Context(), err, telemetry.Capture{Context: "videos.read"})
	case found:
		resp.Videos = snap.Videos
		resp.SyncedAt = &snap.SyncedAt
	}

	w.Header().Set("Cache-Control", "public, max-age=60, stale-while-revalidate=300")
	writeJSON(w, http.StatusOK, resp, false)
}

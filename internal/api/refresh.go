// SPDX-License-Identifier: MIT

package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ManuGH/amvhub/internal/gallery"
	xglog "github.com/ManuGH/amvhub/internal/log"
	"github.com/ManuGH/amvhub/internal/telemetry"
)

// RefreshTask names the cron task in responses and spans.
const RefreshTask = "youtube-refresh"

var refreshMethods = []string{http.MethodGet, http.MethodPost}

// CronPayload is the body of every refresh endpoint response.
type CronPayload struct {
	Task      string         `json:"task"`
	Timestamp string         `json:"timestamp"`
	OK        bool           `json:"ok"`
	Message   string         `json:"message"`
	Error     string         `json:"error,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

func (s *Server) cronPayload(ok bool, message string) CronPayload {
	return CronPayload{
		Task:      RefreshTask,
		Timestamp: gallery.FormatTimestamp(s.now()),
		OK:        ok,
		Message:   message,
	}
}

// ParseBearerToken extracts the token of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func ParseBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (s *Server) authorized(r *http.Request) bool {
	token, ok := ParseBearerToken(r)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) == 1
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := xglog.WithContext(r.Context(), s.logger)

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", strings.Join(refreshMethods, ", "))
		writeJSON(w, http.StatusMethodNotAllowed,
			s.cronPayload(false, "Method not allowed. Expected "+strings.Join(refreshMethods, ", ")+"."), false)
		return
	}

	if s.adminToken == "" {
		p := s.cronPayload(false, "ADMIN_REFRESH_TOKEN is not configured.")
		p.Meta = map[string]any{"reason": "missing-admin-refresh-token"}
		writeJSON(w, http.StatusInternalServerError, p, true)
		return
	}

	if !s.authorized(r) {
		logger.Warn().Str(xglog.FieldEvent, "cron.unauthorized").Msg("refresh called without a valid bearer token")
		writeJSON(w, http.StatusUnauthorized, s.cronPayload(false, "Invalid or missing bearer token."), true)
		return
	}

	ctx, finish := telemetry.StartTask(r.Context(), RefreshTask)
	ctx = xglog.ContextWithTaskID(ctx, uuid.NewString())
	result := s.gallery.Refresh(ctx)

	if !result.OK {
		finish(errors.New(result.Error))
		p := s.cronPayload(false, result.Message)
		p.Error = result.Error
		p.Meta = map[string]any{"source": result.Source, "syncedAt": result.SyncedAt}
		writeJSON(w, http.StatusInternalServerError, p, true)
		return
	}
	finish(nil)

	meta := make(map[string]any, len(result.Meta)+3)
	for k, v := range result.Meta {
		meta[k] = v
	}
	meta["source"] = result.Source
	meta["syncedAt"] = result.SyncedAt
	if result.Error != "" {
		meta["error"] = result.Error
	}
	p := s.cronPayload(true, result.Message)
	p.Meta = meta
	writeJSON(w, http.StatusOK, p, true)
}

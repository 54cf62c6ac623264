// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	json "github.com/goccy/go-json"

	xglog "github.com/ManuGH/amvhub/internal/log"
	"github.com/ManuGH/amvhub/internal/recruitment"
)

const maxFormBytes = 64 << 10

var errUnsupportedMedia = errors.New("unsupported content type")

// handleRecruitment accepts urlencoded, multipart or JSON bodies and answers
// with the resulting form state.
func (s *Server) handleRecruitment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	fields, err := readFields(r)
	if err != nil {
		logger := xglog.WithContext(r.Context(), s.logger)
		logger.Debug().Err(err).
			Str(xglog.FieldEvent, "recruitment.bad_request").
			Msg("could not read recruitment body")
		status := http.StatusBadRequest
		if errors.Is(err, errUnsupportedMedia) {
			status = http.StatusUnsupportedMediaType
		}
		msg := "Invalid request body."
		writeJSON(w, status, recruitment.FormState{Status: recruitment.StatusError, Message: &msg}, true)
		return
	}

	state := s.recruitment.Submit(r.Context(), recruitment.Input{
		Fields:   fields,
		ClientIP: s.clientIP(r),
	})
	writeJSON(w, formStatus(state), state, true)
}

func formStatus(state recruitment.FormState) int {
	switch {
	case state.Status == recruitment.StatusSuccess:
		return http.StatusOK
	case len(state.Errors) > 0:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func readFields(r *http.Request) (map[string]string, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnsupportedMedia, err)
	}

	switch mediaType {
	case "application/json":
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		fields := make(map[string]string, len(raw))
		for k, v := range raw {
			switch tv := v.(type) {
			case string:
				fields[k] = tv
			case float64:
				fields[k] = fmt.Sprint(tv)
			case nil:
			default:
				return nil, fmt.Errorf("field %q must be a string", k)
			}
		}
		return fields, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormBytes); err != nil {
			return nil, fmt.Errorf("parse multipart: %w", err)
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedMedia, mediaType)
	}

	fields := make(map[string]string, len(r.PostForm))
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	return fields, nil
}

// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/amvhub/internal/gallery"
	"github.com/ManuGH/amvhub/internal/health"
	"github.com/ManuGH/amvhub/internal/kv"
	"github.com/ManuGH/amvhub/internal/ratelimit"
	"github.com/ManuGH/amvhub/internal/recruitment"
)

const adminToken = "s3cret-refresh-token"

var fixedNow = func() time.Time { return time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC) }

type fixture struct {
	store  *kv.MemoryStore
	server *Server
	fail   error
	videos []gallery.Video
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	f := &fixture{
		store: kv.NewMemoryStore(0),
		videos: []gallery.Video{
			{ID: "a1", Title: "Neon Drift", Thumbnail: "https://i.ytimg.com/vi/a1/hqdefault.jpg", PublishedAt: "2024-10-01T00:00:00Z", DurationSeconds: 212},
			{ID: "b2", Title: "Paper Moons", Thumbnail: "https://i.ytimg.com/vi/b2/hqdefault.jpg", PublishedAt: "2024-09-01T00:00:00Z", DurationSeconds: 185},
		},
	}
	t.Cleanup(func() { _ = f.store.Close() })

	source := gallery.VideoSourceFunc(func(context.Context) ([]gallery.Video, error) {
		if f.fail != nil {
			return nil, f.fail
		}
		return f.videos, nil
	})
	syncer := gallery.NewSyncer(source, f.store, gallery.WithClock(fixedNow))
	handler := recruitment.NewHandler(f.store, recruitment.WithClock(fixedNow))

	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewKVChecker(f.store))

	f.server = New(Deps{
		Gallery:     syncer,
		Recruitment: handler,
		Health:      hm,
		AdminToken:  token,
		Now:         fixedNow,
	})
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeCron(t *testing.T, rec *httptest.ResponseRecorder) CronPayload {
	t.Helper()
	var p CronPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func refreshRequest(method, token string) *http.Request {
	req := httptest.NewRequest(method, "/api/youtube-refresh", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestRefresh_Success(t *testing.T) {
	f := newFixture(t, adminToken)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := f.do(t, refreshRequest(method, adminToken))
		require.Equal(t, http.StatusOK, rec.Code, method)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		p := decodeCron(t, rec)
		assert.True(t, p.OK)
		assert.Equal(t, RefreshTask, p.Task)
		assert.Equal(t, "2024-11-05T00:00:00.000Z", p.Timestamp)
		assert.Equal(t, "Synced 2 videos from YouTube.", p.Message)
		assert.Equal(t, float64(2), p.Meta["count"])
		assert.Equal(t, gallery.SourceAPI, p.Meta["source"])
		assert.Equal(t, "2024-11-05T00:00:00.000Z", p.Meta["syncedAt"])
		assert.NotContains(t, p.Meta, "error")
	}
}

func TestRefresh_FallbackKeepsOK(t *testing.T) {
	f := newFixture(t, adminToken)
	require.Equal(t, http.StatusOK, f.do(t, refreshRequest(http.MethodPost, adminToken)).Code)

	f.fail = errors.New("quota exceeded")
	rec := f.do(t, refreshRequest(http.MethodPost, adminToken))
	require.Equal(t, http.StatusOK, rec.Code)

	p := decodeCron(t, rec)
	assert.True(t, p.OK)
	assert.Equal(t, gallery.SourceCache, p.Meta["source"])
	assert.Equal(t, "quota exceeded", p.Meta["error"])
	assert.Empty(t, p.Error)
}

func TestRefresh_FailureWithoutCache(t *testing.T) {
	f := newFixture(t, adminToken)
	f.fail = errors.New("quota exceeded")

	rec := f.do(t, refreshRequest(http.MethodGet, adminToken))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	p := decodeCron(t, rec)
	assert.False(t, p.OK)
	assert.Equal(t, "Failed to refresh AMV dataset.", p.Message)
	assert.Equal(t, "quota exceeded", p.Error)
	assert.Equal(t, gallery.SourceAPI, p.Meta["source"])
	assert.Contains(t, p.Meta, "syncedAt")
	assert.Nil(t, p.Meta["syncedAt"])
}

func TestRefresh_Unauthorized(t *testing.T) {
	f := newFixture(t, adminToken)

	for name, req := range map[string]*http.Request{
		"missing": refreshRequest(http.MethodGet, ""),
		"wrong":   refreshRequest(http.MethodGet, "nope"),
	} {
		rec := f.do(t, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		p := decodeCron(t, rec)
		assert.Equal(t, "Invalid or missing bearer token.", p.Message, name)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"), name)
	}

	found, err := f.store.GetJSON(context.Background(), kv.KeyAMVList, &gallery.Snapshot{})
	require.NoError(t, err)
	assert.False(t, found, "unauthorized calls must not sync")
}

func TestRefresh_MissingAdminToken(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, refreshRequest(http.MethodGet, "anything"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	p := decodeCron(t, rec)
	assert.Equal(t, "ADMIN_REFRESH_TOKEN is not configured.", p.Message)
	assert.Equal(t, "missing-admin-refresh-token", p.Meta["reason"])
}

func TestRefresh_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, adminToken)

	rec := f.do(t, refreshRequest(http.MethodDelete, adminToken))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
	p := decodeCron(t, rec)
	assert.False(t, p.OK)
	assert.Equal(t, "Method not allowed. Expected GET, POST.", p.Message)
}

func TestParseBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, ok := ParseBearerToken(req)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}

func TestVideos(t *testing.T) {
	f := newFixture(t, adminToken)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"videos":[],"syncedAt":null}`, rec.Body.String())

	require.Equal(t, http.StatusOK, f.do(t, refreshRequest(http.MethodPost, adminToken)).Code)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got videosResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	if diff := cmp.Diff(f.videos, got.Videos); diff != "" {
		t.Errorf("videos mismatch (-want +got):\n%s", diff)
	}
	require.NotNil(t, got.SyncedAt)
	assert.Equal(t, "2024-11-05T00:00:00.000Z", *got.SyncedAt)
}

func TestTeam(t *testing.T) {
	f := newFixture(t, adminToken)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/team", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Groups []struct {
			ID      string           `json:"id"`
			Members []map[string]any `json:"members"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Groups)
	assert.NotEmpty(t, body.Groups[0].Members)
}

func validForm() url.Values {
	return url.Values{
		"name":              {"Jiwoo Song"},
		"alias":             {"shadowdial"},
		"age":               {"24"},
		"location":          {"Seoul"},
		"discordHandle":     {"shadowdial#1234"},
		"youtubeChannelUrl": {"https://www.youtube.com/@shadowdial"},
		"bestAmvUrl":        {"https://youtu.be/dQw4w9WgXcQ"},
		"recentAmvUrl":      {"https://youtube.com/watch?v=abc123"},
		"introduction":      {"I cut fight scenes to synthwave and love portal effects."},
	}
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) recruitment.FormState {
	t.Helper()
	var st recruitment.FormState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func TestRecruitment_URLEncoded(t *testing.T) {
	f := newFixture(t, adminToken)

	req := httptest.NewRequest(http.MethodPost, "/api/recruitment", strings.NewReader(validForm().Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := f.do(t, req)

	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeState(t, rec)
	assert.Equal(t, recruitment.StatusSuccess, st.Status)

	var index []string
	found, err := f.store.GetJSON(context.Background(), recruitment.IndexKey, &index)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, index, 1)
}

func TestRecruitment_JSONValidationErrors(t *testing.T) {
	f := newFixture(t, adminToken)

	body := `{"name":"","alias":"x","age":7,"introduction":"too short"}`
	req := httptest.NewRequest(http.MethodPost, "/api/recruitment", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := f.do(t, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	st := decodeState(t, rec)
	assert.Equal(t, recruitment.StatusError, st.Status)
	assert.Equal(t, "Name is required.", st.Errors["name"])
	assert.Equal(t, "Age must be between 13 and 120.", st.Errors["age"])
}

func TestRecruitment_Multipart(t *testing.T) {
	f := newFixture(t, adminToken)

	var buf strings.Builder
	mw := multipart.NewWriter(&buf)
	for k, vs := range validForm() {
		require.NoError(t, mw.WriteField(k, vs[0]))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/recruitment", strings.NewReader(buf.String()))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := f.do(t, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, recruitment.StatusSuccess, decodeState(t, rec).Status)
}

func TestRecruitment_BadBodies(t *testing.T) {
	f := newFixture(t, adminToken)

	req := httptest.NewRequest(http.MethodPost, "/api/recruitment", strings.NewReader("<xml/>"))
	req.Header.Set("Content-Type", "text/xml")
	assert.Equal(t, http.StatusUnsupportedMediaType, f.do(t, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/recruitment", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, f.do(t, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/recruitment", strings.NewReader(`{"name":["a"]}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, f.do(t, req).Code)
}

type recordingRecruiter struct{ inputs []recruitment.Input }

func (r *recordingRecruiter) Submit(_ context.Context, in recruitment.Input) recruitment.FormState {
	r.inputs = append(r.inputs, in)
	msg := "ok"
	return recruitment.FormState{Status: recruitment.StatusSuccess, Message: &msg}
}

func TestRecruitment_ClientIPHonoursTrustedProxiesOnly(t *testing.T) {
	resolver, err := ratelimit.NewClientIPResolver([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		clientIP func(*http.Request) string
		remote   string
		want     string
	}{
		{"default ignores headers", nil, "10.1.2.3:5000", "10.1.2.3"},
		{"untrusted peer", resolver.ClientIP, "198.51.100.7:5000", "198.51.100.7"},
		{"trusted proxy", resolver.ClientIP, "10.1.2.3:5000", "203.0.113.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingRecruiter{}
			srv := New(Deps{Recruitment: rec, ClientIP: tt.clientIP, Now: fixedNow})

			req := httptest.NewRequest(http.MethodPost, "/api/recruitment", strings.NewReader(validForm().Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("X-Forwarded-For", "203.0.113.50")
			req.RemoteAddr = tt.remote
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			require.Len(t, rec.inputs, 1)
			assert.Equal(t, tt.want, rec.inputs[0].ClientIP)
		})
	}
}

func TestFormStatus(t *testing.T) {
	msg := "x"
	assert.Equal(t, http.StatusOK, formStatus(recruitment.FormState{Status: recruitment.StatusSuccess, Message: &msg}))
	assert.Equal(t, http.StatusUnprocessableEntity, formStatus(recruitment.FormState{Status: recruitment.StatusError, Errors: map[string]string{"name": "x"}}))
	assert.Equal(t, http.StatusInternalServerError, formStatus(recruitment.FormState{Status: recruitment.StatusError, Message: &msg}))
}

func TestProbesAndMetrics(t *testing.T) {
	f := newFixture(t, adminToken)

	assert.Equal(t, http.StatusOK, f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusOK, f.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil)).Code)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAPIResponsesCarryRequestID(t *testing.T) {
	f := newFixture(t, adminToken)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/team", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

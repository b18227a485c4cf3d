package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/adapters"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/adapters/fake"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/adapters/memory"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/app"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/history"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/matcher"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Mock service ------------------------------------------------------------

type mockTransferService struct {
	playlists []domain.PlaylistRef
	job       domain.TransferJob
	records   []domain.HistoryRecord
	err       error

	gotPlatform domain.Platform
	gotToken    string
	gotUserID   string
	gotRequest  domain.StartRequest
	cancelled   string
}

func (m *mockTransferService) Start(_ context.Context, req domain.StartRequest) (domain.TransferJob, error) {
	m.gotRequest = req
	if m.err != nil {
		return domain.TransferJob{}, m.err
	}
	return m.job, nil
}

func (m *mockTransferService) Snapshot(jobID string) (domain.TransferJob, error) {
	if m.err != nil {
		return domain.TransferJob{}, m.err
	}
	if jobID != m.job.ID {
		return domain.TransferJob{}, domain.ErrJobNotFound
	}
	return m.job, nil
}

func (m *mockTransferService) Cancel(jobID string) error {
	if m.err != nil {
		return m.err
	}
	if jobID != m.job.ID {
		return domain.ErrJobNotFound
	}
	m.cancelled = jobID
	return nil
}

func (m *mockTransferService) Subscribe(jobID string) (<-chan domain.Progress, func(), error) {
	if jobID != m.job.ID {
		return nil, nil, domain.ErrJobNotFound
	}
	ch := make(chan domain.Progress, 1)
	ch <- m.job.Progress()
	close(ch)
	return ch, func() {}, nil
}

func (m *mockTransferService) ListPlaylists(_ context.Context, platform domain.Platform, token string, userID string) ([]domain.PlaylistRef, error) {
	m.gotPlatform, m.gotToken, m.gotUserID = platform, token, userID
	if m.err != nil {
		return nil, m.err
	}
	return m.playlists, nil
}

func (m *mockTransferService) History(_ context.Context, userID string) ([]domain.HistoryRecord, error) {
	m.gotUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

// -- Helpers -----------------------------------------------------------------

func setupRouter(svc ports.TransferService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(svc, log.New(io.Discard))
	h.RegisterRoutes(r)
	return r
}

func do(r *gin.Engine, method, target string, body []byte, header ...string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func validStartBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"user_id":         "user-1",
		"source_provider": "spotify",
		"source_token":    "sp-token",
		"playlist_id":     "sp1",
		"dest_provider":   "youtube",
		"dest_token":      "yt-token",
	})
	require.NoError(t, err)
	return body
}

// -- Tests -------------------------------------------------------------------

func TestHealth(t *testing.T) {
	r := setupRouter(&mockTransferService{})

	w := do(r, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func TestListPlaylists_Success(t *testing.T) {
	svc := &mockTransferService{
		playlists: []domain.PlaylistRef{
			{Platform: domain.PlatformSpotify, ID: "1", DisplayName: "Rock Classics", TrackCount: 25},
			{Platform: domain.PlatformSpotify, ID: "2", DisplayName: "Jazz Vibes", TrackCount: 40},
		},
	}
	r := setupRouter(svc)

	w := do(r, http.MethodGet, "/api/v1/playlists?provider=spotify&user_id=someone", nil, "Authorization", "Bearer test-token")

	assert.Equal(t, http.StatusOK, w.Code)

	var playlists []domain.PlaylistRef
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &playlists))
	assert.Len(t, playlists, 2)
	assert.Equal(t, "Rock Classics", playlists[0].DisplayName)
	assert.Equal(t, domain.PlatformSpotify, svc.gotPlatform)
	assert.Equal(t, "test-token", svc.gotToken)
	assert.Equal(t, "someone", svc.gotUserID)
}

func TestListPlaylists_MissingProvider(t *testing.T) {
	r := setupRouter(&mockTransferService{})

	w := do(r, http.MethodGet, "/api/v1/playlists", nil, "Authorization", "Bearer test-token")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeError(t, w).Error)
}

func TestListPlaylists_MissingToken(t *testing.T) {
	r := setupRouter(&mockTransferService{})

	w := do(r, http.MethodGet, "/api/v1/playlists?provider=spotify", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeError(t, w).Error)
}

func TestListPlaylists_ServiceErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("wrap: %w", domain.ErrUnknownPlatform), http.StatusBadRequest},
		{domain.ErrNotAuthenticated, http.StatusUnauthorized},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			r := setupRouter(&mockTransferService{err: tt.err})
			w := do(r, http.MethodGet, "/api/v1/playlists?provider=deezer", nil, "Authorization", "Bearer x")
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestStartTransfer_Accepted(t *testing.T) {
	svc := &mockTransferService{job: domain.TransferJob{ID: "job-1", State: domain.StateCreated}}
	r := setupRouter(svc)

	w := do(r, http.MethodPost, "/api/v1/transfers", validStartBody(t))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/api/v1/transfers/job-1", w.Header().Get("Location"))

	var job domain.TransferJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, domain.StateCreated, job.State)

	assert.Equal(t, domain.PlatformSpotify, svc.gotRequest.SourcePlatform)
	assert.Equal(t, domain.PlatformYouTube, svc.gotRequest.TargetPlatform)
	assert.Equal(t, "sp1", svc.gotRequest.SourcePlaylistID)
}

func TestStartTransfer_InvalidBody(t *testing.T) {
	r := setupRouter(&mockTransferService{})

	w := do(r, http.MethodPost, "/api/v1/transfers", []byte(`{"source_provider":"spotify"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeError(t, w).Error)
}

func TestStartTransfer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"same platform", domain.ErrSamePlatform, http.StatusBadRequest},
		{"unknown platform", domain.ErrUnknownPlatform, http.StatusBadRequest},
		{"invalid argument", domain.ErrInvalidArgument, http.StatusBadRequest},
		{"not authenticated", fmt.Errorf("source provider error: %w", domain.ErrNotAuthenticated), http.StatusUnauthorized},
		{"target busy", domain.ErrTargetBusy, http.StatusConflict},
		{"closed", domain.ErrServiceClosed, http.StatusServiceUnavailable},
		{"unexpected", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(&mockTransferService{err: tt.err})
			w := do(r, http.MethodPost, "/api/v1/transfers", validStartBody(t))
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, decodeError(t, w).Message, tt.err.Error())
		})
	}
}

func TestGetTransfer(t *testing.T) {
	svc := &mockTransferService{job: domain.TransferJob{ID: "job-1", State: domain.StateMatching, TotalTracks: 10, ProcessedCount: 4}}
	r := setupRouter(svc)

	w := do(r, http.MethodGet, "/api/v1/transfers/job-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var job domain.TransferJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, 4, job.ProcessedCount)

	w = do(r, http.MethodGet, "/api/v1/transfers/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Error)
}

func TestCancelTransfer(t *testing.T) {
	svc := &mockTransferService{job: domain.TransferJob{ID: "job-1", State: domain.StateWriting}}
	r := setupRouter(svc)

	w := do(r, http.MethodPost, "/api/v1/transfers/job-1/cancel", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "job-1", svc.cancelled)

	w = do(r, http.MethodPost, "/api/v1/transfers/other/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistory(t *testing.T) {
	svc := &mockTransferService{records: []domain.HistoryRecord{
		{ID: "job-2", UserID: "user-1", Status: domain.HistoryFailed, ErrorKind: domain.KindCancelled},
		{ID: "job-1", UserID: "user-1", Status: domain.HistoryCompleted, SongsTransferred: 24},
	}}
	r := setupRouter(svc)

	w := do(r, http.MethodGet, "/api/v1/history?user_id=user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var records []domain.HistoryRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "job-2", records[0].ID)
	assert.Equal(t, "user-1", svc.gotUserID)

	w = do(r, http.MethodGet, "/api/v1/history", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransferEvents_UnknownJob(t *testing.T) {
	r := setupRouter(&mockTransferService{job: domain.TransferJob{ID: "job-1"}})

	w := do(r, http.MethodGet, "/api/v1/transfers/missing/events", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExtractToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for header, want := range map[string]string{
		"Bearer abc":   "abc",
		"raw-token":    "raw-token",
		"Bearer  abc ": "abc",
		"":             "",
	} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", header)
		assert.Equal(t, want, extractToken(c), header)
	}
}

// -- End to end over the demo catalogs ---------------------------------------

type sseEvent struct {
	name string
	data string
}

func readEvents(t *testing.T, body io.Reader) []sseEvent {
	t.Helper()
	var (
		events []sseEvent
		cur    sseEvent
	)
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			cur.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			cur.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && cur.name != "":
			events = append(events, cur)
			cur = sseEvent{}
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestTransferLifecycle_DemoCatalogs(t *testing.T) {
	sp, yt := fake.Demo()
	registry := adapters.NewProviderRegistry()
	registry.Register(domain.PlatformSpotify, fake.Connector(sp))
	registry.Register(domain.PlatformYouTube, fake.Connector(yt))

	svc := app.NewService(registry, matcher.New(matcher.DefaultConfig()), history.NewRecorder(memory.NewHistoryStore()), app.Options{
		Backoff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
		Logger:  log.New(io.Discard),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Close(ctx)
	})

	srv := httptest.NewServer(setupRouter(svc))
	t.Cleanup(srv.Close)

	body, err := json.Marshal(domain.StartRequest{
		UserID:           fake.DemoUser,
		SourcePlatform:   domain.PlatformSpotify,
		SourceToken:      "sp-token",
		SourcePlaylistID: "sp1",
		TargetPlatform:   domain.PlatformYouTube,
		TargetToken:      "yt-token",
	})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/v1/transfers", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var started domain.TransferJob
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/transfers/" + started.ID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	events := readEvents(t, resp.Body)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	require.Equal(t, "done", last.name)
	var done domain.TransferJob
	require.NoError(t, json.Unmarshal([]byte(last.data), &done))
	assert.Equal(t, domain.StateCompleted, done.State)
	assert.Equal(t, 24, done.WrittenCount)

	prev := -1
	for _, ev := range events[:len(events)-1] {
		require.Equal(t, "progress", ev.name)
		var p domain.Progress
		require.NoError(t, json.Unmarshal([]byte(ev.data), &p))
		assert.GreaterOrEqual(t, p.ProcessedCount, prev)
		assert.LessOrEqual(t, p.WrittenCount, p.MatchedCount)
		assert.LessOrEqual(t, p.MatchedCount, p.ProcessedCount)
		prev = p.ProcessedCount
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = svc.Wait(ctx, started.ID)
	require.NoError(t, err)

	resp, err = http.Get(srv.URL + "/api/v1/history?user_id=" + fake.DemoUser)
	require.NoError(t, err)
	defer resp.Body.Close()
	var records []domain.HistoryRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, started.ID, records[0].ID)
	assert.Equal(t, 24, records[0].SongsTransferred)
}

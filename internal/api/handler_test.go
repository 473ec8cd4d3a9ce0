package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/orbitview/internal/assistant"
	"github.com/mr1hm/orbitview/internal/catalog"
	"github.com/mr1hm/orbitview/internal/models"
	"github.com/mr1hm/orbitview/internal/repository"
	"github.com/mr1hm/orbitview/internal/session"
	"github.com/mr1hm/orbitview/internal/tiles"
)

// stubGenerator answers with reply, optionally blocking until release is closed.
type stubGenerator struct {
	reply   string
	release chan struct{}

	mu      sync.Mutex
	prompts []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt, sys string, temperature float32) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.reply, nil
}

func setupTestRouter(t *testing.T, gen assistant.Generator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.NewSQLiteDB(repository.MemoryPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}

	cat := catalog.Default()
	builder := tiles.NewBuilder(tiles.DefaultEndpoint)
	sessions := session.NewRegistry(session.RegistryConfig{PlaybackInterval: time.Hour}, cat, builder, db)

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher := assistant.NewDispatcher(assistant.New(gen), 1, 4)
	dispatcher.Start(ctx)

	t.Cleanup(func() {
		dispatcher.Stop()
		cancel()
		sessions.Stop()
		db.Close()
	})

	router := gin.New()
	handler := NewHandler(cat, builder, sessions, dispatcher, 100)
	handler.RegisterRoutes(router)
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, router *gin.Engine) (string, models.Frame) {
	t.Helper()
	w := doJSON(router, "POST", "/api/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}
	var resp struct {
		ID    string       `json:"id"`
		Frame models.Frame `json:"frame"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp.ID, resp.Frame
}

func decodeFrame(t *testing.T, w *httptest.ResponseRecorder) models.Frame {
	t.Helper()
	var f models.Frame
	if err := json.Unmarshal(w.Body.Bytes(), &f); err != nil {
		t.Fatalf("failed to parse frame: %v", err)
	}
	return f
}

func TestHealth(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})

	w := doJSON(router, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %v", resp["status"])
	}
}

func TestGetLayers(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})

	w := doJSON(router, "GET", "/api/layers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Base     []models.Layer `json:"base_layers"`
		Overlays []models.Layer `json:"overlay_layers"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)

	cat := catalog.Default()
	if len(resp.Base) != len(cat.BaseLayers()) {
		t.Errorf("expected %d base layers, got %d", len(cat.BaseLayers()), len(resp.Base))
	}
	if len(resp.Overlays) != len(cat.OverlayLayers()) {
		t.Errorf("expected %d overlays, got %d", len(cat.OverlayLayers()), len(resp.Overlays))
	}
}

func TestGetEvents(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})

	w := doJSON(router, "GET", "/api/events", nil)

	var resp struct {
		Events []models.DisasterEvent `json:"events"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)

	if len(resp.Events) != len(catalog.Default().Events()) {
		t.Errorf("expected %d events, got %d", len(catalog.Default().Events()), len(resp.Events))
	}
}

func TestGetTileURL(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})

	w := doJSON(router, "GET", "/api/tiles/MODIS_Terra_CorrectedReflectance_TrueColor?date=2024-01-15", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var tl models.TileLayer
	json.Unmarshal(w.Body.Bytes(), &tl)

	want := "https://gibs.earthdata.nasa.gov/wmts/epsg3857/best/MODIS_Terra_CorrectedReflectance_TrueColor/default/2024-01-15/GoogleMapsCompatible_Level9/{z}/{y}/{x}.jpg"
	if tl.URL != want {
		t.Errorf("expected url %s, got %s", want, tl.URL)
	}
}

func TestGetTileURL_Errors(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})

	if w := doJSON(router, "GET", "/api/tiles/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown layer, got %d", w.Code)
	}
	if w := doJSON(router, "GET", "/api/tiles/Coastlines_15m?date=15-01-2024", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for malformed date, got %d", w.Code)
	}
}

func TestCreateSession_InitialFrame(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})

	_, frame := createSession(t, router)

	yesterday := models.FormatDate(models.Day(time.Now()).AddDate(0, 0, -1))
	if frame.Date != yesterday {
		t.Errorf("expected date %s, got %s", yesterday, frame.Date)
	}
	if frame.Playing {
		t.Error("expected playback stopped")
	}
	if frame.Base.LayerID != catalog.Default().DefaultBase().ID {
		t.Errorf("expected default base layer, got %s", frame.Base.LayerID)
	}
	if len(frame.Overlays) != len(catalog.DefaultOverlayIDs) {
		t.Errorf("expected %d default overlays, got %d", len(catalog.DefaultOverlayIDs), len(frame.Overlays))
	}
}

func TestSession_NotFound(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})

	if w := doJSON(router, "GET", "/api/sessions/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})
	id, _ := createSession(t, router)

	if w := doJSON(router, "DELETE", "/api/sessions/"+id, nil); w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	if w := doJSON(router, "GET", "/api/sessions/"+id, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 after delete, got %d", w.Code)
	}
}

func TestSetDate(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})
	id, _ := createSession(t, router)

	w := doJSON(router, "PUT", "/api/sessions/"+id+"/date", gin.H{"date": "2023-08-09"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if f := decodeFrame(t, w); f.Date != "2023-08-09" {
		t.Errorf("expected date 2023-08-09, got %s", f.Date)
	}
	if f := decodeFrame(t, w); !strings.Contains(f.Base.URL, "/2023-08-09/") {
		t.Errorf("expected base url for 2023-08-09, got %s", f.Base.URL)
	}

	w = doJSON(router, "PUT", "/api/sessions/"+id+"/date", gin.H{"date": "2099-01-01"})
	today := models.FormatDate(models.Day(time.Now()))
	if f := decodeFrame(t, w); f.Date != today {
		t.Errorf("expected future date clamped to %s, got %s", today, f.Date)
	}

	if w := doJSON(router, "PUT", "/api/sessions/"+id+"/date", gin.H{"date": "yesterday"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for malformed date, got %d", w.Code)
	}
}

func TestStepDate(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})
	id, _ := createSession(t, router)

	var resp struct {
		Applied bool         `json:"applied"`
		Frame   models.Frame `json:"frame"`
	}

	// yesterday -> today
	w := doJSON(router, "POST", "/api/sessions/"+id+"/date/step", gin.H{"days": 1})
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Applied {
		t.Error("expected first step forward to apply")
	}

	w = doJSON(router, "POST", "/api/sessions/"+id+"/date/step", gin.H{"days": 1})
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Applied {
		t.Error("expected step past today to be refused")
	}
	if today := models.FormatDate(models.Day(time.Now())); resp.Frame.Date != today {
		t.Errorf("expected date %s, got %s", today, resp.Frame.Date)
	}

	if w := doJSON(router, "POST", "/api/sessions/"+id+"/date/step", gin.H{"days": 7}); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for days=7, got %d", w.Code)
	}
}

func TestTogglePlayback(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})
	id, _ := createSession(t, router)

	var resp struct {
		Playing bool `json:"playing"`
	}

	w := doJSON(router, "POST", "/api/sessions/"+id+"/playback/toggle", nil)
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Playing {
		t.Error("expected playback started")
	}

	w = doJSON(router, "POST", "/api/sessions/"+id+"/playback/toggle", nil)
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Playing {
		t.Error("expected playback stopped")
	}
}

func TestSelectBaseLayer(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})
	id, _ := createSession(t, router)

	w := doJSON(router, "PUT", "/api/sessions/"+id+"/base-layer", gin.H{"id": "VIIRS_SNPP_DayNightBand_ENCC"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if f := decodeFrame(t, w); f.Base.LayerID != "VIIRS_SNPP_DayNightBand_ENCC" {
		t.Errorf("expected night lights base, got %s", f.Base.LayerID)
	}

	if w := doJSON(router, "PUT", "/api/sessions/"+id+"/base-layer", gin.H{"id": "Coastlines_15m"}); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for overlay as base, got %d", w.Code)
	}
}

func TestOverlays(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})
	id, _ := createSession(t, router)

	w := doJSON(router, "PUT", "/api/sessions/"+id+"/overlays/Coastlines_15m/opacity", gin.H{"opacity": 0.4})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var toggled struct {
		Active bool         `json:"active"`
		Frame  models.Frame `json:"frame"`
	}
	w = doJSON(router, "POST", "/api/sessions/"+id+"/overlays/Coastlines_15m/toggle", nil)
	json.Unmarshal(w.Body.Bytes(), &toggled)
	if toggled.Active {
		t.Error("expected default overlay to toggle off")
	}
	for _, o := range toggled.Frame.Overlays {
		if o.LayerID == "Coastlines_15m" {
			t.Error("expected Coastlines_15m absent from frame")
		}
	}

	w = doJSON(router, "POST", "/api/sessions/"+id+"/overlays/Coastlines_15m/toggle", nil)
	json.Unmarshal(w.Body.Bytes(), &toggled)
	if !toggled.Active {
		t.Fatal("expected overlay to toggle back on")
	}
	last := toggled.Frame.Overlays[len(toggled.Frame.Overlays)-1]
	if last.LayerID != "Coastlines_15m" || last.Opacity != 0.4 {
		t.Errorf("expected Coastlines_15m on top at 0.4, got %s at %v", last.LayerID, last.Opacity)
	}

	if w := doJSON(router, "POST", "/api/sessions/"+id+"/overlays/nope/toggle", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown overlay, got %d", w.Code)
	}
	if w := doJSON(router, "PUT", "/api/sessions/"+id+"/overlays/Coastlines_15m/opacity", gin.H{}); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for missing opacity, got %d", w.Code)
	}
}

func TestJumpToEvent(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})
	id, _ := createSession(t, router)

	event := catalog.Default().Events()[0]

	w := doJSON(router, "POST", "/api/sessions/"+id+"/events/"+event.ID+"/jump", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	f := decodeFrame(t, w)
	if f.Date != event.Date {
		t.Errorf("expected date %s, got %s", event.Date, f.Date)
	}
	if f.Jump == nil || *f.Jump != event.Location {
		t.Errorf("expected jump to %+v, got %+v", event.Location, f.Jump)
	}

	w = doJSON(router, "POST", "/api/sessions/"+id+"/viewport/consume", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected pending viewport, got status %d", w.Code)
	}
	var vp models.ViewState
	json.Unmarshal(w.Body.Bytes(), &vp)
	if vp != event.Location {
		t.Errorf("expected viewport %+v, got %+v", event.Location, vp)
	}

	if w := doJSON(router, "POST", "/api/sessions/"+id+"/viewport/consume", nil); w.Code != http.StatusNoContent {
		t.Errorf("expected status 204 after consume, got %d", w.Code)
	}
	if w := doJSON(router, "POST", "/api/sessions/"+id+"/events/nope/jump", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown event, got %d", w.Code)
	}
}

type chatState struct {
	Messages []models.ChatMessage `json:"messages"`
	Pending  bool                 `json:"pending"`
}

func waitForMessages(t *testing.T, router *gin.Engine, id string, n int) chatState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		var st chatState
		w := doJSON(router, "GET", "/api/sessions/"+id+"/chat", nil)
		json.Unmarshal(w.Body.Bytes(), &st)
		if len(st.Messages) >= n && !st.Pending {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d messages, have %d", n, len(st.Messages))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestChat(t *testing.T) {
	gen := &stubGenerator{reply: "That is smoke from the fires."}
	router := setupTestRouter(t, gen)
	id, _ := createSession(t, router)

	st := waitForMessages(t, router, id, 1)
	if st.Messages[0].Role != models.RoleModel || st.Messages[0].Text != assistant.GreetingText {
		t.Errorf("expected greeting first, got %+v", st.Messages[0])
	}

	w := doJSON(router, "POST", "/api/sessions/"+id+"/chat", gin.H{"text": "What is the grey haze?"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", w.Code)
	}

	st = waitForMessages(t, router, id, 3)
	if st.Messages[1].Role != models.RoleUser || st.Messages[1].Text != "What is the grey haze?" {
		t.Errorf("unexpected user message: %+v", st.Messages[1])
	}
	if st.Messages[2].Role != models.RoleModel || st.Messages[2].Text != gen.reply {
		t.Errorf("unexpected reply: %+v", st.Messages[2])
	}
}

func TestChat_Rejections(t *testing.T) {
	gen := &stubGenerator{reply: "ok", release: make(chan struct{})}
	router := setupTestRouter(t, gen)
	id, _ := createSession(t, router)

	if w := doJSON(router, "POST", "/api/sessions/"+id+"/chat", gin.H{"text": "   "}); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for blank message, got %d", w.Code)
	}

	if w := doJSON(router, "POST", "/api/sessions/"+id+"/chat", gin.H{"text": "first"}); w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", w.Code)
	}
	if w := doJSON(router, "POST", "/api/sessions/"+id+"/chat", gin.H{"text": "second"}); w.Code != http.StatusConflict {
		t.Errorf("expected status 409 while pending, got %d", w.Code)
	}

	close(gen.release)
	st := waitForMessages(t, router, id, 3)
	if len(st.Messages) != 3 {
		t.Errorf("expected 3 messages, got %d", len(st.Messages))
	}
}

// closeNotifyingRecorder lets gin's Stream run against a recorder.
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestStreamEvents_SendsCurrentFrame(t *testing.T) {
	router := setupTestRouter(t, &stubGenerator{})
	id, _ := createSession(t, router)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	w := &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	req, _ := http.NewRequestWithContext(ctx, "GET", "/api/sessions/"+id+"/stream", nil)
	router.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("expected content-type text/event-stream, got %s", ct)
	}
	if !strings.Contains(w.Body.String(), "event:frame") {
		t.Errorf("expected a frame event, got %q", w.Body.String())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(1))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for range 2 {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/", nil)
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("expected [200 429], got %v", codes)
	}
}

func TestKeyedRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/:id", KeyedRateLimitMiddleware(1, func(c *gin.Context) string { return c.Param("id") }), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	get := func(path string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := get("/a"); code != http.StatusOK {
		t.Errorf("expected first request for a to pass, got %d", code)
	}
	if code := get("/a"); code != http.StatusTooManyRequests {
		t.Errorf("expected second request for a to be limited, got %d", code)
	}
	if code := get("/b"); code != http.StatusOK {
		t.Errorf("expected b to have its own bucket, got %d", code)
	}
}

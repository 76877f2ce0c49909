package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"pomodoro/collab/internal/db"
	"pomodoro/collab/internal/handler"
	"pomodoro/collab/internal/repository"
	"pomodoro/collab/internal/room"
	"pomodoro/collab/internal/router"
	"pomodoro/collab/internal/service"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

type roomEnvelope struct {
	ID         string `json:"id"`
	HostID     string `json:"hostId"`
	Version    int    `json:"version"`
	TimerState struct {
		Phase         string `json:"phase"`
		Status        string `json:"status"`
		TimeRemaining int    `json:"timeRemaining"`
		PomodoroCount int    `json:"pomodoroCount"`
	} `json:"timerState"`
	Participants []struct {
		ID string `json:"id"`
	} `json:"participants"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			Room struct {
				Version int `json:"version"`
			} `json:"room"`
		} `json:"details"`
	} `json:"error"`
}

type testServer struct {
	handler http.Handler
	clock   *clockwork.FakeClock
}

func TestRoomLifecycle(t *testing.T) {
	srv := setupTestServer(t)

	created := createRoom(t, srv, "", map[string]interface{}{
		"hostId":   "host-1",
		"hostName": "Hana",
		"name":     "Morning focus",
	})
	if created.TimerState.Status != "idle" || created.TimerState.TimeRemaining != 1500 {
		t.Fatalf("unexpected initial timer: %+v", created.TimerState)
	}

	joined := roomAction(t, srv, created.ID, "", map[string]interface{}{"action": "join", "userId": "guest-1", "userName": "Gil"})
	if len(joined.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(joined.Participants))
	}

	roomAction(t, srv, created.ID, "", map[string]interface{}{"action": "start", "userId": "host-1"})
	srv.clock.Advance(1500 * time.Second)

	got := getRoom(t, srv, created.ID)
	if got.TimerState.Phase != "shortBreak" || got.TimerState.Status != "idle" || got.TimerState.TimeRemaining != 300 || got.TimerState.PomodoroCount != 1 {
		t.Fatalf("expected idle short break after work expired, got %+v", got.TimerState)
	}

	status, body := requestJSON(t, srv.handler, http.MethodPost, "/api/rooms/"+created.ID, "", map[string]interface{}{"action": "pause", "userId": "guest-1"})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-host pause, got %d: %s", status, body)
	}

	status, body = requestJSON(t, srv.handler, http.MethodPost, "/api/rooms/"+created.ID, "", map[string]interface{}{"action": "leave", "userId": "host-1"})
	if status != http.StatusOK || !bytes.Contains(body, []byte(`"success":true`)) {
		t.Fatalf("leave failed with %d: %s", status, body)
	}
	got = getRoom(t, srv, created.ID)
	if got.HostID != "guest-1" {
		t.Fatalf("expected host transfer to guest-1, got %s", got.HostID)
	}

	status, _ = requestJSON(t, srv.handler, http.MethodPost, "/api/rooms/"+created.ID, "", map[string]interface{}{"action": "end", "userId": "guest-1"})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on end, got %d", status)
	}
	status, _ = requestJSON(t, srv.handler, http.MethodGet, "/api/rooms/"+created.ID, "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 after end, got %d", status)
	}

	status, _ = requestJSON(t, srv.handler, http.MethodPost, "/api/rooms/"+created.ID, "", map[string]interface{}{"action": "leave", "userId": "guest-1"})
	if status != http.StatusOK {
		t.Fatalf("leave on a closed room should succeed, got %d", status)
	}
}

func TestRoomTokenIdentityOverridesBody(t *testing.T) {
	srv := setupTestServer(t)
	guest := guestLogin(t, srv, "Noor")

	created := createRoom(t, srv, guest.Token, map[string]interface{}{
		"hostId": "spoofed",
		"name":   "Token room",
	})
	if created.HostID != guest.User.ID {
		t.Fatalf("expected token subject %s as host, got %s", guest.User.ID, created.HostID)
	}

	status, body := requestJSON(t, srv.handler, http.MethodPost, "/api/rooms/"+created.ID, "", map[string]interface{}{"action": "start", "userId": "spoofed"})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for body identity, got %d: %s", status, body)
	}
	roomAction(t, srv, created.ID, guest.Token, map[string]interface{}{"action": "start"})

	status, _ = requestJSON(t, srv.handler, http.MethodGet, "/api/rooms/"+created.ID, "garbage", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", status)
	}
}

func TestRoomStaleVersionConflict(t *testing.T) {
	srv := setupTestServer(t)
	created := createRoom(t, srv, "", map[string]interface{}{"hostId": "h", "name": "Versions"})

	started := roomAction(t, srv, created.ID, "", map[string]interface{}{"action": "start", "userId": "h", "baseVersion": created.Version})

	status, raw := requestJSON(t, srv.handler, http.MethodPost, "/api/rooms/"+created.ID, "", map[string]interface{}{
		"action": "pause", "userId": "h", "baseVersion": created.Version,
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for stale version, got %d", status)
	}
	var conflict apiErrorEnvelope
	if err := json.Unmarshal(raw, &conflict); err != nil {
		t.Fatalf("unmarshal conflict: %v", err)
	}
	if conflict.Error.Code != "state_conflict" || conflict.Error.Details.Room.Version != started.Version {
		t.Fatalf("unexpected conflict body: %s", raw)
	}

	roomAction(t, srv, created.ID, "", map[string]interface{}{"action": "pause", "userId": "h", "baseVersion": conflict.Error.Details.Room.Version})
}

func TestRoomErrors(t *testing.T) {
	srv := setupTestServer(t)
	created := createRoom(t, srv, "", map[string]interface{}{"hostId": "h", "name": "Crowded"})

	for i := 1; i < room.DefaultMaxParticipants; i++ {
		roomAction(t, srv, created.ID, "", map[string]interface{}{"action": "join", "userId": fmt.Sprintf("u%d", i)})
	}
	status, raw := requestJSON(t, srv.handler, http.MethodPost, "/api/rooms/"+created.ID, "", map[string]interface{}{"action": "join", "userId": "late"})
	assertError(t, status, raw, http.StatusForbidden, "room_full")

	status, raw = requestJSON(t, srv.handler, http.MethodPost, "/api/rooms/"+created.ID, "", map[string]interface{}{"action": "nap", "userId": "h"})
	assertError(t, status, raw, http.StatusBadRequest, "invalid_action")

	status, raw = requestJSON(t, srv.handler, http.MethodPost, "/api/rooms", "", map[string]interface{}{"hostId": "h"})
	assertError(t, status, raw, http.StatusBadRequest, "invalid_request")

	status, raw = requestJSON(t, srv.handler, http.MethodPost, "/api/rooms", "", map[string]interface{}{
		"hostId": "h", "name": "Bad", "settings": map[string]int{"longBreakInterval": 1},
	})
	assertError(t, status, raw, http.StatusBadRequest, "invalid_settings")

	status, raw = requestJSON(t, srv.handler, http.MethodPost, "/api/rooms", "", map[string]interface{}{
		"hostId": "h", "name": "Overflow", "settings": map[string]int{"workDuration": 1 << 58},
	})
	assertError(t, status, raw, http.StatusBadRequest, "invalid_settings")

	status, raw = requestJSON(t, srv.handler, http.MethodGet, "/api/rooms/NOPE23", "", nil)
	assertError(t, status, raw, http.StatusNotFound, "room_not_found")
}

func TestRoomInheritsSoloTimer(t *testing.T) {
	srv := setupTestServer(t)
	created := createRoom(t, srv, "", map[string]interface{}{
		"hostId": "h",
		"name":   "Carry over",
		"inheritedTimerState": map[string]interface{}{
			"phase":         "work",
			"status":        "paused",
			"timeRemaining": 600,
			"pomodoroCount": 2,
			"settings":      map[string]int{"workDuration": 30},
		},
	})
	if created.TimerState.TimeRemaining != 600 || created.TimerState.Status != "paused" || created.TimerState.PomodoroCount != 2 {
		t.Fatalf("inherited state not applied: %+v", created.TimerState)
	}

	var rooms []roomEnvelope
	status, raw := requestJSON(t, srv.handler, http.MethodGet, "/api/rooms", "", nil)
	if status != http.StatusOK {
		t.Fatalf("list failed: %d", status)
	}
	if err := json.Unmarshal(raw, &rooms); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != created.ID {
		t.Fatalf("unexpected room list: %s", raw)
	}
}

func TestAnalyticsRequiresAuthAndAggregates(t *testing.T) {
	srv := setupTestServer(t)

	status, _ := requestJSON(t, srv.handler, http.MethodGet, "/api/analytics/daily", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	user := registerUser(t, srv, "ada@example.com", "123456")
	startedAt := srv.clock.Now().Add(-30 * time.Minute)
	status, raw := requestJSON(t, srv.handler, http.MethodPost, "/api/analytics/sessions", user.Token, map[string]interface{}{
		"phase":           "work",
		"startedAt":       startedAt,
		"plannedDuration": 1500,
		"actualDuration":  1500,
		"completed":       true,
	})
	if status != http.StatusCreated {
		t.Fatalf("record session failed with %d: %s", status, raw)
	}

	status, raw = requestJSON(t, srv.handler, http.MethodGet, "/api/analytics/daily?days=2", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("daily failed with %d: %s", status, raw)
	}
	var daily struct {
		Days []struct {
			Date               string  `json:"date"`
			CompletedPomodoros int     `json:"completedPomodoros"`
			TotalFocusMinutes  float64 `json:"totalFocusMinutes"`
		} `json:"days"`
	}
	if err := json.Unmarshal(raw, &daily); err != nil {
		t.Fatalf("unmarshal daily: %v", err)
	}
	if len(daily.Days) != 2 || daily.Days[1].CompletedPomodoros != 1 || daily.Days[1].TotalFocusMinutes != 25 {
		t.Fatalf("unexpected daily analytics: %s", raw)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := setupTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/rooms", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	recorder := httptest.NewRecorder()

	srv.handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
	if recorder.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func setupTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if _, err := db.RunMigrations(context.Background(), database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))
	store := room.NewStore(room.Options{Clock: clock})

	userRepo := repository.NewUserRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	authService := service.NewAuthService(userRepo, "test-secret", 24*time.Hour)
	roomService := service.NewRoomService(store)
	analyticsService := service.NewAnalyticsService(sessionRepo, clock)

	engine := router.New(authService, router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Rooms:     handler.NewRoomHandler(roomService),
		Analytics: handler.NewAnalyticsHandler(analyticsService),
	}, []string{"http://localhost:5173"})

	return testServer{handler: engine, clock: clock}
}

func registerUser(t *testing.T, srv testServer, email, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, srv.handler, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s failed with status %d: %s", email, status, string(body))
	}
	return decodeAuth(t, body)
}

func guestLogin(t *testing.T, srv testServer, name string) authResponse {
	t.Helper()
	status, body := requestJSON(t, srv.handler, http.MethodPost, "/api/auth/guest", "", map[string]string{"name": name})
	if status != http.StatusCreated {
		t.Fatalf("guest login failed with status %d: %s", status, string(body))
	}
	return decodeAuth(t, body)
}

func decodeAuth(t *testing.T, body []byte) authResponse {
	t.Helper()
	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal auth response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("empty token")
	}
	return resp
}

func createRoom(t *testing.T, srv testServer, token string, payload map[string]interface{}) roomEnvelope {
	t.Helper()
	status, body := requestJSON(t, srv.handler, http.MethodPost, "/api/rooms", token, payload)
	if status != http.StatusCreated {
		t.Fatalf("create room failed with status %d: %s", status, string(body))
	}
	return decodeRoom(t, body)
}

func getRoom(t *testing.T, srv testServer, roomID string) roomEnvelope {
	t.Helper()
	status, body := requestJSON(t, srv.handler, http.MethodGet, "/api/rooms/"+roomID, "", nil)
	if status != http.StatusOK {
		t.Fatalf("get room failed with status %d: %s", status, string(body))
	}
	return decodeRoom(t, body)
}

func roomAction(t *testing.T, srv testServer, roomID, token string, payload map[string]interface{}) roomEnvelope {
	t.Helper()
	status, body := requestJSON(t, srv.handler, http.MethodPost, "/api/rooms/"+roomID, token, payload)
	if status != http.StatusOK {
		t.Fatalf("%v on %s failed with status %d: %s", payload["action"], roomID, status, string(body))
	}
	return decodeRoom(t, body)
}

func decodeRoom(t *testing.T, body []byte) roomEnvelope {
	t.Helper()
	var resp roomEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal room: %v", err)
	}
	return resp
}

func assertError(t *testing.T, status int, raw []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("expected %d, got %d: %s", wantStatus, status, raw)
	}
	var resp apiErrorEnvelope
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if resp.Error.Code != wantCode {
		t.Fatalf("expected code %s, got %s", wantCode, resp.Error.Code)
	}
}

func requestJSON(t *testing.T, server http.Handler, method, path, token string, payload interface{}) (int, []byte) {
	t.Helper()

	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = encoded
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}

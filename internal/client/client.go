// Package client talks to the room server the way a browser tab does: it
// polls a room, keeps a locally interpolated countdown between polls and
// reports phase boundaries so finished phases can be recorded.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pomodoro/collab/internal/model"
)

var ErrRoomClosed = errors.New("room closed")

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api returned status %d", e.Status)
	}
	return fmt.Sprintf("api returned status %d: %s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL string
	client  *http.Client
	token   string
}

type AuthResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type CreateRoomRequest struct {
	HostID              string                     `json:"hostId,omitempty"`
	HostName            string                     `json:"hostName,omitempty"`
	Name                string                     `json:"name"`
	Settings            *model.SettingsPatch       `json:"settings,omitempty"`
	InheritedTimerState *model.InheritedTimerState `json:"inheritedTimerState,omitempty"`
}

type ActionRequest struct {
	Action      string `json:"action"`
	UserID      string `json:"userId,omitempty"`
	UserName    string `json:"userName,omitempty"`
	BaseVersion int    `json:"baseVersion,omitempty"`
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetToken makes every later request carry the bearer token.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

func (c *Client) Guest(ctx context.Context, name string) (*AuthResult, error) {
	var result AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/guest", map[string]string{"name": name}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]model.RoomResponse, error) {
	var rooms []model.RoomResponse
	if err := c.do(ctx, http.MethodGet, "/api/rooms", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (*model.RoomResponse, error) {
	var created model.RoomResponse
	if err := c.do(ctx, http.MethodPost, "/api/rooms", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetRoom returns ErrRoomClosed, wrapped, when the server no longer knows the
// room.
func (c *Client) GetRoom(ctx context.Context, roomID string) (*model.RoomResponse, error) {
	var got model.RoomResponse
	if err := c.do(ctx, http.MethodGet, roomPath(roomID), nil, &got); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrRoomClosed, roomID)
		}
		return nil, err
	}
	return &got, nil
}

// Act sends a room action. The returned room is nil for leave and end, which
// answer with a bare success flag.
func (c *Client) Act(ctx context.Context, roomID string, req ActionRequest) (*model.RoomResponse, error) {
	var got model.RoomResponse
	if err := c.do(ctx, http.MethodPost, roomPath(roomID), req, &got); err != nil {
		return nil, err
	}
	if got.ID == "" {
		return nil, nil
	}
	return &got, nil
}

func (c *Client) RecordSession(ctx context.Context, session model.PomodoroSession) (*model.PomodoroSession, error) {
	var resp struct {
		Session model.PomodoroSession `json:"session"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/analytics/sessions", session, &resp); err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(responseBody, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func roomPath(roomID string) string {
	return "/api/rooms/" + url.PathEscape(strings.ToUpper(strings.TrimSpace(roomID)))
}

package eventifysdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Eventify HTTP API client.
type Client struct {
	BaseURL    string
	Token      string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Profile is the API profile model.
type Profile struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email,omitempty"`
	Role        string  `json:"role"`
	IsAvailable bool    `json:"is_available"`
	CurrentTeam *string `json:"current_team,omitempty"`
}

// Mission is the API mission model.
type Mission struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	EventID           string  `json:"event_id"`
	TeamID            string  `json:"team_id"`
	CreatedBy         *string `json:"created_by,omitempty"`
	AssignedManagerID *string `json:"assigned_manager_id,omitempty"`
	AISplit           bool    `json:"ai_split"`
	IsApproved        bool    `json:"is_approved"`
	Status            string  `json:"status"`
}

// Task is the API task model.
type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	MissionID   *string `json:"mission_id,omitempty"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	TeamID      *string `json:"team_id,omitempty"`
	EventID     string  `json:"event_id"`
	Status      string  `json:"status"`
	AIGenerated bool    `json:"ai_generated"`
}

// MissionInput holds the fields for creating a mission.
type MissionInput struct {
	Title             string `json:"title"`
	Description       string `json:"description,omitempty"`
	EventID           string `json:"event_id"`
	TeamID            string `json:"team_id"`
	AssignedManagerID string `json:"assigned_manager_id,omitempty"`
}

// MissionFilter narrows ListMissions.
type MissionFilter struct {
	EventID string
	TeamID  string
	Status  string
}

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	MissionID string
	EventID   string
	TeamID    string
	Status    string
}

// TaskUpdate edits one AI-generated task during approval. Nil fields are kept.
type TaskUpdate struct {
	TaskID      string  `json:"task_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Assignee    *string `json:"assignee,omitempty"`
}

// SplitResult is returned by SplitMission.
type SplitResult struct {
	Mission Mission `json:"mission"`
	Tasks   []Task  `json:"tasks"`
}

// APIError wraps non-2xx responses. Code is the envelope's error code.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login exchanges credentials for a token and stores it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (Profile, error) {
	var resp struct {
		Token   string  `json:"token"`
		Profile Profile `json:"profile"`
	}
	body := map[string]any{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "v0/auth/login", body, &resp); err != nil {
		return Profile{}, err
	}
	c.Token = resp.Token
	return resp.Profile, nil
}

// Me returns the caller's own profile.
func (c *Client) Me(ctx context.Context) (Profile, error) {
	var resp Profile
	err := c.do(ctx, http.MethodGet, "v0/me", nil, &resp)
	return resp, err
}

func (c *Client) CreateMission(ctx context.Context, in MissionInput) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodPost, "v0/missions", in, &resp)
	return resp, err
}

func (c *Client) GetMission(ctx context.Context, id string) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodGet, "v0/missions/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) ListMissions(ctx context.Context, f MissionFilter) ([]Mission, error) {
	q := url.Values{}
	setQuery(q, "event_id", f.EventID)
	setQuery(q, "team_id", f.TeamID)
	setQuery(q, "status", f.Status)
	var resp []Mission
	err := c.do(ctx, http.MethodGet, withQuery("v0/missions", q), nil, &resp)
	return resp, err
}

// SplitMission asks the server to create one task per staff member.
func (c *Client) SplitMission(ctx context.Context, id string) (SplitResult, error) {
	var resp SplitResult
	err := c.do(ctx, http.MethodPost, "v0/missions/"+url.PathEscape(id)+"/split", nil, &resp)
	return resp, err
}

// ApproveMissionTasks applies updates and approves the mission, returning its generated tasks.
func (c *Client) ApproveMissionTasks(ctx context.Context, id string, updates []TaskUpdate) ([]Task, error) {
	body := map[string]any{"updates": updates}
	var resp []Task
	err := c.do(ctx, http.MethodPost, "v0/missions/"+url.PathEscape(id)+"/approve", body, &resp)
	return resp, err
}

// SuggestMission asks the advisor for a mission on the event.
func (c *Client) SuggestMission(ctx context.Context, eventID string) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodPost, "v0/events/"+url.PathEscape(eventID)+"/suggest-mission", nil, &resp)
	return resp, err
}

func (c *Client) ListTasks(ctx context.Context, f TaskFilter) ([]Task, error) {
	q := url.Values{}
	setQuery(q, "mission_id", f.MissionID)
	setQuery(q, "event_id", f.EventID)
	setQuery(q, "team_id", f.TeamID)
	setQuery(q, "status", f.Status)
	var resp []Task
	err := c.do(ctx, http.MethodGet, withQuery("v0/tasks", q), nil, &resp)
	return resp, err
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id, status string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, "v0/tasks/"+url.PathEscape(id), map[string]any{"status": status}, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.Token)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

func setQuery(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

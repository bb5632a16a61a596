// Package client - типизированный REST-клиент сервера садханы, хранилище состояния
// и операции, которые связывают их (App).
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/go-querystring/query"

	"sadhana/backend/bhoga"
	"sadhana/backend/config"
	"sadhana/backend/models"
	"sadhana/backend/report"
	"sadhana/backend/utils"
)

// APIError - ответ сервера с кодом не из диапазона 2xx
type APIError struct {
	StatusCode int
	Message    string
	Details    interface{}
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sadhana api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("sadhana api: %d %s", e.StatusCode, e.Message)
}

// IsUnauthorized сообщает, что сервер отверг учётные данные
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client выполняет запросы к /api. Повторов нет: единственный предел - таймаут.
type Client struct {
	baseURL string
	timeout time.Duration

	mu    sync.RWMutex
	token string
}

func New(cfg *config.ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		token:   cfg.Token,
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ActivityQuery - параметры GET /activities
type ActivityQuery struct {
	UserID    string `url:"userId,omitempty"`
	StartDate string `url:"startDate,omitempty"`
	EndDate   string `url:"endDate,omitempty"`
}

// DashboardQuery - параметры GET /reports/dashboard
type DashboardQuery struct {
	Search    string `url:"search,omitempty"`
	StartDate string `url:"startDate,omitempty"`
	EndDate   string `url:"endDate,omitempty"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type Dashboard struct {
	Summary    report.Summary      `json:"summary"`
	Users      []report.UserReport `json:"users"`
	Activities []models.Activity   `json:"activities"`
}

// StatusWindow - страница таблицы статусов за две недели
type StatusWindow struct {
	Data []struct {
		Date     string                   `json:"date"`
		Statuses []models.PreachingStatus `json:"statuses"`
	} `json:"data"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	body := fiber.Map{"email": email, "password": password}
	if err := c.do(ctx, fiber.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, fiber.MethodPost, "/auth/logout", nil, nil, nil)
}

func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	if err := c.do(ctx, fiber.MethodGet, "/auth/profile", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	body := fiber.Map{"name": name, "email": email, "password": password, "role": role}
	if err := c.do(ctx, fiber.MethodPost, "/auth/register", nil, body, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var out struct {
		Users []models.User `json:"users"`
	}
	if err := c.do(ctx, fiber.MethodGet, "/auth/api/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *Client) Activities(ctx context.Context, q ActivityQuery) ([]models.Activity, error) {
	var out struct {
		Activities []models.Activity `json:"activities"`
	}
	if err := c.do(ctx, fiber.MethodGet, "/activities", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Activities, nil
}

func (c *Client) CreateActivity(ctx context.Context, a models.Activity) (*models.Activity, error) {
	var out struct {
		Activity models.Activity `json:"activity"`
	}
	if err := c.do(ctx, fiber.MethodPost, "/activities", nil, a, &out); err != nil {
		return nil, err
	}
	return &out.Activity, nil
}

func (c *Client) UpdateActivity(ctx context.Context, id string, patch models.ActivityPatch) (*models.Activity, error) {
	var out struct {
		Activity models.Activity `json:"activity"`
	}
	if err := c.do(ctx, fiber.MethodPut, "/activities/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out.Activity, nil
}

func (c *Client) Schedule(ctx context.Context) (models.BhogaSchedule, error) {
	var out struct {
		Schedule models.BhogaSchedule `json:"schedule"`
	}
	if err := c.do(ctx, fiber.MethodGet, "/auth/bhoga-schedule", nil, nil, &out); err != nil {
		return models.BhogaSchedule{}, err
	}
	return out.Schedule, nil
}

// ReplaceSchedule отправляет все шесть дней одним запросом
func (c *Client) ReplaceSchedule(ctx context.Context, s models.BhogaSchedule) (models.BhogaSchedule, error) {
	var out struct {
		Schedule models.BhogaSchedule `json:"schedule"`
	}
	if err := c.do(ctx, fiber.MethodPut, "/auth/bhoga-schedule", nil, s, &out); err != nil {
		return models.BhogaSchedule{}, err
	}
	return out.Schedule, nil
}

func (c *Client) Statuses(ctx context.Context, date string) ([]models.PreachingStatus, error) {
	var out struct {
		Statuses []models.PreachingStatus `json:"statuses"`
	}
	q := struct {
		Date string `url:"date"`
	}{date}
	if err := c.do(ctx, fiber.MethodGet, "/preachingStatus", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Statuses, nil
}

func (c *Client) UpdateStatus(ctx context.Context, userID, date string, u models.StatusUpdate) (*models.PreachingStatus, error) {
	var out struct {
		Status models.PreachingStatus `json:"status"`
	}
	path := "/preachingStatus/" + url.PathEscape(userID) + "/" + url.PathEscape(date)
	if err := c.do(ctx, fiber.MethodPut, path, nil, u, &out); err != nil {
		return nil, err
	}
	return &out.Status, nil
}

func (c *Client) BulkUpdateStatuses(ctx context.Context, bulk models.BulkStatusUpdate) ([]models.PreachingStatus, error) {
	var out struct {
		Statuses []models.PreachingStatus `json:"statuses"`
	}
	if err := c.do(ctx, fiber.MethodPost, "/preachingStatus/bulk-update", nil, bulk, &out); err != nil {
		return nil, err
	}
	return out.Statuses, nil
}

func (c *Client) Dashboard(ctx context.Context, q DashboardQuery) (*Dashboard, error) {
	var out Dashboard
	if err := c.do(ctx, fiber.MethodGet, "/reports/dashboard", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyStats(ctx context.Context) (*report.Stats, error) {
	var out struct {
		Stats report.Stats `json:"stats"`
	}
	if err := c.do(ctx, fiber.MethodGet, "/reports/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Stats, nil
}

func (c *Client) BhogaReport(ctx context.Context) ([]bhoga.Day, error) {
	var out struct {
		Days []bhoga.Day `json:"days"`
	}
	if err := c.do(ctx, fiber.MethodGet, "/reports/bhoga", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Days, nil
}

func (c *Client) PreachingReport(ctx context.Context) (*report.PreachingSummary, error) {
	var out struct {
		Report report.PreachingSummary `json:"report"`
	}
	if err := c.do(ctx, fiber.MethodGet, "/reports/preaching", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Report, nil
}

func (c *Client) StatusWindow(ctx context.Context, page int) (*StatusWindow, error) {
	var out StatusWindow
	q := struct {
		Page int `url:"page,omitempty"`
	}{page}
	if err := c.do(ctx, fiber.MethodGet, "/reports/preaching/window", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do выполняет один запрос. Контекст проверяется до отправки, его дедлайн
// ограничивает таймаут запроса.
func (c *Client) do(ctx context.Context, method, path string, params interface{}, body interface{}, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	endpoint := c.baseURL + path
	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(endpoint)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if params != nil {
		values, err := query.Values(params)
		if err != nil {
			fiber.ReleaseAgent(agent)
			return fmt.Errorf("encode query: %w", err)
		}
		if encoded := values.Encode(); encoded != "" {
			agent.QueryString(encoded)
		}
	}

	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if token := c.Token(); token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		agent.JSON(body)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		fiber.ReleaseAgent(agent)
		return context.DeadlineExceeded
	}
	agent.Timeout(timeout)

	// Bytes освобождает agent
	status, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(errs...))
	}

	if status < 200 || status >= 300 {
		apiErr := &APIError{StatusCode: status}
		var envelope utils.ErrorResponse
		if err := json.Unmarshal(raw, &envelope); err == nil {
			apiErr.Message = envelope.Message
			apiErr.Details = envelope.Details
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

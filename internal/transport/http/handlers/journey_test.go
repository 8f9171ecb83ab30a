package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfeval/internal/app/server"
	"perfeval/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return config.Config{
		DatabaseURL:         dbURL,
		JWTSecret:           "test-secret",
		DataEncryptionKey:   "0123456789abcdef0123456789abcdef",
		Environment:         "test",
		LogLevel:            "error",
		LogEncoding:         "json",
		SeedTenantName:      "Test Tenant",
		SeedAdminEmail:      "admin@test.local",
		SeedAdminPassword:   "ChangeMe123!",
		EmailFrom:           "no-reply@test.local",
		RunMigrations:       true,
		RunSeed:             true,
		MaxBodyBytes:        1048576,
		RateLimitPerMinute:  1000,
		DashboardWindowDays: 30,
		ReportsDir:          t.TempDir(),
	}
}

func TestTaskToEvaluationJourney(t *testing.T) {
	cfg := testConfig(t)

	app, err := server.New(testContext(t), cfg)
	require.NoError(t, err)
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()

	c := &client{t: t, http: ts.Client(), base: ts.URL + "/api/v1"}
	c.login(cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	var emp struct {
		ID string `json:"id"`
	}
	c.do(http.MethodPost, "/employees", map[string]any{
		"firstName": "Journey",
		"lastName":  "Tester",
		"email":     fmt.Sprintf("journey-%d@example.com", time.Now().UnixNano()),
		"status":    "active",
	}, http.StatusCreated, &emp)
	require.NotEmpty(t, emp.ID)

	var task struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	c.do(http.MethodPost, "/tasks", map[string]any{
		"employeeId": emp.ID,
		"title":      "Quarterly report",
		"difficulty": "medium",
		"deadline":   time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
	}, http.StatusCreated, &task)
	assert.Equal(t, "pending", task.Status)

	c.do(http.MethodPut, "/tasks/"+task.ID+"/status", map[string]any{"status": "completed"}, http.StatusOK, &task)
	assert.Equal(t, "completed", task.Status)

	c.do(http.MethodPut, "/tasks/"+task.ID+"/rating", map[string]any{"rating": 8}, http.StatusOK, nil)

	now := time.Now()
	var batch struct {
		Generated int `json:"generated"`
	}
	c.do(http.MethodPost, "/evaluations/generate-automated", map[string]any{
		"month": int(now.Month()),
		"year":  now.Year(),
	}, http.StatusOK, &batch)
	assert.GreaterOrEqual(t, batch.Generated, 1)

	var evals []struct {
		ID     string `json:"id"`
		Score  int    `json:"score"`
		Rating string `json:"rating"`
		Type   string `json:"type"`
	}
	c.do(http.MethodGet, fmt.Sprintf("/evaluations?employeeId=%s&month=%d&year=%d", emp.ID, int(now.Month()), now.Year()), nil, http.StatusOK, &evals)
	require.Len(t, evals, 1)
	assert.Equal(t, "automated", evals[0].Type)
	assert.Positive(t, evals[0].Score)
	assert.NotEmpty(t, evals[0].Rating)

	resp := c.raw(http.MethodGet, "/evaluations/"+evals[0].ID+"/report", nil)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestGenerateRejectsInvalidPeriod(t *testing.T) {
	cfg := testConfig(t)

	app, err := server.New(testContext(t), cfg)
	require.NoError(t, err)
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()

	c := &client{t: t, http: ts.Client(), base: ts.URL + "/api/v1"}
	c.login(cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	tests := map[string]map[string]any{
		"month zero":    {"month": 0, "year": 2024},
		"month 13":      {"month": 13, "year": 2024},
		"year too low":  {"month": 1, "year": 1999},
		"year too high": {"month": 1, "year": 2101},
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			c.do(http.MethodPost, "/evaluations/generate-automated", payload, http.StatusBadRequest, nil)
		})
	}
}

type client struct {
	t     *testing.T
	http  *http.Client
	base  string
	token string
}

func (c *client) login(email, password string) {
	var out struct {
		Token string `json:"token"`
	}
	c.do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, http.StatusOK, &out)
	require.NotEmpty(c.t, out.Token)
	c.token = out.Token
}

func (c *client) raw(method, path string, payload any) *http.Response {
	c.t.Helper()
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		require.NoError(c.t, err)
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, c.base+path, body)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	return resp
}

func (c *client) do(method, path string, payload any, wantStatus int, out any) {
	c.t.Helper()
	resp := c.raw(method, path, payload)
	defer resp.Body.Close()

	var env envelope
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	require.Equal(c.t, wantStatus, resp.StatusCode, "%s %s: %+v", method, path, env.Error)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(env.Data, out))
	}
}

// testContext mirrors testing.T.Context (Go 1.24+): a context canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

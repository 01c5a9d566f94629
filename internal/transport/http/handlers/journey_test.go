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

	"perfeval/internal/app/server"
	"perfeval/internal/domain/auth"
	"perfeval/internal/platform/config"
)

const journeySecret = "journey-test-secret-0123456789abcdef"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
}

func TestPerformanceReviewJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	suffix := time.Now().UnixNano()
	hrUser := fmt.Sprintf("hr-%d", suffix)
	managerUser := fmt.Sprintf("manager-%d", suffix)
	employeeUser := fmt.Sprintf("employee-%d", suffix)
	outsiderUser := fmt.Sprintf("outsider-%d", suffix)

	createEmployee(t, app, hrUser, "HR", "")
	managerID := createEmployee(t, app, managerUser, "Manager", "")
	employeeID := createEmployee(t, app, employeeUser, "Employee", managerID)
	createEmployee(t, app, outsiderUser, "Employee", "")

	hrToken := token(t, hrUser)
	managerToken := token(t, managerUser)
	employeeToken := token(t, employeeUser)
	outsiderToken := token(t, outsiderUser)

	me := getJSON(t, client, ts.URL+"/api/v1/me", managerToken, http.StatusOK)
	var principal map[string]any
	decode(t, me, &principal)
	if principal["isManager"] != true || principal["portal"] != "Employee" {
		t.Fatalf("unexpected manager principal: %+v", principal)
	}

	delivery := createKPI(t, client, ts.URL, hrToken, "Delivery", "2")
	teamwork := createKPI(t, client, ts.URL, hrToken, "Teamwork", "1")

	periodEnv := sendJSON(t, client, http.MethodPost, ts.URL+"/api/v1/performance/periods", hrToken, map[string]any{
		"name":       fmt.Sprintf("Q1 %d", suffix),
		"periodType": "QUARTERLY",
		"startDate":  "2026-01-01",
		"endDate":    "2026-03-31",
	}, http.StatusCreated)
	var period map[string]any
	decode(t, periodEnv, &period)
	periodID := period["id"].(string)

	reviewBody := map[string]any{
		"employeeId": employeeID,
		"periodId":   periodID,
		"items": []map[string]any{
			{"kpiId": delivery, "score": 80},
			{"kpiId": teamwork, "score": 50},
		},
	}
	sendJSON(t, client, http.MethodPost, ts.URL+"/api/v1/performance/reviews", managerToken, reviewBody, http.StatusConflict)

	sendJSON(t, client, http.MethodPost, ts.URL+"/api/v1/performance/periods/"+periodID+"/activate", hrToken, nil, http.StatusOK)

	saved := sendJSON(t, client, http.MethodPost, ts.URL+"/api/v1/performance/reviews", managerToken, reviewBody, http.StatusOK)
	var review map[string]any
	decode(t, saved, &review)
	if review["totalScore"] != "70.00" {
		t.Fatalf("expected total 70.00, got %v", review["totalScore"])
	}
	reviewID := review["id"].(string)

	reviewBody["items"] = []map[string]any{{"kpiId": teamwork, "score": 90}}
	resaved := sendJSON(t, client, http.MethodPost, ts.URL+"/api/v1/performance/reviews", managerToken, reviewBody, http.StatusOK)
	decode(t, resaved, &review)
	if review["id"] != reviewID || review["totalScore"] != "90.00" {
		t.Fatalf("expected resave to replace review %s, got %+v", reviewID, review)
	}

	getJSON(t, client, ts.URL+"/api/v1/performance/reviews/"+reviewID, employeeToken, http.StatusOK)
	getJSON(t, client, ts.URL+"/api/v1/performance/reviews/"+reviewID, outsiderToken, http.StatusForbidden)
	sendJSON(t, client, http.MethodPost, ts.URL+"/api/v1/performance/reviews", outsiderToken, reviewBody, http.StatusForbidden)

	sendJSON(t, client, http.MethodPost, ts.URL+"/api/v1/performance/periods/"+periodID+"/close", hrToken, nil, http.StatusOK)
	sendJSON(t, client, http.MethodPost, ts.URL+"/api/v1/performance/reviews", managerToken, reviewBody, http.StatusConflict)
	sendJSON(t, client, http.MethodPost, ts.URL+"/api/v1/performance/periods/"+periodID+"/activate", hrToken, nil, http.StatusConflict)

	events := getJSON(t, client, ts.URL+"/api/v1/audit/events?entityType=performance_review", hrToken, http.StatusOK)
	var trail []map[string]any
	decode(t, events, &trail)
	if len(trail) < 2 {
		t.Fatalf("expected review saves in audit trail, got %d", len(trail))
	}
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		DatabaseURL:           dbURL,
		JWTSecret:             journeySecret,
		Environment:           "test",
		RunMigrations:         true,
		RunSeed:               true,
		MaxBodyBytes:          1048576,
		RateLimitPerMinute:    1000,
		LogLevel:              "error",
		OperationTimeout:      5 * time.Second,
		DirectoryTimeout:      2 * time.Second,
		IdentityAdminFallback: true,
	}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.GenerateToken(journeySecret, "", userID, time.Hour)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return tok
}

func createEmployee(t *testing.T, app *server.App, userID, role, managerID string) string {
	t.Helper()
	var manager any
	if managerID != "" {
		manager = managerID
	}
	var id string
	if err := app.DB.QueryRow(context.Background(), `
    INSERT INTO employees (user_id, first_name, last_name, role, manager_id)
    VALUES ($1, 'Journey', 'Tester', $2, $3)
    RETURNING id::text
  `, userID, role, manager).Scan(&id); err != nil {
		t.Fatalf("failed to create employee: %v", err)
	}
	return id
}

func createKPI(t *testing.T, client *http.Client, baseURL, token, title, weight string) string {
	t.Helper()
	env := sendJSON(t, client, http.MethodPost, baseURL+"/api/v1/performance/kpis", token, map[string]any{
		"title":  fmt.Sprintf("%s %d", title, time.Now().UnixNano()),
		"weight": weight,
	}, http.StatusCreated)
	var kpi map[string]any
	decode(t, env, &kpi)
	return kpi["id"].(string)
}

func decode(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

func sendJSON(t *testing.T, client *http.Client, method, url, token string, body any, want int) envelope {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(t, client, req, token, want)
}

func getJSON(t *testing.T, client *http.Client, url, token string, want int) envelope {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	return do(t, client, req, token, want)
}

func do(t *testing.T, client *http.Client, req *http.Request, token string, want int) envelope {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(raw))
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}

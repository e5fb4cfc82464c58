package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"academy-quiz-service/internal/app"
	"academy-quiz-service/internal/auth"
	"academy-quiz-service/internal/domain"
	"academy-quiz-service/internal/infra/memory"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	*httptest.Server
	api         *APIHandler
	service     *app.QuizService
	coordinator *app.Coordinator
	leaderboard *app.LeaderboardService
	gate        *auth.Gate
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithQuiz(t, app.QuizConfig{})
}

func newTestServerWithQuiz(t *testing.T, quiz app.QuizConfig) *testServer {
	t.Helper()
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(map[string]domain.QuestionBank{
		"agc": sampleBank(),
	}), time.Minute)
	coordinator := app.NewCoordinator(memory.NewCoordinatorStore(), app.CoordinatorConfig{PollInterval: 10 * time.Millisecond}, nil)
	leaderboard := app.NewLeaderboardService(memory.NewLeaderboardStore(), nil)
	service := app.NewQuizService(app.NewCatalog(app.DefaultDisciplines()), banks, coordinator, leaderboard, quiz, nil)
	gate := auth.NewGate(memory.NewAuthStore(), auth.Config{Password: "secret", BcryptCost: bcrypt.MinCost}, nil)
	if err := gate.Init(context.Background()); err != nil {
		t.Fatalf("init gate: %v", err)
	}

	api := NewAPIHandler(service, coordinator, leaderboard, gate, nil)
	ws := NewWSHandler(service, coordinator, nil)
	srv := httptest.NewServer(NewRouter(api, ws, nil))
	t.Cleanup(func() {
		srv.Close()
		service.Close()
	})
	return &testServer{Server: srv, api: api, service: service, coordinator: coordinator, leaderboard: leaderboard, gate: gate}
}

// sampleBank has correct answers [1, 0].
func sampleBank() domain.QuestionBank {
	return domain.QuestionBank{
		QuizTitle: "AGC revision",
		Questions: []domain.Question{
			{ID: 1, Question: "First", Options: []string{"a", "b"}, CorrectAnswer: 1},
			{ID: 2, Question: "Second", Options: []string{"a", "b", "c"}, CorrectAnswer: 0},
		},
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{"username": "admin", "password": "secret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	var session auth.Session
	decodeBody(t, resp, &session)
	return session.Token
}

func (s *testServer) join(t *testing.T, name string) domain.Participant {
	t.Helper()
	pin, err := s.coordinator.GeneratePIN(context.Background())
	if err != nil {
		t.Fatalf("generate pin: %v", err)
	}
	resp := s.do(t, http.MethodPost, "/api/disciplines/agc/join", "", map[string]string{"pin": pin.Code, "name": name})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status %d", resp.StatusCode)
	}
	var p domain.Participant
	decodeBody(t, resp, &p)
	return p
}

func (s *testServer) wsURL(query string) string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws?" + query
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

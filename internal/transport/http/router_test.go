package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"faceread-quiz-service/internal/app"
	"faceread-quiz-service/internal/domain"
	"faceread-quiz-service/internal/infra/memory"
	"github.com/gorilla/websocket"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestCacheAdminRoutes(t *testing.T) {
	srv, service := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/cache/preload", "application/json", nil)
	if err != nil {
		t.Fatalf("preload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preload status %d", resp.StatusCode)
	}

	var status struct {
		Entries []domain.CacheEntry `json:"entries"`
	}
	getJSON(t, srv.URL+"/v1/cache", &status)
	if len(status.Entries) != 3 {
		t.Fatalf("expected 3 cached languages, got %+v", status.Entries)
	}

	if code := doDelete(t, srv.URL+"/v1/cache/en"); code != http.StatusNoContent {
		t.Fatalf("invalidate en status %d", code)
	}
	if len(service.CacheStatus()) != 2 {
		t.Fatalf("expected en dropped, got %+v", service.CacheStatus())
	}

	if code := doDelete(t, srv.URL+"/v1/cache/fr"); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported language, got %d", code)
	}

	if code := doDelete(t, srv.URL+"/v1/cache"); code != http.StatusNoContent {
		t.Fatalf("invalidate all status %d", code)
	}
	if len(service.CacheStatus()) != 0 {
		t.Fatalf("expected empty cache")
	}
}

func TestSessionRouteNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/sessions/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestWebsocketPlaysQuizToMaster(t *testing.T) {
	srv, service := newTestServer(t)

	conn := dial(t, srv.URL+"/ws?name=Tester123")
	defer conn.Close()

	var hello sessionPayload
	readUntil(t, conn, func(msg wireMessage) bool {
		return msg.Type == "session" && json.Unmarshal(msg.Payload, &hello) == nil
	})
	session, err := service.Get(hello.SessionID)
	if err != nil {
		t.Fatalf("session not registered: %v", err)
	}

	send(t, conn, "load", loadPayload{Language: "en"})
	readState(t, conn, func(s stateView) bool { return s.PoolSize > 0 && !s.IsLoading })

	send(t, conn, "start", startPayload{Mode: domain.ModeStandard, Language: "en"})
	readState(t, conn, func(s stateView) bool { return s.Step == domain.StepQuiz })

	for i := 0; i < 10; i++ {
		q, ok := session.CurrentQuestion()
		if !ok {
			t.Fatalf("no current question at %d", i)
		}
		send(t, conn, "answer", answerPayload{QuestionID: q.ID, ChoiceID: q.CorrectChoiceID})
		var record domain.AnswerRecord
		readUntil(t, conn, func(msg wireMessage) bool {
			return msg.Type == "answerResult" && json.Unmarshal(msg.Payload, &record) == nil
		})
		if !record.IsCorrect {
			t.Fatalf("expected answer %d to be correct", i)
		}
	}

	final := readState(t, conn, func(s stateView) bool { return s.Step == domain.StepResult })
	if final.Result == nil || final.Result.Grade != domain.GradeMaster || final.Score != 10 {
		t.Fatalf("expected master with 10 points, got %+v", final.Result)
	}
	if final.Nickname != "Tester123" {
		t.Fatalf("expected nickname from query, got %q", final.Nickname)
	}
}

func TestWebsocketReportsErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	conn := dial(t, srv.URL+"/ws")
	defer conn.Close()

	send(t, conn, "start", startPayload{Mode: domain.ModeStandard, Language: "ko"})
	readUntil(t, conn, func(msg wireMessage) bool { return msg.Type == "error" })

	send(t, conn, "nickname", nicknamePayload{Nickname: "Te$ter"})
	var result nicknameResult
	readUntil(t, conn, func(msg wireMessage) bool {
		return msg.Type == "nickname" && json.Unmarshal(msg.Payload, &result) == nil
	})
	if result.Accepted {
		t.Fatalf("expected nickname with symbols to be rejected")
	}

	send(t, conn, "bogus", struct{}{})
	readUntil(t, conn, func(msg wireMessage) bool { return msg.Type == "error" })
}

func TestWebsocketCloseRemovesSession(t *testing.T) {
	srv, service := newTestServer(t)

	conn := dial(t, srv.URL+"/ws")
	var hello sessionPayload
	readUntil(t, conn, func(msg wireMessage) bool {
		return msg.Type == "session" && json.Unmarshal(msg.Payload, &hello) == nil
	})
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := service.Get(hello.SessionID); err != nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("session %s still registered after disconnect", hello.SessionID)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type wireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T) (*httptest.Server, *app.QuizService) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()

	cfg := memory.DefaultLoaderConfig()
	cfg.RetryBackoff = time.Millisecond
	repo := memory.NewQuestionRepository(memory.NewStaticQuestionSource(memory.SampleQuestionSets(4)), cfg, logger)

	opts := app.DefaultSessionOptions()
	opts.Dwell = 0
	opts.Logger = logger
	service := app.NewQuizService(memory.NewSessionStore(), repo, opts)

	srv := httptest.NewServer(NewRouter(service, RouterOptions{Logger: logger}))
	t.Cleanup(srv.Close)
	return srv, service
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, "ws"+strings.TrimPrefix(url, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteJSON(inboundMessage{Type: msgType, Payload: raw}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(wireMessage) bool) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return
		}
	}
}

func readState(t *testing.T, conn *websocket.Conn, match func(stateView) bool) stateView {
	t.Helper()
	var out stateView
	readUntil(t, conn, func(msg wireMessage) bool {
		if msg.Type != "state" {
			return false
		}
		var s stateView
		if err := json.Unmarshal(msg.Payload, &s); err != nil {
			return false
		}
		out = s
		return match(s)
	})
	return out
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func doDelete(t *testing.T, url string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete %s: %v", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

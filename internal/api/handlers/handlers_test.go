package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/webgames/backend/internal/api"
	"github.com/webgames/backend/internal/api/handlers"
	"github.com/webgames/backend/internal/config"
	"github.com/webgames/backend/internal/identity"
	"github.com/webgames/backend/internal/matchmaker"
	"github.com/webgames/backend/internal/msg"
	"github.com/webgames/backend/internal/session"
	"github.com/webgames/backend/internal/stream"
)

type env struct {
	router *gin.Engine
	deps   *handlers.Deps
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment:        "development",
		JWTSecret:          "test-secret",
		JWTExpiration:      time.Hour,
		GroupURL:           "http://127.0.0.1:1/v1/groups",
		MsgQueuesURL:       "http://127.0.0.1:1/v1/msgqueues",
		GameHost:           "localhost",
		GamePortRangeStart: 30000,
		GamePortRangeStop:  31000,
	}

	ident := identity.NewMemory()
	store := session.NewMemory()
	bus := msg.NewMemoryBus()
	deps := &handlers.Deps{
		Identity: ident,
		Session:  store,
		Match:    matchmaker.New(store, ident, bus, cfg),
		Bus:      bus,
		Hub:      stream.NewHub(bus),
		Cfg:      cfg,
	}

	router := gin.New()
	api.SetupRoutes(router, deps)
	return &env{router: router, deps: deps}
}

func (e *env) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer: "+token)
	}

	res := httptest.NewRecorder()
	e.router.ServeHTTP(res, req)

	var decoded map[string]any
	if res.Body.Len() > 0 {
		json.Unmarshal(res.Body.Bytes(), &decoded)
	}
	return res, decoded
}

// register+login a user, optionally promoted to admin, and return the token
func (e *env) login(t *testing.T, name string, admin bool) string {
	t.Helper()

	res, body := e.do(t, http.MethodPost, "/v1/auth/register", "",
		`{"username":"`+name+`","email":"`+name+`@example.com","password":"pw"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("register %s: %d %s", name, res.Code, res.Body)
	}

	if admin {
		user, err := e.deps.Identity.GetUserByLogin(context.Background(), name)
		if err != nil {
			t.Fatalf("find %s: %v", name, err)
		}
		if err := e.deps.Identity.SetUserAdmin(context.Background(), user.UserID, true); err != nil {
			t.Fatalf("promote %s: %v", name, err)
		}
	}

	res, body = e.do(t, http.MethodPost, "/v1/auth/", "", `{"login":"`+name+`","password":"pw"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", name, res.Code, res.Body)
	}
	return body["token"].(string)
}

func TestStatusEndpoint(t *testing.T) {
	e := newEnv(t)

	res, _ := e.do(t, http.MethodGet, "/status", "", "")
	if res.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", res.Code)
	}
	if res.Body.String() != "Server running\n" {
		t.Errorf("body = %q", res.Body)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	e := newEnv(t)
	e.login(t, "alice", false)

	res, body := e.do(t, http.MethodPost, "/v1/auth/", "", `{"login":"alice","password":"nope"}`)
	if res.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", res.Code)
	}
	if body["error"] != "Wrong password" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestLoginUnknownUser(t *testing.T) {
	e := newEnv(t)

	res, body := e.do(t, http.MethodPost, "/v1/auth/", "", `{"login":"ghost","password":"pw"}`)
	if res.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", res.Code)
	}
	if body["error"] != "User not found" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	e := newEnv(t)
	token := e.login(t, "alice", false)

	res, _ := e.do(t, http.MethodDelete, "/v1/auth/", token, "")
	if res.Code != http.StatusNoContent {
		t.Fatalf("logout: %d %s", res.Code, res.Body)
	}

	res, body := e.do(t, http.MethodGet, "/v1/groups/", token, "")
	if res.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", res.Code)
	}
	if body["error"] != "Revoked token" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestGameCreationRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	player := e.login(t, "alice", false)

	res, _ := e.do(t, http.MethodPost, "/v1/games/create", player, `{"name":"pong","capacity":2}`)
	if res.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", res.Code)
	}

	admin := e.login(t, "root", true)
	res, body := e.do(t, http.MethodPost, "/v1/games/create", admin, `{"name":"pong","capacity":2}`)
	if res.Code != http.StatusOK {
		t.Fatalf("create game: %d %s", res.Code, res.Body)
	}
	if body["gameid"] == nil {
		t.Error("no gameid in response")
	}
}

func TestUnknownGameLookup(t *testing.T) {
	e := newEnv(t)

	res, body := e.do(t, http.MethodGet, "/v1/games/byid/42", "", "")
	if res.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", res.Code)
	}
	if body["error"] != "Game ID 42 doesn't exist" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestGroupFlow(t *testing.T) {
	e := newEnv(t)
	admin := e.login(t, "root", true)
	alice := e.login(t, "alice", false)
	bob := e.login(t, "bob", false)

	res, body := e.do(t, http.MethodPost, "/v1/games/create", admin, `{"name":"pong","capacity":4}`)
	if res.Code != http.StatusOK {
		t.Fatalf("create game: %d %s", res.Code, res.Body)
	}

	// Alice opens a group, Bob joins
	res, body = e.do(t, http.MethodPost, "/v1/groups/create/1", alice, "")
	if res.Code != http.StatusOK {
		t.Fatalf("create group: %d %s", res.Code, res.Body)
	}
	groupID := body["groupid"].(string)

	res, _ = e.do(t, http.MethodPost, "/v1/groups/join/"+groupID, bob, "")
	if res.Code != http.StatusNoContent {
		t.Fatalf("join group: %d %s", res.Code, res.Body)
	}

	// Joining again is a precondition failure
	res, _ = e.do(t, http.MethodPost, "/v1/groups/join/"+groupID, bob, "")
	if res.Code != http.StatusBadRequest {
		t.Errorf("rejoin: %d, want 400", res.Code)
	}

	// Queueing before everyone is ready is refused
	res, body = e.do(t, http.MethodPost, "/v1/groups/start", alice, "")
	if res.Code != http.StatusBadRequest {
		t.Errorf("premature start: %d, want 400", res.Code)
	}
	if body["error"] != "The group is not ready yet" {
		t.Errorf("error = %v", body["error"])
	}

	res, _ = e.do(t, http.MethodPost, "/v1/groups/ready", alice, "")
	if res.Code != http.StatusNoContent {
		t.Fatalf("ready: %d %s", res.Code, res.Body)
	}
	res, _ = e.do(t, http.MethodPost, "/v1/groups/ready", bob, "")
	if res.Code != http.StatusNoContent {
		t.Fatalf("ready: %d %s", res.Code, res.Body)
	}

	res, body = e.do(t, http.MethodGet, "/v1/groups/", alice, "")
	if res.Code != http.StatusOK {
		t.Fatalf("state: %d %s", res.Code, res.Body)
	}
	if body["state"] != "group-check" {
		t.Errorf("state = %v", body["state"])
	}
	members := body["members"].([]any)
	if len(members) != 2 {
		t.Fatalf("members = %v", members)
	}
	for _, raw := range members {
		member := raw.(map[string]any)
		if member["ready"] != true {
			t.Errorf("member %v not ready", member["name"])
		}
	}

	res, _ = e.do(t, http.MethodPost, "/v1/groups/start", alice, "")
	if res.Code != http.StatusNoContent {
		t.Fatalf("start: %d %s", res.Code, res.Body)
	}
	res, body = e.do(t, http.MethodGet, "/v1/groups/", bob, "")
	if body["state"] != "in-queue" {
		t.Errorf("state = %v", body["state"])
	}

	// Bob leaves; Alice's group drops back out of the queue
	res, _ = e.do(t, http.MethodDelete, "/v1/groups/leave", bob, "")
	if res.Code != http.StatusNoContent {
		t.Fatalf("leave: %d %s", res.Code, res.Body)
	}
	res, _ = e.do(t, http.MethodGet, "/v1/groups/", bob, "")
	if res.Code != http.StatusNotFound {
		t.Errorf("state after leave: %d, want 404", res.Code)
	}
	res, body = e.do(t, http.MethodGet, "/v1/groups/", alice, "")
	if body["state"] != "group-check" {
		t.Errorf("state = %v, want group-check after the queue was vacated", body["state"])
	}
}

func TestInviteDelivery(t *testing.T) {
	e := newEnv(t)
	admin := e.login(t, "root", true)
	alice := e.login(t, "alice", false)
	e.login(t, "bob", false)

	e.do(t, http.MethodPost, "/v1/games/create", admin, `{"name":"pong","capacity":2}`)
	res, body := e.do(t, http.MethodPost, "/v1/groups/create/1", alice, "")
	if res.Code != http.StatusOK {
		t.Fatalf("create group: %d %s", res.Code, res.Body)
	}
	groupID := body["groupid"].(string)

	bob, err := e.deps.Identity.GetUserByLogin(context.Background(), "bob")
	if err != nil {
		t.Fatalf("find bob: %v", err)
	}
	sub, err := e.deps.Bus.Subscribe(context.Background(), msg.UserTopic(bob.UserID))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	res, _ = e.do(t, http.MethodPost, "/v1/groups/invite/byname/bob", alice, "")
	if res.Code != http.StatusNoContent {
		t.Fatalf("invite: %d %s", res.Code, res.Body)
	}

	select {
	case raw := <-sub.Messages():
		var event struct {
			Type string            `json:"type"`
			From map[string]string `json:"from"`
			To   map[string]string `json:"to"`
		}
		if err := json.Unmarshal(raw, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.Type != "group:invitation recieved" {
			t.Errorf("type = %s", event.Type)
		}
		if event.From["username"] != "alice" {
			t.Errorf("from = %v", event.From)
		}
		if event.To["groupid"] != groupID {
			t.Errorf("to.groupid = %s, want %s", event.To["groupid"], groupID)
		}
		if event.To["gameid"] != "1" || event.To["gamename"] != "pong" {
			t.Errorf("to = %v", event.To)
		}
	case <-time.After(time.Second):
		t.Error("invitation never reached bob's topic")
	}
}

func TestKickFromGroupTolerant(t *testing.T) {
	e := newEnv(t)
	admin := e.login(t, "root", true)

	// Kicking someone who is not in a group is still a 204
	res, _ := e.do(t, http.MethodDelete, "/v1/groups/kick/2e9a1fa6-54d4-4ee4-9034-95f697a6cd65", admin, "")
	if res.Code != http.StatusNoContent {
		t.Errorf("kick: %d, want 204", res.Code)
	}
}

func TestPartyStreamRequiresParty(t *testing.T) {
	e := newEnv(t)
	admin := e.login(t, "root", true)
	alice := e.login(t, "alice", false)

	e.do(t, http.MethodPost, "/v1/games/create", admin, `{"name":"pong","capacity":2}`)
	e.do(t, http.MethodPost, "/v1/groups/create/1", alice, "")

	res, body := e.do(t, http.MethodGet, "/v1/msgqueues/party", alice, "")
	if res.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", res.Code)
	}
	if body["error"] != "Player not in party" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestKickFromStreamValidatesKind(t *testing.T) {
	e := newEnv(t)
	admin := e.login(t, "root", true)

	res, _ := e.do(t, http.MethodDelete, "/v1/msgqueues/kick/2e9a1fa6-54d4-4ee4-9034-95f697a6cd65/from/nonsense", admin, "")
	if res.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", res.Code)
	}

	res, _ = e.do(t, http.MethodDelete, "/v1/msgqueues/kick/2e9a1fa6-54d4-4ee4-9034-95f697a6cd65/from/user", admin, "")
	if res.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", res.Code)
	}
}

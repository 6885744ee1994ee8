package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/park285/bonk-chess-server/internal/auth"
	"github.com/park285/bonk-chess-server/internal/bonk"
	"github.com/park285/bonk-chess-server/internal/lobby"
	"github.com/park285/bonk-chess-server/internal/match"
	"github.com/park285/bonk-chess-server/internal/msgcat"
	"github.com/park285/bonk-chess-server/internal/session"
	"github.com/park285/bonk-chess-server/pkg/bonkdto"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	router   *gin.Engine
	dir      *lobby.Directory
	sessions *session.MemoryStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	accounts := auth.NewService(auth.NewMemoryStore(), auth.WithCost(bcrypt.MinCost))
	dir := lobby.NewDirectory(lobby.Options{TickInterval: time.Hour})
	t.Cleanup(dir.Shutdown)
	sessions := session.NewMemoryStore(time.Hour)
	r := NewRouter(Deps{
		Directory:     dir,
		Registrar:     accounts,
		Authenticator: accounts,
		Sessions:      sessions,
		Catalog:       cat,
		ClientURL:     "http://localhost:5173",
		Version:       "test",
		Now:           func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	return &testAPI{router: r, dir: dir, sessions: sessions}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeAuth(t *testing.T, w *httptest.ResponseRecorder) bonkdto.AuthResponse {
	t.Helper()
	var out bonkdto.AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return out
}

func TestRegisterLoginLogout(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/auth/register", bonkdto.RegisterRequest{Username: "alice", Password: "password1", PasswordConfirm: "password2"}, nil)
	if w.Code != http.StatusBadRequest || decodeAuth(t, w).Error != "Passwords do not match." {
		t.Fatalf("mismatch: %d %s", w.Code, w.Body.String())
	}
	w = a.do(t, http.MethodPost, "/api/auth/register", bonkdto.RegisterRequest{Username: "al", Password: "password1", PasswordConfirm: "password1"}, nil)
	if got := decodeAuth(t, w).Error; got != "Username must be at least 4 characters." {
		t.Fatalf("short username: %q", got)
	}
	w = a.do(t, http.MethodPost, "/api/auth/register", bonkdto.RegisterRequest{Username: "alice", Password: "password1", PasswordConfirm: "password1"}, nil)
	if w.Code != http.StatusOK || !decodeAuth(t, w).Success {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}

	w = a.do(t, http.MethodPost, "/api/auth/login", bonkdto.LoginRequest{Username: "alice", Password: "nope-nope"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", w.Code)
	}
	w = a.do(t, http.MethodPost, "/api/auth/login", bonkdto.LoginRequest{Username: "alice", Password: "password1"}, nil)
	resp := decodeAuth(t, w)
	if w.Code != http.StatusOK || resp.Token == "" || resp.Username != "alice" {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	if _, err := a.sessions.Resolve(t.Context(), resp.Token); err != nil {
		t.Fatalf("token not stored: %v", err)
	}

	w = a.do(t, http.MethodPost, "/api/auth/logout", nil, map[string]string{"Authorization": "Bearer " + resp.Token})
	if w.Code != http.StatusOK {
		t.Fatalf("logout: %d", w.Code)
	}
	if _, err := a.sessions.Resolve(t.Context(), resp.Token); err == nil {
		t.Fatalf("token survived logout")
	}
}

func TestHealthAndRoot(t *testing.T) {
	a := newTestAPI(t)
	if _, _, err := a.dir.Create("c1", "alice", bonk.White, nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	w := a.do(t, http.MethodGet, "/health", nil, nil)
	var h bonkdto.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := bonkdto.HealthResponse{Status: "ok", Matches: 1, Waiting: 0, Timestamp: "2026-01-02T03:04:05Z"}
	if h != want {
		t.Fatalf("health = %+v", h)
	}
	w = a.do(t, http.MethodGet, "/", nil, nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("bonk-chess-server")) {
		t.Fatalf("root: %d %s", w.Code, w.Body.String())
	}
}

func TestMatchEndpoints(t *testing.T) {
	a := newTestAPI(t)
	m, _, err := a.dir.Create("c1", "alice", bonk.White, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	w := a.do(t, http.MethodGet, "/api/matches", nil, nil)
	var listing []lobby.Listing
	if err := json.Unmarshal(w.Body.Bytes(), &listing); err != nil || len(listing) != 1 || listing[0].Host != "alice" {
		t.Fatalf("listing = %s (%v)", w.Body.String(), err)
	}

	w = a.do(t, http.MethodGet, "/api/matches/"+m.ID(), nil, nil)
	var snap match.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.ID != m.ID() || snap.Status != match.StatusWaiting || snap.Board != bonk.InitialBoard() {
		t.Fatalf("snapshot = %+v", snap)
	}

	w = a.do(t, http.MethodGet, "/api/matches/"+m.ID()+"/board.png", nil, nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("board.png: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("board.png is not a png")
	}

	w = a.do(t, http.MethodGet, "/api/matches/missing", nil, nil)
	var de bonkdto.DomainError
	_ = json.Unmarshal(w.Body.Bytes(), &de)
	if w.Code != http.StatusNotFound || de.Code != bonkdto.CodeNotFound || de.Message != "Match missing was not found." {
		t.Fatalf("missing: %d %+v", w.Code, de)
	}
}

func TestCORS(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodOptions, "/api/auth/login", nil, map[string]string{"Origin": "http://localhost:5173"})
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("preflight: %d %v", w.Code, w.Header())
	}
	w = a.do(t, http.MethodGet, "/health", nil, map[string]string{"Origin": "http://evil.test"})
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin allowed")
	}
}

func TestRegisterWithoutRegistrar(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := lobby.NewDirectory(lobby.Options{})
	r := NewRouter(Deps{Directory: dir})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(`{"username":"alice","password":"password1","passwordConfirm":"password1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestLegalTargetsEndpoint(t *testing.T) {
	a := newTestAPI(t)
	m, _, err := a.dir.Create("c1", "alice", bonk.White, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, tc := range []struct {
		from string
		want []string
	}{
		{"g1", []string{"f3", "h3"}},
		{"e2", []string{"e4", "e3"}},
		{"a1", []string{}},
	} {
		w := a.do(t, http.MethodGet, "/api/matches/"+m.ID()+"/targets?from="+tc.from, nil, nil)
		var got bonkdto.TargetsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || w.Code != http.StatusOK {
			t.Fatalf("targets %s: %d %s (%v)", tc.from, w.Code, w.Body.String(), err)
		}
		if diff := cmp.Diff(bonkdto.TargetsResponse{From: tc.from, Targets: tc.want}, got); diff != "" {
			t.Fatalf("targets %s (-want +got):\n%s", tc.from, diff)
		}
	}

	w := a.do(t, http.MethodGet, "/api/matches/"+m.ID()+"/targets?from=z9", nil, nil)
	var de bonkdto.DomainError
	_ = json.Unmarshal(w.Body.Bytes(), &de)
	if w.Code != http.StatusBadRequest || de.Code != bonkdto.CodeBadRequest {
		t.Fatalf("bad square: %d %+v", w.Code, de)
	}
	if w := a.do(t, http.MethodGet, "/api/matches/missing/targets?from=e2", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing match: %d", w.Code)
	}
}

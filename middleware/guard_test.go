package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/notify"
	"github.com/MrEthical07/authcore/store/memory"
)

func newEngine(t *testing.T) *authcore.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := authcore.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserRepository(memory.NewUsers()).
		WithNotifier(notify.NewOutbox()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func TestGuard(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	if _, err := engine.Register(ctx, authcore.RegisterRequest{
		Email:    "nina@example.com",
		Username: "nina",
		Name:     "Nina",
		Password: "Str0ng!Pass",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	res, err := engine.Authenticate(ctx, "nina", "Str0ng!Pass")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	var seen *authcore.PublicUser
	h := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ProfileFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"refresh token", "Bearer " + res.Tokens.RefreshToken, http.StatusUnauthorized},
		{"access token", "Bearer " + res.Tokens.AccessToken, http.StatusNoContent},
		{"lowercase scheme", "bearer " + res.Tokens.AccessToken, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusNoContent && (seen == nil || seen.Email != "nina@example.com") {
				t.Fatalf("profile not stored in context: %+v", seen)
			}
		})
	}
}

func TestGuardNilEngine(t *testing.T) {
	h := Guard(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestClientInfo(t *testing.T) {
	cases := []struct {
		name       string
		trustProxy bool
		remote     string
		xff        string
		want       string
	}{
		{"remote addr", false, "203.0.113.7:5555", "", "203.0.113.7"},
		{"untrusted forwarded", false, "203.0.113.7:5555", "198.51.100.1", "203.0.113.7"},
		{"trusted forwarded", true, "10.0.0.1:5555", "198.51.100.1, 10.0.0.1", "198.51.100.1"},
		{"no port", false, "203.0.113.7", "", "203.0.113.7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ip, ua string
			h := ClientInfo(tc.trustProxy)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				ip = authcore.ClientIPFromContext(r.Context())
				ua = authcore.UserAgentFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			req.Header.Set("User-Agent", "curl/8.5")
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if ip != tc.want {
				t.Fatalf("ip = %q, want %q", ip, tc.want)
			}
			if ua != "curl/8.5" {
				t.Fatalf("ua = %q", ua)
			}
		})
	}
}

package authcore_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/jwt"
)

func TestRegisterAuthenticateRefreshScenario(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	reg, err := env.engine.Register(ctx, authcore.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Name:     "Alice",
		Password: "Str0ng!Pass",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.UserID == "" || reg.Email != "alice@example.com" {
		t.Fatalf("unexpected register result %+v", reg)
	}

	login := env.login(t, "alice@example.com", "Str0ng!Pass")
	if login.MFARequired || login.Tokens == nil {
		t.Fatalf("expected tokens, got %+v", login)
	}

	env.clock.Advance(time.Second)
	pair, err := env.engine.Refresh(ctx, login.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.AccessToken == login.Tokens.AccessToken || pair.RefreshToken == login.Tokens.RefreshToken {
		t.Fatal("refresh must mint a new pair")
	}

	verifier, err := jwt.NewManager(jwt.Config{
		AccessTTL:     authcore.DefaultConfig().JWT.AccessTTL,
		RefreshTTL:    authcore.DefaultConfig().JWT.RefreshTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(testSecret),
		Now:           env.clock.Now,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	for raw, typ := range map[string]jwt.TokenType{pair.AccessToken: jwt.TypeAccess, pair.RefreshToken: jwt.TypeRefresh} {
		claims, err := verifier.Verify(raw, typ)
		if err != nil {
			t.Fatalf("verify %s: %v", typ, err)
		}
		if claims.Subject != "alice@example.com" {
			t.Fatalf("unexpected subject %q", claims.Subject)
		}
	}

	// The old refresh token is not revoked.
	if _, err := env.engine.Refresh(ctx, login.Tokens.RefreshToken); err != nil {
		t.Fatalf("old refresh token should remain usable: %v", err)
	}
}

func TestRegisterStoresHashNotPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.register(t, "nora@example.com", "nora", "Str0ng!Pass")

	u, ok := env.users.Get(id)
	if !ok {
		t.Fatal("user not created")
	}
	if u.PasswordHash == "Str0ng!Pass" || u.MFAEnabled || u.Role != "user" {
		t.Fatalf("unexpected stored user %+v", u)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	if _, err := env.engine.Register(ctx, authcore.RegisterRequest{
		Email: "olga@example.com", Username: "olga", Name: "Olga", UniqueID: "529.982.247-25", Password: "Str0ng!Pass",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	cases := []struct {
		req   authcore.RegisterRequest
		field string
	}{
		{authcore.RegisterRequest{Email: "OLGA@example.com", Username: "olga2", Name: "Olga", Password: "Str0ng!Pass"}, "email"},
		{authcore.RegisterRequest{Email: "olga2@example.com", Username: "olga", Name: "Olga", Password: "Str0ng!Pass"}, "username"},
		{authcore.RegisterRequest{Email: "olga3@example.com", Username: "olga3", Name: "Olga", UniqueID: "52998224725", Password: "Str0ng!Pass"}, "unique_id"},
	}
	for _, tc := range cases {
		_, err := env.engine.Register(ctx, tc.req)
		var dup *authcore.DuplicateError
		if !errors.As(err, &dup) || dup.Field != tc.field {
			t.Fatalf("expected duplicate %s, got %v", tc.field, err)
		}
		if !errors.Is(err, authcore.ErrDuplicateRegistration) {
			t.Fatalf("duplicate error must match the sentinel: %v", err)
		}
	}
	if env.counter(authcore.MetricRegistrationDuplicate) != uint64(len(cases)) {
		t.Fatal("duplicates not counted")
	}
}

func TestRegisterPolicyViolation(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.engine.Register(context.Background(), authcore.RegisterRequest{
		Email: "pete@example.com", Username: "pete", Name: "Pete", Password: "abc",
	})
	var pe *authcore.PolicyError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PolicyError, got %v", err)
	}
	if !errors.Is(err, authcore.ErrPasswordPolicy) || len(pe.Errors) != 4 {
		t.Fatalf("expected four policy errors, got %+v", pe)
	}
}

func TestRegisterOversizedPasswordIsPolicyError(t *testing.T) {
	env := newTestEnv(t, nil)
	huge := "Str0ng!Pass" + strings.Repeat("x", 1100)

	if res := env.engine.ValidatePasswordStrength(huge); res.Valid {
		t.Fatal("strength check must reject a password the hasher refuses")
	}

	_, err := env.engine.Register(context.Background(), authcore.RegisterRequest{
		Email: "olga@example.com", Username: "olga", Name: "Olga", Password: huge,
	})
	var pe *authcore.PolicyError
	if !errors.As(err, &pe) || !errors.Is(err, authcore.ErrPasswordPolicy) {
		t.Fatalf("expected *PolicyError, got %v", err)
	}
	if len(pe.Errors) != 1 || !strings.Contains(pe.Errors[0], "at most 1024 bytes") {
		t.Fatalf("unexpected policy errors %v", pe.Errors)
	}
	if env.counter(authcore.MetricRegistrationPolicyRejected) != 1 {
		t.Fatal("oversized password not counted as a policy rejection")
	}
}

func TestRegisterFieldValidation(t *testing.T) {
	env := newTestEnv(t, func(c *authcore.Config) { c.Account.RequireUniqueID = false })

	base := func() authcore.RegisterRequest {
		return authcore.RegisterRequest{Email: "quinn@example.com", Username: "quinn", Name: "Quinn", Password: "Str0ng!Pass"}
	}
	cases := []struct {
		name   string
		mutate func(*authcore.RegisterRequest)
		field  string
	}{
		{"missing email", func(r *authcore.RegisterRequest) { r.Email = " " }, "email"},
		{"display name email", func(r *authcore.RegisterRequest) { r.Email = "Quinn <quinn@example.com>" }, "email"},
		{"not an email", func(r *authcore.RegisterRequest) { r.Email = "quinn.example.com" }, "email"},
		{"short username", func(r *authcore.RegisterRequest) { r.Username = "qu" }, "username"},
		{"username charset", func(r *authcore.RegisterRequest) { r.Username = "quinn smith" }, "username"},
		{"short name", func(r *authcore.RegisterRequest) { r.Name = "Q" }, "name"},
		{"markup in name", func(r *authcore.RegisterRequest) { r.Name = "<b>Quinn</b>" }, "name"},
		{"short role", func(r *authcore.RegisterRequest) { r.Role = "x" }, "role"},
		{"short creator", func(r *authcore.RegisterRequest) { r.CreatedBy = "x" }, "created_by"},
		{"bad check digit", func(r *authcore.RegisterRequest) { r.UniqueID = "529.982.247-26" }, "unique_id"},
		{"repeated digits", func(r *authcore.RegisterRequest) { r.UniqueID = "111.111.111-11" }, "unique_id"},
		{"letters in id", func(r *authcore.RegisterRequest) { r.UniqueID = "5299822472a" }, "unique_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base()
			tc.mutate(&req)
			_, err := env.engine.Register(context.Background(), req)
			var re *authcore.RegistrationError
			if !errors.As(err, &re) || re.Field != tc.field {
				t.Fatalf("expected registration error on %s, got %v", tc.field, err)
			}
			if !errors.Is(err, authcore.ErrRegistrationInvalid) {
				t.Fatalf("registration error must match the sentinel: %v", err)
			}
		})
	}
}

func TestRegisterAcceptsApostropheAndNormalizesID(t *testing.T) {
	env := newTestEnv(t, nil)
	res, err := env.engine.Register(context.Background(), authcore.RegisterRequest{
		Email:     " Ryan.OBrien@Example.com ",
		Username:  "ryan.o-brien",
		Name:      "Ryan O'Brien & Sons",
		UniqueID:  "529.982.247-25",
		Role:      "analyst",
		CreatedBy: "admin@example.com",
		Password:  "Str0ng!Pass",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	u, _ := env.users.Get(res.UserID)
	if u.Email != "ryan.obrien@example.com" || u.UniqueID != "52998224725" || u.Role != "analyst" {
		t.Fatalf("unexpected normalisation: %+v", u)
	}
}

func TestRegisterWithoutUniqueIDValidation(t *testing.T) {
	env := newTestEnv(t, func(c *authcore.Config) { c.Account.ValidateUniqueID = false })
	res, err := env.engine.Register(context.Background(), authcore.RegisterRequest{
		Email: "sam@example.com", Username: "sam", Name: "Sam", UniqueID: "EMP-0042", Password: "Str0ng!Pass",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	u, _ := env.users.Get(res.UserID)
	if u.UniqueID != "EMP-0042" {
		t.Fatalf("unique id should be kept verbatim, got %q", u.UniqueID)
	}
}

type stubLimiter struct {
	deny  map[authcore.LimitAction]bool
	keys  []string
	fails error
}

func (l *stubLimiter) Allow(_ context.Context, action authcore.LimitAction, key string) (bool, error) {
	l.keys = append(l.keys, string(action)+"="+key)
	if l.fails != nil {
		return false, l.fails
	}
	return !l.deny[action], nil
}

func TestLimiterGatesEntryPoints(t *testing.T) {
	lim := &stubLimiter{deny: map[authcore.LimitAction]bool{}}
	env := newTestEnv(t, nil, func(b *authcore.Builder) { b.WithLimiter(lim) })
	env.register(t, "tess@example.com", "tess", "Str0ng!Pass")
	ctx := authcore.WithClientIP(context.Background(), "198.51.100.2")

	lim.deny[authcore.LimitLogin] = true
	if _, err := env.engine.Authenticate(ctx, "tess", "Str0ng!Pass"); !errors.Is(err, authcore.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	lim.deny[authcore.LimitPasswordReset] = true
	if _, err := env.engine.RequestPasswordReset(ctx, "tess@example.com"); !errors.Is(err, authcore.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	lim.deny[authcore.LimitRegister] = true
	if _, err := env.engine.Register(ctx, authcore.RegisterRequest{Email: "u@example.com"}); !errors.Is(err, authcore.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	last := lim.keys[len(lim.keys)-1]
	if last != "register=id:u@example.com" {
		t.Fatalf("unexpected limiter key %q", last)
	}

	lim.deny = map[authcore.LimitAction]bool{}
	lim.keys = nil
	if _, err := env.engine.Authenticate(ctx, "tess", "Str0ng!Pass"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(lim.keys) != 2 || lim.keys[0] != "login=id:tess" || lim.keys[1] != "login=ip:198.51.100.2" {
		t.Fatalf("expected identifier and IP checks, got %v", lim.keys)
	}
	lim.keys = nil
	if _, err := env.engine.Authenticate(context.Background(), "tess", "Str0ng!Pass"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(lim.keys) != 1 {
		t.Fatalf("no client IP means one check, got %v", lim.keys)
	}
	if env.counter(authcore.MetricLoginRateLimited) != 1 {
		t.Fatal("rate limited login not counted")
	}

	lim.fails = errors.New("limiter backend down")
	if _, err := env.engine.Authenticate(ctx, "tess", "Str0ng!Pass"); !errors.Is(err, authcore.ErrStorageUnavailable) {
		t.Fatalf("failing limiter must reject, got %v", err)
	}
}

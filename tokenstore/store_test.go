package tokenstore

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "gs", DefaultKeys(), opts...), mr
}

func testKDF() KDFConfig {
	return KDFConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1}
}

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if !got.Empty() {
		t.Fatalf("expected empty store, got %+v", got)
	}

	pair := Tokens{AccessToken: "a1", RefreshToken: "r1"}
	if err := s.Save(ctx, pair); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, _ = s.Load(ctx); got != pair {
		t.Fatalf("expected %+v, got %+v", pair, got)
	}

	rotated := Tokens{AccessToken: "a2", RefreshToken: "r2"}
	if err := s.Save(ctx, rotated); err != nil {
		t.Fatalf("save rotated: %v", err)
	}
	if got, _ = s.Load(ctx); got != rotated {
		t.Fatalf("expected %+v, got %+v", rotated, got)
	}

	if err := s.Save(ctx, Tokens{AccessToken: "a3"}); err != nil {
		t.Fatalf("save access only: %v", err)
	}
	if got, _ = s.Load(ctx); got.RefreshToken != "" || got.AccessToken != "a3" {
		t.Fatalf("expected refresh slot removed, got %+v", got)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("second clear must be idempotent: %v", err)
	}
	if got, _ = s.Load(ctx); !got.Empty() {
		t.Fatalf("expected empty after clear, got %+v", got)
	}
}

func TestMemoryStoreContract(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStoreContract(t *testing.T) {
	s, _ := newRedisStore(t)
	exerciseStore(t, s)
}

func TestRedisStoreSharedBetweenInstances(t *testing.T) {
	s, mr := newRedisStore(t)
	other := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "gs", DefaultKeys())

	if err := s.Save(context.Background(), Tokens{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := other.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.RefreshToken != "r" {
		t.Fatalf("expected shared refresh token, got %+v", got)
	}
	if !mr.Exists("gs:accessToken") || !mr.Exists("gs:refreshToken") {
		t.Fatal("expected both prefixed keys in redis")
	}
}

func TestRedisStoreTTL(t *testing.T) {
	s, mr := newRedisStore(t, WithRedisTTL(60_000))
	if err := s.Save(context.Background(), Tokens{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("gs:refreshToken"); ttl <= 0 {
		t.Fatalf("expected ttl on refresh key, got %v", ttl)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()
	if _, err := s.Load(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFileStoreContract(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "tokens.bin"), []byte("correct horse battery"), DefaultKeys(), testKDF())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	exerciseStore(t, s)
}

func TestFileStoreEncryptsAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.bin")
	s, err := NewFileStore(path, []byte("correct horse battery"), DefaultKeys(), testKDF())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := s.Save(context.Background(), Tokens{AccessToken: "plain-access", RefreshToken: "plain-refresh"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if bytes.Contains(raw, []byte("plain-refresh")) {
		t.Fatal("refresh token stored in plaintext")
	}

	wrong, _ := NewFileStore(path, []byte("wrong passphrase!!"), DefaultKeys(), testKDF())
	if _, err := wrong.Load(context.Background()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt with wrong passphrase, got %v", err)
	}

	reopened, _ := NewFileStore(path, []byte("correct horse battery"), DefaultKeys(), testKDF())
	got, err := reopened.Load(context.Background())
	if err != nil {
		t.Fatalf("reopen load: %v", err)
	}
	if got.RefreshToken != "plain-refresh" {
		t.Fatalf("unexpected tokens after reopen: %+v", got)
	}
}

func TestFileStoreRejectsWeakConfig(t *testing.T) {
	if _, err := NewFileStore("x", []byte("short"), DefaultKeys(), testKDF()); err == nil {
		t.Fatal("expected short passphrase to fail")
	}
	if _, err := NewFileStore("x", []byte("long enough pass"), DefaultKeys(), KDFConfig{}); err == nil {
		t.Fatal("expected zero kdf config to fail")
	}
}

func TestSQLiteStoreContract(t *testing.T) {
	s, err := OpenSQLiteStore(context.Background(), ":memory:", DefaultKeys())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestCookieMirror(t *testing.T) {
	m, err := NewCookieMirror("https://app.example.com", CookieOptions{Secure: true, SameSite: http.SameSiteStrictMode})
	if err != nil {
		t.Fatalf("new mirror: %v", err)
	}
	m.Mirror(Tokens{AccessToken: "a", RefreshToken: "r"})
	if got := m.Tokens(); got.AccessToken != "a" || got.RefreshToken != "r" {
		t.Fatalf("unexpected mirrored tokens: %+v", got)
	}

	m.Clear()
	if got := m.Tokens(); !got.Empty() {
		t.Fatalf("expected cookies cleared, got %+v", got)
	}
}

func TestCookieMirrorRejectsInsecureOrigin(t *testing.T) {
	if _, err := NewCookieMirror("http://app.example.com", CookieOptions{Secure: true}); err == nil {
		t.Fatal("expected secure cookies on http origin to fail")
	}
}

func TestCookieMirrorWriteAndRead(t *testing.T) {
	m, err := NewCookieMirror("https://app.example.com", CookieOptions{Secure: true})
	if err != nil {
		t.Fatalf("new mirror: %v", err)
	}
	rec := httptest.NewRecorder()
	m.WriteCookies(rec, Tokens{AccessToken: "a", RefreshToken: "r"})

	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if !c.Secure || !c.HttpOnly || c.SameSite != http.SameSiteStrictMode {
			t.Fatalf("cookie %s missing attributes: %+v", c.Name, c)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	if got := TokensFromRequest(req, Keys{}); got.AccessToken != "a" || got.RefreshToken != "r" {
		t.Fatalf("unexpected tokens from request: %+v", got)
	}
}

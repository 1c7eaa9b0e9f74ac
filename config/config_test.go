package config

import (
	"net/http"
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()

	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH", "refresh-secret")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(db:3306)/blog?parseTime=true")
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STRING", "value")
	if got := getEnv("TEST_STRING", "default"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
	if got := getEnv("MISSING_STRING", "default"); got != "default" {
		t.Fatalf("expected default, got %q", got)
	}

	t.Setenv("TEST_DURATION", "30")
	if got := getDurationEnv("TEST_DURATION", 5*time.Minute); got != 30*time.Minute {
		t.Fatalf("expected 30m, got %v", got)
	}
	t.Setenv("TEST_DURATION", "invalid")
	if got := getDurationEnv("TEST_DURATION", 5*time.Minute); got != 5*time.Minute {
		t.Fatalf("expected default duration, got %v", got)
	}

	t.Setenv("TEST_SECONDS", "15")
	if got := getSecondsEnv("TEST_SECONDS", time.Second); got != 15*time.Second {
		t.Fatalf("expected 15s, got %v", got)
	}

	t.Setenv("TEST_BOOL", "true")
	if got := getBoolEnv("TEST_BOOL", false); got != true {
		t.Fatalf("expected true, got %v", got)
	}
	t.Setenv("TEST_BOOL", "invalid")
	if got := getBoolEnv("TEST_BOOL", true); got != true {
		t.Fatalf("expected default bool, got %v", got)
	}

	t.Setenv("TEST_INT", "42")
	if got := getIntEnv("TEST_INT", 5); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("TEST_INT", "invalid")
	if got := getIntEnv("TEST_INT", 5); got != 5 {
		t.Fatalf("expected default int, got %d", got)
	}

	t.Setenv("TEST_LIST", " https://blog.example , ,http://localhost:3000")
	if got := getListEnv("TEST_LIST", nil); len(got) != 2 || got[0] != "https://blog.example" || got[1] != "http://localhost:3000" {
		t.Fatalf("unexpected list: %v", got)
	}
	t.Setenv("TEST_LIST", " , ")
	if got := getListEnv("TEST_LIST", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("expected default list, got %v", got)
	}
}

func TestParseSameSite(t *testing.T) {
	cases := map[string]http.SameSite{
		"strict":  http.SameSiteStrictMode,
		"Lax":     http.SameSiteLaxMode,
		"none":    http.SameSiteNoneMode,
		"garbage": http.SameSiteNoneMode,
	}
	for in, want := range cases {
		if got := parseSameSite(in); got != want {
			t.Fatalf("parseSameSite(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd failed: %v", err)
	}
	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origDir)
	})

	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH", "refresh-secret")
	t.Setenv("MYSQL_DSN", "dsn")
	if cfg, err := Load(); err == nil || cfg != nil {
		t.Fatalf("expected error when JWT_SECRET is missing")
	}
}

func TestLoadRequiresRefreshSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_REFRESH", "")
	if cfg, err := Load(); err == nil || cfg != nil {
		t.Fatalf("expected error when JWT_REFRESH is missing")
	}
}

func TestLoadRejectsSharedSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_REFRESH", "access-secret")
	if cfg, err := Load(); err == nil || cfg != nil {
		t.Fatalf("expected error when JWT_REFRESH equals JWT_SECRET")
	}
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MYSQL_DSN", "")
	if cfg, err := Load(); err == nil || cfg != nil {
		t.Fatalf("expected error when MYSQL_DSN is missing")
	}
}

func TestLoadRejectsUnknownOTPStore(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OTP_STORE", "memcached")
	if cfg, err := Load(); err == nil || cfg != nil {
		t.Fatalf("expected error for unknown OTP_STORE")
	}
}

func TestLoadRejectsUnknownMailTransport(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAIL_TRANSPORT", "pigeon")
	if cfg, err := Load(); err == nil || cfg != nil {
		t.Fatalf("expected error for unknown MAIL_TRANSPORT")
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	for _, key := range []string{
		"HTTP_PORT", "JWT_ACCESS_TOKEN_TTL", "JWT_REFRESH_TOKEN_TTL", "OTP_TTL", "OTP_STORE",
		"MAIL_TRANSPORT", "PASSWORD_BCRYPT_COST", "PASSWORD_MIN_LENGTH", "REFRESH_COOKIE_SAMESITE",
		"REFRESH_COOKIE_SECURE", "REFRESH_COOKIE_NAME",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTP.Port != "8080" {
		t.Fatalf("expected default http port, got %q", cfg.HTTP.Port)
	}
	if cfg.JWT.AccessTokenTTL != 10*time.Minute {
		t.Fatalf("expected 10m access ttl, got %v", cfg.JWT.AccessTokenTTL)
	}
	if cfg.JWT.RefreshTokenTTL != 24*time.Hour {
		t.Fatalf("expected 24h refresh ttl, got %v", cfg.JWT.RefreshTokenTTL)
	}
	if cfg.OTP.TTL != 5*time.Minute || cfg.OTP.Store != OTPStoreMySQL {
		t.Fatalf("unexpected otp config: %+v", cfg.OTP)
	}
	if cfg.Mail.Transport != MailTransportLog {
		t.Fatalf("expected log transport, got %q", cfg.Mail.Transport)
	}
	if cfg.Password.BcryptCost != 13 || cfg.Password.MinLength != 6 {
		t.Fatalf("unexpected password config: %+v", cfg.Password)
	}
	if cfg.Cookie.Name != "refresh_token" || !cfg.Cookie.Secure || cfg.Cookie.SameSite != http.SameSiteNoneMode {
		t.Fatalf("unexpected cookie config: %+v", cfg.Cookie)
	}
}

func TestLoadSuccess(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("HTTP_REQUEST_TIMEOUT", "5")
	t.Setenv("JWT_ACCESS_TOKEN_TTL", "20")
	t.Setenv("JWT_REFRESH_TOKEN_TTL", "60")
	t.Setenv("OTP_TTL", "3")
	t.Setenv("OTP_STORE", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("MAIL_TRANSPORT", "queue")
	t.Setenv("MAIL_QUEUE", "mail.custom")
	t.Setenv("PASSWORD_BCRYPT_COST", "10")
	t.Setenv("REFRESH_COOKIE_SAMESITE", "strict")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DSN() != "user:pass@tcp(db:3306)/blog?parseTime=true" {
		t.Fatalf("unexpected dsn %q", cfg.DSN())
	}
	if cfg.HTTP.Port != "8081" || cfg.HTTP.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected http config: %+v", cfg.HTTP)
	}
	if cfg.JWT.AccessTokenTTL != 20*time.Minute || cfg.JWT.RefreshTokenTTL != time.Hour {
		t.Fatalf("unexpected jwt ttls: %+v", cfg.JWT)
	}
	if cfg.OTP.Store != OTPStoreRedis || cfg.OTP.TTL != OTPCodeTTL {
		t.Fatalf("unexpected otp config: %+v", cfg.OTP)
	}
	if cfg.Redis.Addr != "cache:6379" || cfg.Redis.DB != 2 {
		t.Fatalf("unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.Mail.Transport != MailTransportQueue || cfg.Mail.Queue != "mail.custom" {
		t.Fatalf("unexpected mail config: %+v", cfg.Mail)
	}
	if cfg.Password.BcryptCost != 10 {
		t.Fatalf("expected bcrypt cost 10, got %d", cfg.Password.BcryptCost)
	}
	if cfg.Cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("expected strict same site, got %v", cfg.Cookie.SameSite)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected debug log level, got %q", cfg.Log.Level)
	}
}

//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const defaultHTTPBase = "http://localhost:8080"

type envelope struct {
	RequestStatus int             `json:"requestStatus"`
	Message       string          `json:"message"`
	FieldError    string          `json:"fieldError"`
	Data          json.RawMessage `json:"data"`
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(t *testing.T, baseURL string) *httpClient {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &httpClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

func (c *httpClient) do(t *testing.T, method, path, accessToken string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}
	return resp, bodyBytes
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/auth/refresh-token")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func TestAuthE2E_HTTPFlow(t *testing.T) {
	httpBase := os.Getenv("AUTH_HTTP_URL")
	if httpBase == "" {
		httpBase = defaultHTTPBase
	}
	if err := waitForHTTP(httpBase, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}

	client := newHTTPClient(t, httpBase)

	state := struct {
		email       string
		password    string
		newPassword string
		userID      uint64
		accessToken string
	}{
		email:       fmt.Sprintf("e2e%d@example.com", time.Now().UnixNano()),
		password:    "secret1",
		newPassword: "secret2",
	}

	abort := false
	fail := func(t *testing.T, format string, args ...any) {
		abort = true
		t.Fatalf(format, args...)
	}

	step := func(name string, fn func(t *testing.T)) {
		t.Run(name, func(t *testing.T) {
			if abort {
				t.Skip("previous step failed")
			}
			fn(t)
		})
	}

	login := func(t *testing.T, password string) (int, envelope) {
		resp, body := client.do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"email":    state.email,
			"password": password,
		})
		var env envelope
		_ = json.Unmarshal(body, &env)
		return resp.StatusCode, env
	}

	step("LoginBeforeRegister", func(t *testing.T) {
		if code, _ := login(t, state.password); code != http.StatusNotFound {
			fail(t, "expected login before register to fail with 404, got %d", code)
		}
	})

	step("Register", func(t *testing.T) {
		resp, body := client.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"email":       state.email,
			"displayName": "e2euser",
			"password":    state.password,
		})
		if resp.StatusCode != http.StatusCreated {
			fail(t, "register status: %d body: %s", resp.StatusCode, string(body))
		}
	})

	step("RegisterShortDisplayName", func(t *testing.T) {
		resp, body := client.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"email":       "short-" + state.email,
			"displayName": "abc",
			"password":    state.password,
		})
		var env envelope
		_ = json.Unmarshal(body, &env)
		if resp.StatusCode != http.StatusBadRequest || env.FieldError != "displayName" {
			fail(t, "expected displayName validation failure, got %d %s", resp.StatusCode, string(body))
		}
	})

	step("RegisterDuplicate", func(t *testing.T) {
		resp, _ := client.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"email":       state.email,
			"displayName": "e2euser",
			"password":    state.password,
		})
		if resp.StatusCode != http.StatusConflict {
			fail(t, "expected duplicate register conflict, got %d", resp.StatusCode)
		}
	})

	step("LoginWrongPassword", func(t *testing.T) {
		if code, _ := login(t, "wrong-password"); code != http.StatusUnauthorized {
			fail(t, "expected wrong password to fail with 401, got %d", code)
		}
	})

	step("Login", func(t *testing.T) {
		code, env := login(t, state.password)
		if code != http.StatusOK {
			fail(t, "login status: %d", code)
		}

		var data struct {
			ID          uint64 `json:"id"`
			AccessToken string `json:"accessToken"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			fail(t, "login unmarshal failed: %v", err)
		}
		if data.AccessToken == "" || data.ID == 0 {
			fail(t, "expected profile and access token, got %+v", data)
		}
		state.userID = data.ID
		state.accessToken = data.AccessToken
	})

	step("Me", func(t *testing.T) {
		resp, body := client.do(t, http.MethodGet, "/users/me", state.accessToken, nil)
		if resp.StatusCode != http.StatusOK {
			fail(t, "me status: %d body: %s", resp.StatusCode, string(body))
		}
		if bytes.Contains(bytes.ToLower(body), []byte("password")) {
			fail(t, "profile leaks the password: %s", string(body))
		}
	})

	step("RefreshToken", func(t *testing.T) {
		resp, body := client.do(t, http.MethodGet, "/auth/refresh-token", "", nil)
		if resp.StatusCode != http.StatusOK {
			fail(t, "refresh status: %d body: %s", resp.StatusCode, string(body))
		}
		var refreshRes struct {
			AccessToken string `json:"accessToken"`
		}
		if err := json.Unmarshal(body, &refreshRes); err != nil || refreshRes.AccessToken == "" {
			fail(t, "expected new access token, got %s", string(body))
		}
		state.accessToken = refreshRes.AccessToken
	})

	step("UpdateProfile", func(t *testing.T) {
		resp, body := client.do(t, http.MethodPut, "/users/me", state.accessToken, map[string]string{
			"phoneNumber": "0123456789",
			"gender":      "female",
		})
		if resp.StatusCode != http.StatusOK {
			fail(t, "update profile status: %d body: %s", resp.StatusCode, string(body))
		}
	})

	step("AdminRouteForbidden", func(t *testing.T) {
		resp, _ := client.do(t, http.MethodGet, "/users/total", state.accessToken, nil)
		if resp.StatusCode != http.StatusForbidden {
			fail(t, "expected non-admin to be rejected, got %d", resp.StatusCode)
		}
	})

	step("ChangePassword", func(t *testing.T) {
		resp, body := client.do(t, http.MethodPut, "/users/me/password", state.accessToken, map[string]string{
			"oldPassword": state.password,
			"newPassword": state.newPassword,
		})
		if resp.StatusCode != http.StatusOK {
			fail(t, "change password status: %d body: %s", resp.StatusCode, string(body))
		}
		state.password = state.newPassword
	})

	step("RefreshRevokedByPasswordChange", func(t *testing.T) {
		resp, _ := client.do(t, http.MethodGet, "/auth/refresh-token", "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			fail(t, "expected revoked refresh token to fail, got %d", resp.StatusCode)
		}
	})

	step("SendOTP", func(t *testing.T) {
		resp, body := client.do(t, http.MethodPost, "/auth/send-otp", "", map[string]string{"email": state.email})
		if resp.StatusCode != http.StatusOK {
			fail(t, "send otp status: %d body: %s", resp.StatusCode, string(body))
		}
	})

	step("SendOTPPending", func(t *testing.T) {
		resp, body := client.do(t, http.MethodPost, "/auth/send-otp", "", map[string]string{"email": state.email})
		var env envelope
		_ = json.Unmarshal(body, &env)
		if resp.StatusCode != http.StatusOK || env.RequestStatus != 2 {
			fail(t, "expected info envelope for pending code, got %d %s", resp.StatusCode, string(body))
		}
	})

	step("VerifyOTPWrongCode", func(t *testing.T) {
		resp, _ := client.do(t, http.MethodPost, "/auth/verify-otp", "", map[string]string{
			"email": state.email,
			"otp":   "00000",
		})
		if resp.StatusCode != http.StatusBadRequest {
			fail(t, "expected wrong code to fail, got %d", resp.StatusCode)
		}
	})

	step("ResetPassword", func(t *testing.T) {
		dsn := os.Getenv("AUTH_E2E_MYSQL_DSN")
		if dsn == "" {
			t.Skip("AUTH_E2E_MYSQL_DSN not set; cannot read the issued code")
		}

		db, err := sql.Open("mysql", dsn)
		if err != nil {
			fail(t, "open mysql: %v", err)
		}
		defer db.Close()

		var code string
		if err = db.QueryRow("SELECT code FROM one_time_codes WHERE email = ?", state.email).Scan(&code); err != nil {
			fail(t, "read code: %v", err)
		}

		resp, body := client.do(t, http.MethodPut, "/auth/reset-password", "", map[string]string{
			"email":    state.email,
			"otp":      code,
			"password": "secret3",
		})
		if resp.StatusCode != http.StatusOK {
			fail(t, "reset status: %d body: %s", resp.StatusCode, string(body))
		}
		state.password = "secret3"

		if loginCode, _ := login(t, state.password); loginCode != http.StatusOK {
			fail(t, "expected login with reset password, got %d", loginCode)
		}
	})

	step("Logout", func(t *testing.T) {
		resp, body := client.do(t, http.MethodPost, "/auth/logout", "", map[string]uint64{"userId": state.userID})
		if resp.StatusCode != http.StatusOK {
			fail(t, "logout status: %d body: %s", resp.StatusCode, string(body))
		}

		refresh, _ := client.do(t, http.MethodGet, "/auth/refresh-token", "", nil)
		if refresh.StatusCode != http.StatusUnauthorized {
			fail(t, "expected refresh after logout to fail, got %d", refresh.StatusCode)
		}
	})
}

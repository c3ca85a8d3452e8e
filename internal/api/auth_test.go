package api

import (
	"net/http"
	"testing"
)

func TestBearerAuth(t *testing.T) {
	env := newTestEnv(t, "s3cret")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusForbidden},
		{"prefix of token", "Bearer s3c", http.StatusForbidden},
		{"valid token", "Bearer s3cret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/v1/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("GET /v1/stats: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestBearerAuthProtectsDecrypt(t *testing.T) {
	env := newTestEnv(t, "s3cret")
	req := map[string]string{"encrypted_signature": "abc", "player_url": "/s/player/good/base.js"}

	status, body := env.post(t, "/decrypt_signature", "", req)
	if status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", status)
	}
	if body["error"] != errInvalidToken {
		t.Errorf("error = %q, want %q", body["error"], errInvalidToken)
	}
	if n := env.fetches.Load(); n != 0 {
		t.Errorf("upstream fetches = %d, want 0", n)
	}

	if status, _ := env.post(t, "/decrypt_signature", "s3cret", req); status != http.StatusOK {
		t.Errorf("authorized status = %d, want 200", status)
	}
}

func TestHealthzSkipsAuth(t *testing.T) {
	env := newTestEnv(t, "s3cret")

	resp, err := http.Get(env.ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAuthDisabledWithoutToken(t *testing.T) {
	env := newTestEnv(t, "")

	resp, err := http.Get(env.ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET /v1/stats: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

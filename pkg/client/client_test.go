package client

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := SaveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: expiry}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	tok, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if tok.AccessToken != "a" || tok.RefreshToken != "r" || !tok.Expiry.Equal(expiry) {
		t.Errorf("token: got %+v", tok)
	}

	st := Status(path)
	if !st.Present || !st.Refreshing || !st.Expiry.Equal(expiry) {
		t.Errorf("status: got %+v", st)
	}
}

func TestStatus_Missing(t *testing.T) {
	if st := Status(filepath.Join(t.TempDir(), "token.json")); st.Present {
		t.Errorf("status: got %+v, want not present", st)
	}
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
	}{
		{name: "success", query: "?state=s&code=c123", wantStatus: http.StatusOK, wantCode: "c123"},
		{name: "bad state", query: "?state=x&code=c123", wantStatus: http.StatusBadRequest},
		{name: "provider error", query: "?state=s&error=access_denied", wantStatus: http.StatusBadRequest},
		{name: "no code", query: "?state=s", wantStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			codeChan := make(chan string, 1)
			errChan := make(chan error, 1)
			h := callbackHandler("s", codeChan, errChan)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, callbackPath+tc.query, nil))

			if rec.Code != tc.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantCode != "" {
				if got := <-codeChan; got != tc.wantCode {
					t.Errorf("code: got %q, want %q", got, tc.wantCode)
				}
				return
			}
			if len(errChan) != 1 {
				t.Errorf("errors: got %d, want 1", len(errChan))
			}
		})
	}
}

func TestGenerateState(t *testing.T) {
	a, err := generateState()
	if err != nil {
		t.Fatal(err)
	}
	b, err := generateState()
	if err != nil {
		t.Fatal(err)
	}
	if a == b || len(a) == 0 {
		t.Errorf("states: got %q and %q, want distinct non-empty", a, b)
	}
}

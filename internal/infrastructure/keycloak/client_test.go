package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vn.io.arda/directory/internal/domain"
)

func decodeJSONBody(t *testing.T, r *http.Request, into any) {
	t.Helper()
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
}

func TestServiceToken(t *testing.T) {
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/realms/oauth-demo/protocol/openid-connect/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"grant_type":    r.PostFormValue("grant_type"),
			"client_id":     r.PostFormValue("client_id"),
			"client_secret": r.PostFormValue("client_secret"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"svc-token-1","expires_in":60}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "oauth-demo", "directory-gateway", "s3cret")
	tok, err := c.ServiceToken(context.Background())
	if err != nil {
		t.Fatalf("ServiceToken: %v", err)
	}
	if tok != "svc-token-1" {
		t.Errorf("token = %q", tok)
	}
	if gotForm["grant_type"] != "client_credentials" {
		t.Errorf("grant_type = %q", gotForm["grant_type"])
	}
	if gotForm["client_id"] != "directory-gateway" || gotForm["client_secret"] != "s3cret" {
		t.Errorf("client credentials not forwarded: %v", gotForm)
	}
}

func TestServiceToken_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "oauth-demo", "directory-gateway", "wrong")
	if _, err := c.ServiceToken(context.Background()); !errors.Is(err, domain.ErrUpstreamAuth) {
		t.Fatalf("err = %v, want ErrUpstreamAuth", err)
	}
}

func TestListUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/realms/oauth-demo/users" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer svc-token-1" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"1","email":"admin@test.com","firstName":"Super","lastName":"Admin","attributes":{"company":["super"]}},
			{"id":"2","email":"user1@abc.com","firstName":"User","lastName":"One","attributes":{"company":["abc"]}},
			{"id":"3","email":"user2@abc.com","firstName":"User","lastName":"Two"}
		]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "oauth-demo", "directory-gateway", "s3cret")
	users, err := c.ListUsers(context.Background(), "svc-token-1")
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("got %d users", len(users))
	}
	if users[0].Company != "super" || users[1].Company != "abc" {
		t.Errorf("company attributes not mapped: %+v", users[:2])
	}
	if users[2].Company != "" {
		t.Errorf("missing attribute should map to empty company, got %q", users[2].Company)
	}
	if users[1].FirstName != "User" || users[1].LastName != "One" {
		t.Errorf("names not mapped: %+v", users[1])
	}
}

func TestListUsers_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, "oauth-demo", "directory-gateway", "s3cret")
	if _, err := c.ListUsers(context.Background(), "svc-token-1"); !errors.Is(err, domain.ErrUpstreamFetch) {
		t.Fatalf("err = %v, want ErrUpstreamFetch", err)
	}
}

func TestFetchUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/realms/oauth-demo/users/abc-123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc-123","email":"user1@abc.com","firstName":"User","lastName":"One","attributes":{"company":["abc"]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "oauth-demo", "directory-gateway", "s3cret")
	u, err := c.FetchUser(context.Background(), "abc-123", "svc-token-1")
	if err != nil {
		t.Fatalf("FetchUser: %v", err)
	}
	if u == nil || u.Email != "user1@abc.com" || u.Company != "abc" {
		t.Errorf("user = %+v", u)
	}
}

func TestFetchUser_NotFoundIsNoRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL, "oauth-demo", "directory-gateway", "s3cret")
	u, err := c.FetchUser(context.Background(), "missing", "svc-token-1")
	if err != nil {
		t.Fatalf("404 must not be an error, got %v", err)
	}
	if u != nil {
		t.Errorf("user = %+v, want nil", u)
	}
}

func TestCreateUser(t *testing.T) {
	reg := domain.RegistrationRequest{
		Email:     "new@abc.com",
		Password:  "pw123456",
		FirstName: "New",
		LastName:  "User",
		Company:   "abc",
	}

	t.Run("created", func(t *testing.T) {
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/admin/realms/oauth-demo/users" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			decodeJSONBody(t, r, &gotBody)
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		c := New(srv.URL, "oauth-demo", "directory-gateway", "s3cret")
		if err := c.CreateUser(context.Background(), reg, "svc-token-1"); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		if gotBody["enabled"] != true {
			t.Error("new user must be enabled")
		}
		attrs, _ := gotBody["attributes"].(map[string]any)
		company, _ := attrs["company"].([]any)
		if len(company) != 1 || company[0] != "abc" {
			t.Errorf("company attribute = %v, want one-element list", company)
		}
		creds, _ := gotBody["credentials"].([]any)
		if len(creds) != 1 {
			t.Fatalf("credentials = %v", creds)
		}
		cred, _ := creds[0].(map[string]any)
		if cred["type"] != "password" || cred["temporary"] != false {
			t.Errorf("credential = %v, want non-temporary password", cred)
		}
	})

	statusCases := []struct {
		name   string
		status int
		want   error
	}{
		{"forbidden", http.StatusForbidden, domain.ErrPermissionDenied},
		{"conflict", http.StatusConflict, domain.ErrConflict},
	}
	for _, tc := range statusCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := New(srv.URL, "oauth-demo", "directory-gateway", "s3cret")
			if err := c.CreateUser(context.Background(), reg, "svc-token-1"); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	t.Run("other rejection carries upstream text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"errorMessage":"password policy not met"}`))
		}))
		defer srv.Close()

		c := New(srv.URL, "oauth-demo", "directory-gateway", "s3cret")
		err := c.CreateUser(context.Background(), reg, "svc-token-1")

		var upstream *domain.UpstreamError
		if !errors.As(err, &upstream) {
			t.Fatalf("err = %v, want UpstreamError", err)
		}
		if upstream.Status != http.StatusBadRequest {
			t.Errorf("status = %d", upstream.Status)
		}
		if upstream.Body == "" {
			t.Error("upstream body text lost")
		}
	})
}

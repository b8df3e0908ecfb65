package token_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"vn.io.arda/directory/internal/domain"
	"vn.io.arda/directory/internal/token"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestDecode(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{
		"sub":                "b2c7f6be-5a72-4c04-9a3d-0f2f2df3a001",
		"email":              "user1@abc.com",
		"preferred_username": "user1",
		"company":            "abc",
		"realm_access":       map[string]any{"roles": []any{"offline_access", "admin"}},
	})

	c, ok := token.Decode(raw)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if c.Subject != "b2c7f6be-5a72-4c04-9a3d-0f2f2df3a001" {
		t.Errorf("subject = %q", c.Subject)
	}
	if c.Email != "user1@abc.com" || c.PreferredUsername != "user1" {
		t.Errorf("email/username = %q/%q", c.Email, c.PreferredUsername)
	}
	if c.Company != "abc" {
		t.Errorf("company = %q", c.Company)
	}
	if len(c.Roles) != 2 || c.Roles[1] != "admin" {
		t.Errorf("roles = %v", c.Roles)
	}
}

func TestDecode_CompanyFromAttributeList(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{
		"sub":        "c3a1",
		"attributes": map[string]any{"company": []any{"xyz", "ignored"}},
	})

	c, ok := token.Decode(raw)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if c.Company != "xyz" {
		t.Errorf("company = %q, want first attribute element", c.Company)
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, raw := range []string{"", "not-a-token", "a.b", "x.!!!.z"} {
		if _, ok := token.Decode(raw); ok {
			t.Errorf("Decode(%q) succeeded, want failure", raw)
		}
	}
}

func TestMergeInto_NonDestructive(t *testing.T) {
	id := domain.Identity{
		Subject: "original-sub",
		Email:   "guard@abc.com",
		Company: "abc",
		Roles:   []string{"user"},
	}

	// Claims without company or roles must not erase either.
	c := &token.Claims{Email: "token@abc.com"}
	c.MergeInto(&id)

	if id.Email != "token@abc.com" {
		t.Errorf("email = %q, want claim value to win", id.Email)
	}
	if id.Company != "abc" {
		t.Errorf("company = %q, absent claim erased earlier value", id.Company)
	}
	if len(id.Roles) != 1 || id.Roles[0] != "user" {
		t.Errorf("roles = %v, absent claim erased earlier value", id.Roles)
	}
	if id.Subject != "original-sub" {
		t.Errorf("subject = %q", id.Subject)
	}
}

func TestMergeInto_PresentFieldsOverride(t *testing.T) {
	id := domain.Identity{Company: "abc", Roles: []string{"user"}}

	c := &token.Claims{Company: "xyz", Roles: []string{"admin"}}
	c.MergeInto(&id)

	if id.Company != "xyz" {
		t.Errorf("company = %q, want later source to override", id.Company)
	}
	if len(id.Roles) != 1 || id.Roles[0] != "admin" {
		t.Errorf("roles = %v", id.Roles)
	}
}

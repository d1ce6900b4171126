package identity

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestResolverPrefersQuery(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/ws?id=alice", nil)
	req.Header.Set(HeaderPlayerID, "bob")
	id, err := RequestResolver{}.Resolve(req)
	if err != nil || id != "alice" {
		t.Fatalf("expected alice, got %q err=%v", id, err)
	}

	req = httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set(HeaderPlayerID, " bob ")
	if id, _ := (RequestResolver{}).Resolve(req); id != "bob" {
		t.Fatalf("expected header fallback, got %q", id)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if _, err := Validate(""); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected missing, got %v", err)
	}
	for _, bad := range []string{"a b", "x<y>", strings.Repeat("a", 65)} {
		if _, err := Validate(bad); !errors.Is(err, ErrInvalid) {
			t.Fatalf("expected %q to be invalid, got %v", bad, err)
		}
	}
	if id, err := Validate("player_1.eu-west"); err != nil || id != "player_1.eu-west" {
		t.Fatalf("expected valid id, got %q %v", id, err)
	}
}

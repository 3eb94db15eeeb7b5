package claims

import (
	"errors"
	"net/http"
	"testing"
)

func TestClaimRoundTrip(t *testing.T) {
	d := NewDecoder([]byte("shared-secret"))
	token, err := d.Sign(&RoutingClaim{Protocol: "tcp", Host: "example.com", Port: 8080})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	h := http.Header{}
	h.Set("Cookie", token)
	dest, err := d.FromHandshake(h)
	if err != nil {
		t.Fatalf("expected claim to verify, got %v", err)
	}
	if dest.Protocol != "tcp" {
		t.Errorf("protocol = %q, want tcp", dest.Protocol)
	}
	if dest.Host != "example.com" {
		t.Errorf("host = %q, want example.com", dest.Host)
	}
	if dest.Port != 8080 {
		t.Errorf("port = %d, want 8080", dest.Port)
	}
}

func TestClaimWrongKeyRejected(t *testing.T) {
	signer := NewDecoder([]byte("other-secret"))
	token, err := signer.Sign(&RoutingClaim{Protocol: "tcp", Host: "example.com", Port: 8080})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	d := NewDecoder([]byte("shared-secret"))
	h := http.Header{}
	h.Set("Cookie", token)
	if _, err := d.FromHandshake(h); err == nil {
		t.Fatal("expected claim signed with a different key to be rejected")
	} else if errors.Is(err, ErrNoClaim) {
		t.Fatal("rejection must be distinguishable from an absent claim")
	}
}

func TestClaimAbsent(t *testing.T) {
	d := NewDecoder([]byte("shared-secret"))
	if _, err := d.FromHandshake(http.Header{}); !errors.Is(err, ErrNoClaim) {
		t.Fatalf("expected ErrNoClaim for empty handshake, got %v", err)
	}
}

func TestClaimGarbageToken(t *testing.T) {
	d := NewDecoder([]byte("shared-secret"))
	h := http.Header{}
	h.Set("Cookie", "not-a-jwt")
	if _, err := d.FromHandshake(h); err == nil || errors.Is(err, ErrNoClaim) {
		t.Fatalf("expected parse failure, got %v", err)
	}
}

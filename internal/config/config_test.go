package config

import "testing"

func TestParseServerURL(t *testing.T) {
	var c Client
	if err := c.ParseServerURL("wss://tunnel.example.com"); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Scheme != SchemeWss {
		t.Errorf("scheme = %s, want wss", c.Scheme)
	}
	if c.Server.Host != "tunnel.example.com" || c.Server.Port != 443 {
		t.Errorf("server = %s, want tunnel.example.com:443", c.Server)
	}

	if err := c.ParseServerURL("http://10.0.0.1:8080"); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Scheme != SchemeHTTP || c.Server.Port != 8080 {
		t.Errorf("got scheme %s server %s, want http 10.0.0.1:8080", c.Scheme, c.Server)
	}

	if err := c.ParseServerURL("ftp://example.com"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
	if err := c.ParseServerURL("ws://"); err == nil {
		t.Error("expected error for missing host")
	}
}

func TestParseRemoteAddr(t *testing.T) {
	r, err := ParseRemoteAddr("tcp", "localhost:3000")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Host != "localhost" || r.Port != 3000 || r.Protocol != "tcp" {
		t.Errorf("got %+v", r)
	}
	if _, err := ParseRemoteAddr("tcp", "localhost"); err == nil {
		t.Error("expected error for missing port")
	}
	if _, err := ParseRemoteAddr("tcp", "localhost:99999"); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

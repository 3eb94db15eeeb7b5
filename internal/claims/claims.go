package claims

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v4"

	"github.com/CorrM/wstunnel/internal/config"
)

// RoutingClaim is the payload of the signed token a server issues for a
// reverse tunnel. Field names match the wire format.
type RoutingClaim struct {
	Protocol string `json:"p"`
	Host     string `json:"r"`
	Port     uint16 `json:"rp"`
	jwt.RegisteredClaims
}

// ErrNoClaim is returned when the handshake carries no routing claim at all.
var ErrNoClaim = errors.New("no routing claim in handshake")

// Decoder verifies routing claims with a shared HMAC secret. Construct once
// at startup and pass by reference; there is no package-level key state.
type Decoder struct {
	key    []byte
	parser *jwt.Parser
}

func NewDecoder(secret []byte) *Decoder {
	return &Decoder{
		key:    secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Decode verifies the token signature and returns the claim.
func (d *Decoder) Decode(token string) (*RoutingClaim, error) {
	claim := &RoutingClaim{}
	if _, err := d.parser.ParseWithClaims(token, claim, d.keyFunc); err != nil {
		return nil, fmt.Errorf("routing claim rejected: %w", err)
	}
	return claim, nil
}

func (d *Decoder) keyFunc(*jwt.Token) (interface{}, error) { return d.key, nil }

// FromHandshake extracts the claim carried in the Cookie header of a
// transport handshake response. ErrNoClaim when the header is absent;
// a verification or parse failure is returned as-is, the caller decides
// whether to degrade or abandon.
func (d *Decoder) FromHandshake(headers http.Header) (*config.RemoteAddr, error) {
	raw := headers.Get("Cookie")
	if raw == "" {
		return nil, ErrNoClaim
	}
	claim, err := d.Decode(raw)
	if err != nil {
		return nil, err
	}
	return &config.RemoteAddr{Protocol: claim.Protocol, Host: claim.Host, Port: claim.Port}, nil
}

// Sign mints a token for the given claim with the decoder's secret. Servers
// issue claims this way; the client only needs it for loopback testing.
func (d *Decoder) Sign(claim *RoutingClaim) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claim).SignedString(d.key)
}

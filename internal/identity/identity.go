// Package identity reads caller claims from a bearer token without verifying
// it.
//
// Claims returned here are UNTRUSTED: the signature is never checked, so
// nothing in this package may be used for authorization decisions. It exists
// for request attribution in logs and events only.
package identity

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "bearer "

// UntrustedClaims is the decoded payload of an unverified token.
type UntrustedClaims map[string]any

// Subject returns the "sub" claim when it is a string.
func (c UntrustedClaims) Subject() string {
	sub, _ := c["sub"].(string)
	return sub
}

// Extractor decodes bearer tokens. It is safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
	parser *jwt.Parser
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		logger: logger,
		parser: jwt.NewParser(jwt.WithPaddingAllowed()),
	}
}

// Extract decodes the claims segment of an Authorization header value. It
// never fails the request: a missing or malformed token yields (nil, false).
func (e *Extractor) Extract(header string) (UntrustedClaims, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		e.logger.Debug("no authorization header")
		return nil, false
	}

	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		e.logger.Warn("authorization header is not a bearer token")
		return nil, false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		e.logger.Warn("malformed bearer token", slog.Int("segments", len(parts)))
		return nil, false
	}

	payload, err := e.parser.DecodeSegment(parts[1])
	if err != nil {
		e.logger.Warn("bearer token payload is not base64url", slog.String("error", err.Error()))
		return nil, false
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		e.logger.Warn("bearer token payload is not a JSON object", slog.String("error", err.Error()))
		return nil, false
	}
	if claims == nil {
		e.logger.Warn("bearer token payload is null")
		return nil, false
	}

	return UntrustedClaims(claims), true
}

type claimsKey struct{}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims UntrustedClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (UntrustedClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(UntrustedClaims)
	return claims, ok && claims != nil
}

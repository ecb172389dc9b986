package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yuqie6/gigledger/internal/pkg/config"
	"github.com/yuqie6/gigledger/internal/service"
)

// authenticator 校验用户 JWT 与 service role key
type authenticator struct {
	secret         []byte
	issuer         string
	serviceRoleKey string
}

func newAuthenticator(h config.HostingEnv) *authenticator {
	return &authenticator{
		secret:         []byte(h.JWTSecret),
		issuer:         h.Issuer(),
		serviceRoleKey: h.ServiceRoleKey,
	}
}

// userFromRequest 返回 sub；allowQuery 时也接受 ?access_token=（EventSource 不能带头）
func (a *authenticator) userFromRequest(r *http.Request, allowQuery bool) (string, error) {
	raw := bearerToken(r)
	if raw == "" && allowQuery {
		raw = strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	if raw == "" {
		return "", service.ErrUnauthorized
	}
	return a.verify(raw)
}

func (a *authenticator) verify(raw string) (string, error) {
	if len(a.secret) == 0 {
		return "", service.ErrUnauthorized
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", service.ErrUnauthorized
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", service.ErrUnauthorized
	}
	return sub, nil
}

// isServiceRole 常量时间比较 service role key
func (a *authenticator) isServiceRole(r *http.Request) bool {
	if a.serviceRoleKey == "" {
		return false
	}
	tok := bearerToken(r)
	if tok == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(tok), []byte(a.serviceRoleKey)) == 1
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

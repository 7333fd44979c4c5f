package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openballot/openballot-api/pkg/config"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
	"github.com/openballot/openballot-api/pkg/response"
)

// CSRFHeader carries the stateless anti-forgery token on mutating requests.
const CSRFHeader = "X-CSRF-Token"

// CSRFGuard issues and checks stateless HMAC tokens. Tokens encode their
// expiry, so no server-side storage is needed.
type CSRFGuard struct {
	secret []byte
	ttl    time.Duration
}

func NewCSRFGuard(cfg config.CSRFConfig) *CSRFGuard {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	return &CSRFGuard{secret: []byte(cfg.Secret), ttl: ttl}
}

// Issue mints a token valid until the configured TTL elapses.
func (g *CSRFGuard) Issue() (string, time.Time) {
	expiresAt := time.Now().UTC().Add(g.ttl)
	stamp := strconv.FormatInt(expiresAt.Unix(), 10)
	return fmt.Sprintf("%s.%s", stamp, g.sign(stamp)), expiresAt
}

// Verify checks the token signature and expiry.
func (g *CSRFGuard) Verify(token string) bool {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return false
	}
	expiry, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || time.Now().UTC().Unix() > expiry {
		return false
	}
	return hmac.Equal([]byte(parts[1]), []byte(g.sign(parts[0])))
}

func (g *CSRFGuard) sign(stamp string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(stamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// CSRF rejects mutating requests without a valid anti-forgery token.
func CSRF(guard *CSRFGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if guard == nil {
			c.Next()
			return
		}
		token := c.GetHeader(CSRFHeader)
		if token == "" || !guard.Verify(token) {
			response.Error(c, appErrors.ErrInvalidCSRF)
			c.Abort()
			return
		}
		c.Next()
	}
}

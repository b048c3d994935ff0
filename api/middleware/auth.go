package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/models"
)

// KeyIDContextKey holds the digest of the caller's API key once Auth has
// accepted it. Raw keys are never stored on the context.
const KeyIDContextKey = "api_key_id"

// keyring holds sha256 digests of the accepted API keys.
type keyring [][sha256.Size]byte

func newKeyring(keys []string) keyring {
	var k keyring
	for _, key := range keys {
		if key != "" {
			k = append(k, sha256.Sum256([]byte(key)))
		}
	}
	return k
}

// accepts compares against every digest so the time taken does not depend
// on which key matched.
func (k keyring) accepts(key string) bool {
	sum := sha256.Sum256([]byte(key))
	ok := 0
	for i := range k {
		ok |= subtle.ConstantTimeCompare(sum[:], k[i][:])
	}
	return ok == 1
}

// Auth accepts "X-API-Key: <key>" or "Authorization: Bearer <key>". With
// no keys configured every request passes.
func Auth(apiKeys []string) gin.HandlerFunc {
	ring := newKeyring(apiKeys)
	if len(ring) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := presentedKey(c.Request)
		switch {
		case key == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewErrorResponse(
				models.ErrCodeUnauthorized, "missing API key"))
			return
		case !ring.accepts(key):
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewErrorResponse(
				models.ErrCodeUnauthorized, "invalid API key"))
			return
		}

		c.Set(KeyIDContextKey, keyID(key))
		c.Next()
	}
}

func presentedKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// keyID is a short stable name for a key, safe to log and to use as a map key.
func keyID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// identity names the caller for per-caller limits: the accepted key when
// Auth ran, the client IP otherwise.
func identity(c *gin.Context) string {
	if id := c.GetString(KeyIDContextKey); id != "" {
		return "key:" + id
	}
	return "ip:" + c.ClientIP()
}

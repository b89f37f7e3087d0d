package middleware

import (
	"bytes"         // Restoring the request body after peeking
	"crypto/subtle" // Constant-time password comparison
	"encoding/json" // Peeking the password field
	"io"            // Reading the request body
	"net/http"      // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// AdminPassword gates the admin API on a static password sent with every
// request: as the `password` query parameter on GET, as the `password`
// field of the JSON body on POST. This is deliberately insecure demo
// auth kept for wire compatibility with the existing admin client; there
// is no session token to issue. Rate limiting (see RateLimit) is the
// only brute-force protection.
func AdminPassword(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var password string // Password extracted from the request
		if c.Request.Method == http.MethodGet {
			password = c.Query("password") // GET carries it as a query parameter
		} else {
			// POST carries it inside the JSON body, read it and put the body back for the handler
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body)) // Restore the body for binding
			var probe struct {
				Password string `json:"password"` // Only the password field matters here
			}
			_ = json.Unmarshal(body, &probe) // Malformed JSON falls through to the password check below
			password = probe.Password
		}
		// Compare in constant time
		if expected == "" || subtle.ConstantTimeCompare([]byte(password), []byte(expected)) != 1 {
			// Wrong password, abort with the error string the admin client surfaces verbatim
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Неверный пароль администратора"})
			return
		}
		c.Next() // Password accepted, proceed to the handler
	}
}

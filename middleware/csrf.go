package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// CSRFToken is a one-time form token with its issue time
type CSRFToken struct {
	Token     string
	CreatedAt time.Time
}

// CSRFStore holds the outstanding one-time tokens issued to admin console
// forms. Tokens are consumed on first validation.
type CSRFStore struct {
	mu     sync.RWMutex
	tokens map[string]*CSRFToken
	ttl    time.Duration
}

// Global CSRF store
var csrfStore *CSRFStore

// InitCSRFStore initializes the global CSRF store
func InitCSRFStore() {
	csrfStore = NewCSRFStore(30 * time.Minute)
	go csrfStore.startCleanup()
}

// NewCSRFStore creates a new CSRF store
func NewCSRFStore(ttl time.Duration) *CSRFStore {
	return &CSRFStore{
		tokens: make(map[string]*CSRFToken),
		ttl:    ttl,
	}
}

// startCleanup periodically removes expired tokens
func (s *CSRFStore) startCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	for range ticker.C {
		s.cleanup()
	}
}

// cleanup removes expired tokens
func (s *CSRFStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for token, data := range s.tokens {
		if now.Sub(data.CreatedAt) > s.ttl {
			delete(s.tokens, token)
		}
	}
}

// GenerateToken mints a token and registers it for one-time use
func (s *CSRFStore) GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(bytes)

	s.mu.Lock()
	s.tokens[token] = &CSRFToken{
		Token:     token,
		CreatedAt: time.Now(),
	}
	s.mu.Unlock()

	return token, nil
}

// ValidateToken consumes a token: it is valid at most once, and only
// within the store TTL
func (s *CSRFStore) ValidateToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, exists := s.tokens[token]
	if !exists {
		return false
	}

	// Check expiration
	if time.Since(data.CreatedAt) > s.ttl {
		delete(s.tokens, token)
		return false
	}

	// Remove token after validation (one-time use)
	delete(s.tokens, token)
	return true
}

// GetCSRFStore returns the global CSRF store
func GetCSRFStore() *CSRFStore {
	if csrfStore == nil {
		InitCSRFStore()
	}
	return csrfStore
}

// GenerateCSRFToken generates a new CSRF token
func GenerateCSRFToken() (string, error) {
	return GetCSRFStore().GenerateToken()
}

// ValidateCSRFToken validates a CSRF token
func ValidateCSRFToken(token string) bool {
	return GetCSRFStore().ValidateToken(token)
}

// CSRFMiddleware guards the admin console form posts. POSTs must carry a
// token from a previously rendered page, in the form body or X-CSRF-Token
// header; failures re-render the login page with a fresh token.
func CSRFMiddleware() gin.HandlerFunc {
	if csrfStore == nil {
		InitCSRFStore()
	}

	return func(c *gin.Context) {
		if c.Request.Method == "POST" {
			// Get token from form or header
			token := c.PostForm("csrf_token")
			if token == "" {
				token = c.GetHeader("X-CSRF-Token")
			}

			// Validate token
			if token == "" || !ValidateCSRFToken(token) {
				c.HTML(http.StatusForbidden, "login.html", gin.H{
					"error": "Invalid or expired security token. Please refresh the page and try again.",
					"csrf":  SetCSRFToken(c),
				})
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

// SetCSRFToken issues a token for the page being rendered and exposes it to
// the template
func SetCSRFToken(c *gin.Context) string {
	token, err := GenerateCSRFToken()
	if err != nil {
		return ""
	}
	c.Set("csrf_token", token)
	return token
}

// SecureCompare performs constant-time string comparison
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

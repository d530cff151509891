// Package session keeps per-browser upload state in a signed cookie.
package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// CookieName is the name of the session cookie.
const CookieName = "ocrdown_session"

// Flash categories.
const (
	CategoryError   = "error"
	CategoryInfo    = "info"
	CategorySuccess = "success"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// State is the data carried in the session cookie.
type State struct {
	ResultID string  `json:"rid,omitempty"`
	Filename string  `json:"fn,omitempty"`
	Flashes  []Flash `json:"f,omitempty"`
}

// AddFlash queues a message for the next page.
func (s *State) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
}

// PopFlashes returns and clears the queued messages.
func (s *State) PopFlashes() []Flash {
	f := s.Flashes
	s.Flashes = nil
	return f
}

// ClearResult forgets the active result.
func (s *State) ClearResult() {
	s.ResultID = ""
	s.Filename = ""
}

// Codec signs and verifies session cookies.
type Codec struct {
	key    []byte
	secure bool
}

// NewCodec returns a codec keyed by secret. An empty secret generates a
// random key, so sessions do not survive a restart.
func NewCodec(secret string) (*Codec, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	}
	return &Codec{key: key}, nil
}

// SetSecure marks issued cookies as Secure (HTTPS only).
func (c *Codec) SetSecure(secure bool) {
	c.secure = secure
}

// Encode serializes and signs st.
func (c *Codec) Encode(st *State) (string, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(data)
	return payload + "." + c.sign(payload), nil
}

// Decode verifies and parses a cookie value. Any malformed or tampered
// value yields an empty state and ok=false.
func (c *Codec) Decode(value string) (st *State, ok bool) {
	payload, sig, found := strings.Cut(value, ".")
	if !found || payload == "" {
		return &State{}, false
	}
	if !hmac.Equal([]byte(sig), []byte(c.sign(payload))) {
		return &State{}, false
	}
	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return &State{}, false
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return &State{}, false
	}
	return &s, true
}

func (c *Codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Load reads the session from r. A missing or invalid cookie gives an empty state.
func (c *Codec) Load(r *http.Request) *State {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return &State{}
	}
	st, _ := c.Decode(cookie.Value)
	return st
}

// Save writes st to w. An empty state expires the cookie.
func (c *Codec) Save(w http.ResponseWriter, st *State) error {
	if st == nil || (st.ResultID == "" && st.Filename == "" && len(st.Flashes) == 0) {
		c.Clear(w)
		return nil
	}
	value, err := c.Encode(st)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

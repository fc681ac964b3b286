package www

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"

	"batchtrack/batch"
	"batchtrack/store"

	"github.com/gorilla/sessions"
)

type ctxKey int

const userKey ctxKey = 1

// cookieStore keeps the bearer token in a signed browser cookie so pages can
// call the API without handling the token themselves.
type cookieStore struct {
	name  string
	store *sessions.CookieStore
}

func newCookieStore(name, secret string) *cookieStore {
	var key []byte
	if secret != "" {
		key, _ = base64.StdEncoding.DecodeString(secret)
	}
	if len(key) < 32 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	cs := sessions.NewCookieStore(key)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if name == "" {
		name = "batchtrack_session"
	}
	return &cookieStore{name: name, store: cs}
}

func (s *cookieStore) get(r *http.Request) *sessions.Session {
	sess, _ := s.store.Get(r, s.name)
	return sess
}

func (s *cookieStore) token(r *http.Request) string {
	t, _ := s.get(r).Values["token"].(string)
	return t
}

func (s *cookieStore) setToken(w http.ResponseWriter, r *http.Request, token string) {
	sess := s.get(r)
	sess.Values["token"] = token
	sess.Save(r, w)
}

func (s *cookieStore) clear(w http.ResponseWriter, r *http.Request) {
	sess := s.get(r)
	delete(sess.Values, "token")
	sess.Options.MaxAge = -1
	sess.Save(r, w)
}

// requestToken returns the bearer token of a request: the Authorization
// header, then X-Auth-Token, then the token query parameter.
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	if t := r.Header.Get("X-Auth-Token"); t != "" {
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func (h *Handlers) tokenOf(r *http.Request) string {
	if t := requestToken(r); t != "" {
		return t
	}
	return h.cookies.token(r)
}

// authMiddleware rejects requests without a live session and stores the
// session owner on the request context.
func (h *Handlers) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.tokenOf(r)
		sm := h.engine.Sessions()
		info, err := sm.Lookup(token)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if err := sm.Touch(token); err != nil {
			h.engine.DebugLog("touch session %d: %v", info.ID, err)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, info)))
	})
}

func currentUser(r *http.Request) *store.SessionInfo {
	info, _ := r.Context().Value(userKey).(*store.SessionInfo)
	return info
}

func currentRole(r *http.Request) string {
	if u := currentUser(r); u != nil {
		return u.Role
	}
	return ""
}

func currentUserID(r *http.Request) *int64 {
	if u := currentUser(r); u != nil {
		id := u.UserID
		return &id
	}
	return nil
}

// require rejects callers whose role lacks c.
func require(c batch.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !batch.Allowed(currentRole(r), c) {
				writeError(w, http.StatusForbidden, "permission denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentRole(r) != store.RoleAdmin {
			writeError(w, http.StatusForbidden, "permission denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

package www

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"batchtrack/engine"
	"batchtrack/session"
	"batchtrack/store"

	"golang.org/x/crypto/bcrypt"
)

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handlers) apiLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Device   string `json:"device"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.engine.Authenticate(strings.TrimSpace(req.Username), req.Password)
	if errors.Is(err, engine.ErrBadCredentials) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	device := req.Device
	if device == "" {
		device = r.Header.Get("X-Client-Device")
	}
	if device == "" {
		device = r.UserAgent()
	}
	token, err := session.NewToken()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	expires, err := h.engine.Sessions().Create(session.CreateRequest{
		UserID: u.ID,
		Token:  token,
		Device: device,
		IP:     clientIP(r),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.cookies.setToken(w, r, token)
	writeJSON(w, map[string]any{
		"success":    true,
		"user":       u,
		"token":      token,
		"expires_at": expires,
	})
}

func (h *Handlers) apiLogout(w http.ResponseWriter, r *http.Request) {
	sm := h.engine.Sessions()
	for _, t := range []string{requestToken(r), h.cookies.token(r)} {
		if t == "" {
			continue
		}
		if err := sm.Revoke(t); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	h.cookies.clear(w, r)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *Handlers) apiMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, currentUser(r))
}

func (h *Handlers) apiListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Sessions().ListForUser(currentUser(r).UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []store.Session{}
	}
	writeJSON(w, list)
}

func (h *Handlers) apiListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.engine.DB().ListUsers()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, users)
}

func (h *Handlers) apiCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if !store.IsRole(req.Role) {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := h.engine.DB().CreateUser(req.Username, string(hash), req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]any{"id": id, "username": req.Username, "role": req.Role})
}

func (h *Handlers) apiChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "new password is required")
		return
	}
	me := currentUser(r)
	u, err := h.engine.Authenticate(me.Username, req.OldPassword)
	if errors.Is(err, engine.ErrBadCredentials) {
		writeError(w, http.StatusForbidden, "current password is wrong")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.engine.DB().UpdateUserPassword(u.ID, string(hash)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

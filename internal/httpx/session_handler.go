package httpx

import (
	"errors"
	"log"
	"net/http"

	"github.com/ariefcatur/telava-pos/internal/backend"
	"github.com/ariefcatur/telava-pos/internal/notify"
	"github.com/ariefcatur/telava-pos/internal/session"
)

type sessionView struct {
	LoggedIn bool          `json:"logged_in"`
	User     *backend.User `json:"user,omitempty"`
}

func (h *TerminalHandler) getSession(w http.ResponseWriter, r *http.Request) {
	v := sessionView{LoggedIn: h.Session.LoggedIn()}
	if u, ok := h.Session.User(); ok && v.LoggedIn {
		v.User = &u
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *TerminalHandler) login(w http.ResponseWriter, r *http.Request) {
	var c session.Credentials
	if !decode(w, r, &c) {
		return
	}
	if v := c.Validate(); len(v) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": v})
		return
	}
	res, err := h.Backend.Login(r.Context(), c.Email, c.Password)
	if err != nil {
		if errors.Is(err, backend.ErrRejected) {
			h.notify(notify.LevelError, "Login Gagal", "Email atau password salah")
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		fail(w, err)
		return
	}
	if err := h.Session.Save(res); err != nil {
		log.Printf("httpx: save session: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store session")
		return
	}
	h.notify(notify.LevelSuccess, "Login", "Selamat datang, "+res.User.Name)
	writeJSON(w, http.StatusOK, sessionView{LoggedIn: true, User: &res.User})
}

// logout drops the local session whatever the backend says.
func (h *TerminalHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.Backend.Logout(r.Context())
	if err := h.Session.Clear(); err != nil {
		log.Printf("httpx: clear session: %v", err)
	}
	h.Cart.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *TerminalHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	if !h.Session.LoggedIn() {
		writeError(w, http.StatusUnauthorized, session.ErrNoUser.Error())
		return
	}
	var p session.Profile
	if !decode(w, r, &p) {
		return
	}
	if v := p.Validate(); len(v) > 0 {
		h.notify(notify.LevelError, "Error", "Mohon periksa kembali data yang diisi")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": v})
		return
	}
	u, err := h.Session.UpdateProfile(p)
	if errors.Is(err, session.ErrNoUser) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		log.Printf("httpx: update profile: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store profile")
		return
	}
	h.notify(notify.LevelSuccess, "Berhasil!", "Profil berhasil diperbarui")
	writeJSON(w, http.StatusOK, sessionView{LoggedIn: true, User: &u})
}

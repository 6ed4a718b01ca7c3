package http

import (
	"net/http"
	"strconv"

	"study-vault/internal/app"
	"study-vault/internal/domain"
)

type sessionResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (a *API) signup(w http.ResponseWriter, r *http.Request) {
	var in app.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.users.Signup(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writeSession(w, r, http.StatusCreated, user)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.users.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writeSession(w, r, http.StatusOK, user)
}

func (a *API) writeSession(w http.ResponseWriter, r *http.Request, status int, user domain.User) {
	token, err := a.tokens.Issue(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, sessionResponse{Token: token, User: user})
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, _ string) {
	user, err := a.users.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) userStats(w http.ResponseWriter, r *http.Request, _ string) {
	stats, err := a.users.Stats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) updateUsername(w http.ResponseWriter, r *http.Request, userID string) {
	var in struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.users.UpdateUsername(r.Context(), userID, in.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) changePassword(w http.ResponseWriter, r *http.Request, userID string) {
	var in struct {
		Current string `json:"currentPassword"`
		New     string `json:"newPassword"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.users.ChangePassword(r.Context(), userID, in.Current, in.New); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "password updated")
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, domain.Validation("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	entries, err := a.users.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) listStudents(w http.ResponseWriter, r *http.Request, userID string) {
	students, err := a.users.ListStudents(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (a *API) deleteStudent(w http.ResponseWriter, r *http.Request, userID string) {
	if err := a.users.DeleteStudent(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listSubjects(w http.ResponseWriter, r *http.Request, _ string) {
	subjects, err := a.subjects.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (a *API) createSubject(w http.ResponseWriter, r *http.Request, userID string) {
	var in struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	subject, err := a.subjects.Create(r.Context(), userID, in.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, subject)
}

func (a *API) deleteSubject(w http.ResponseWriter, r *http.Request, userID string) {
	if err := a.subjects.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := a.notifications.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) dismissNotification(w http.ResponseWriter, r *http.Request, userID string) {
	if err := a.notifications.Dismiss(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

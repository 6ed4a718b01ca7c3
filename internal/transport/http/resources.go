package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"study-vault/internal/app"
	"study-vault/internal/domain"
)

// multipartOverhead leaves room for the form fields next to the file part.
const multipartOverhead = 1 << 20

func (a *API) uploadResource(w http.ResponseWriter, r *http.Request, userID string) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, domain.ErrFileTooLarge)
			return
		}
		writeError(w, r, domain.Validation("invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	in := app.UploadInput{
		Title:        r.FormValue("title"),
		Comment:      r.FormValue("comment"),
		SubjectID:    r.FormValue("subject"),
		ShareRequest: formBool(r, "shareRequest"),
		CreateQuiz:   formBool(r, "createQuiz"),
		Questions:    []byte(r.FormValue("questions")),
	}
	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeError(w, r, domain.Validation("invalid file part"))
		return
	default:
		defer file.Close()
		in.File = &app.FileUpload{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
	}

	result, err := a.resources.Upload(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func formBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.FormValue(key))
	return err == nil && v
}

func (a *API) listResources(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := a.resources.ListVisible(r.Context(), userID, r.URL.Query().Get("subject"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) myResources(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := a.resources.ListByAuthor(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) getResource(w http.ResponseWriter, r *http.Request, userID string) {
	res, err := a.resources.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) deleteResource(w http.ResponseWriter, r *http.Request, userID string) {
	if err := a.resources.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) togglePrivacy(w http.ResponseWriter, r *http.Request, userID string) {
	var in struct {
		Private *bool `json:"private"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Private == nil {
		writeError(w, r, domain.Validation("private is required"))
		return
	}
	res, err := a.resources.TogglePrivacy(r.Context(), userID, r.PathValue("id"), *in.Private)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) toggleLike(w http.ResponseWriter, r *http.Request, userID string) {
	a.writeLike(w, r)(a.favorites.Toggle(r.Context(), userID, r.PathValue("id")))
}

func (a *API) addFavorite(w http.ResponseWriter, r *http.Request, userID string) {
	a.writeLike(w, r)(a.favorites.Add(r.Context(), userID, r.PathValue("id")))
}

func (a *API) removeFavorite(w http.ResponseWriter, r *http.Request, userID string) {
	a.writeLike(w, r)(a.favorites.Remove(r.Context(), userID, r.PathValue("id")))
}

func (a *API) writeLike(w http.ResponseWriter, r *http.Request) func(domain.LikeResult, error) {
	return func(result domain.LikeResult, err error) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (a *API) createQuiz(w http.ResponseWriter, r *http.Request, userID string) {
	var in struct {
		Questions json.RawMessage `json:"questions"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	questions, err := app.DecodeQuestions(in.Questions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	quiz, err := a.quizzes.CreateQuiz(r.Context(), userID, r.PathValue("id"), questions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (a *API) submitQuiz(w http.ResponseWriter, r *http.Request, userID string) {
	var in struct {
		Answers []json.RawMessage `json:"answers"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := a.quizzes.Submit(r.Context(), userID, r.PathValue("id"), app.ParseAnswers(in.Answers))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) pendingRequests(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := a.approvals.Pending(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) approve(w http.ResponseWriter, r *http.Request, userID string) {
	res, err := a.approvals.Approve(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) reject(w http.ResponseWriter, r *http.Request, userID string) {
	if err := a.approvals.Reject(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "resource rejected")
}

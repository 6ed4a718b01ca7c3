package http

import (
	"net/http"
	"strings"
	"testing"
)

type resourceBody struct {
	ID          string `json:"id"`
	Approved    bool   `json:"approved"`
	Private     bool   `json:"private"`
	CanBePublic bool   `json:"canBePublic"`
	QuizID      string `json:"quizId"`
	Likes       int    `json:"likes"`
}

type uploadBody struct {
	Resource resourceBody `json:"resource"`
	Quiz     *struct {
		ID string `json:"id"`
	} `json:"quiz"`
}

func pdfForm(subjectID string, share bool, questions string) uploadForm {
	fields := map[string]string{
		"title":   "Algebra notes",
		"comment": "chapter 1",
		"subject": subjectID,
	}
	if share {
		fields["shareRequest"] = "true"
	}
	if questions != "" {
		fields["createQuiz"] = "true"
		fields["questions"] = questions
	}
	return uploadForm{fields: fields, contentType: "application/pdf", file: []byte("%PDF-1.4 test")}
}

func TestShareApproveQuizAndLikeFlow(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signup(t, "tina", "teacher")
	student := env.signup(t, "sam", "student")

	var subject struct {
		ID string `json:"id"`
	}
	env.doJSON(t, http.MethodPost, "/api/subjects", teacher.Token, map[string]string{"name": "Math"}, http.StatusCreated, &subject)

	questions := `[{"question":"2+2?","options":["3","4"],"correctAnswer":1},{"question":"1+1?","options":["2","3"],"correctAnswer":0}]`
	var up uploadBody
	env.upload(t, student.Token, pdfForm(subject.ID, true, questions), http.StatusCreated, &up)
	if up.Resource.Approved || up.Resource.Private || !up.Resource.CanBePublic {
		t.Fatalf("share request should start pending and shareable: %+v", up.Resource)
	}
	if up.Quiz == nil || up.Resource.QuizID != up.Quiz.ID {
		t.Fatalf("quiz not linked: %+v", up)
	}
	if env.blobs.Len() != 1 {
		t.Fatalf("expected stored blob, got %d", env.blobs.Len())
	}

	var listed []resourceBody
	env.doJSON(t, http.MethodGet, "/api/resources?subject="+subject.ID, student.Token, nil, http.StatusOK, &listed)
	if len(listed) != 0 {
		t.Fatalf("pending resource must not be listed: %+v", listed)
	}

	conn := env.dialWS(t, student.Token)
	if err := conn.WriteJSON(map[string]any{"type": "join", "payload": map[string]any{"userId": student.User.ID}}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	readNext(conn, t, "joined")

	var pending []resourceBody
	env.doJSON(t, http.MethodGet, "/api/teacher/requests", teacher.Token, nil, http.StatusOK, &pending)
	if len(pending) != 1 || pending[0].ID != up.Resource.ID {
		t.Fatalf("unexpected pending list: %+v", pending)
	}

	env.doJSON(t, http.MethodPost, "/api/teacher/approve/"+up.Resource.ID, student.Token, nil, http.StatusForbidden, nil)
	env.doJSON(t, http.MethodPost, "/api/teacher/approve/"+up.Resource.ID, teacher.Token, nil, http.StatusOK, nil)
	env.doJSON(t, http.MethodPost, "/api/teacher/approve/"+up.Resource.ID, teacher.Token, nil, http.StatusBadRequest, nil)

	_, payload := readNext(conn, t, "notification")
	if msg, _ := payload["message"].(string); !strings.Contains(msg, "has been approved") {
		t.Fatalf("unexpected notification %v", payload)
	}

	var me struct {
		XP int `json:"xp"`
	}
	env.doJSON(t, http.MethodGet, "/api/users/"+student.User.ID, student.Token, nil, http.StatusOK, &me)
	if me.XP != 5 {
		t.Fatalf("expected 5 XP after approval, got %d", me.XP)
	}

	var toggled resourceBody
	env.doJSON(t, http.MethodPost, "/api/resources/"+up.Resource.ID+"/privacy", student.Token,
		map[string]bool{"private": false}, http.StatusOK, &toggled)
	if toggled.Private {
		t.Fatalf("expected public resource")
	}

	var graded struct {
		Score       int `json:"score"`
		XPAward     int `json:"xpAward"`
		Correctness []struct {
			Correct bool `json:"correct"`
		} `json:"correctness"`
	}
	env.doJSON(t, http.MethodPost, "/api/resources/"+up.Resource.ID+"/quiz/submit", student.Token,
		map[string]any{"answers": []any{1, "0"}}, http.StatusOK, &graded)
	if graded.Score != 2 || graded.XPAward != 3 || len(graded.Correctness) != 2 {
		t.Fatalf("unexpected grade: %+v", graded)
	}

	var like struct {
		Outcome string `json:"outcome"`
		Likes   int    `json:"likes"`
	}
	env.doJSON(t, http.MethodPost, "/api/resources/"+up.Resource.ID+"/like", student.Token, nil, http.StatusOK, &like)
	if like.Outcome != "liked" || like.Likes != 1 {
		t.Fatalf("unexpected like: %+v", like)
	}
	env.doJSON(t, http.MethodDelete, "/api/favorites/"+up.Resource.ID, student.Token, nil, http.StatusOK, &like)
	if like.Outcome != "unliked" || like.Likes != 0 {
		t.Fatalf("unexpected unlike: %+v", like)
	}

	var inbox []struct {
		ID string `json:"id"`
	}
	env.doJSON(t, http.MethodGet, "/api/notifications", student.Token, nil, http.StatusOK, &inbox)
	if len(inbox) != 1 {
		t.Fatalf("expected one notification, got %d", len(inbox))
	}
	env.doJSON(t, http.MethodDelete, "/api/notifications/"+inbox[0].ID, student.Token, nil, http.StatusNoContent, nil)
	env.doJSON(t, http.MethodDelete, "/api/notifications/"+inbox[0].ID, student.Token, nil, http.StatusNotFound, nil)
}

func TestPrivateUploadCannotBeMadePublic(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signup(t, "tina", "teacher")
	student := env.signup(t, "sam", "student")

	var subject struct {
		ID string `json:"id"`
	}
	env.doJSON(t, http.MethodPost, "/api/subjects", teacher.Token, map[string]string{"name": "Math"}, http.StatusCreated, &subject)

	var up uploadBody
	env.upload(t, student.Token, pdfForm(subject.ID, false, ""), http.StatusCreated, &up)
	if !up.Resource.Approved || !up.Resource.Private || up.Resource.CanBePublic {
		t.Fatalf("private upload flags wrong: %+v", up.Resource)
	}

	env.doJSON(t, http.MethodPost, "/api/resources/"+up.Resource.ID+"/privacy", student.Token,
		map[string]bool{"private": false}, http.StatusForbidden, nil)

	var got resourceBody
	env.doJSON(t, http.MethodGet, "/api/resources/"+up.Resource.ID, student.Token, nil, http.StatusOK, &got)
	if !got.Private {
		t.Fatalf("forbidden toggle mutated the resource")
	}

	env.doJSON(t, http.MethodPost, "/api/resources/"+up.Resource.ID+"/quiz/submit", student.Token,
		map[string]any{"answers": []any{0}}, http.StatusForbidden, nil)
}

func TestHiddenResourcesAreNotFoundForOthers(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signup(t, "tina", "teacher")
	alice := env.signup(t, "alice", "student")
	bob := env.signup(t, "bob", "student")

	var subject struct {
		ID string `json:"id"`
	}
	env.doJSON(t, http.MethodPost, "/api/subjects", teacher.Token, map[string]string{"name": "Math"}, http.StatusCreated, &subject)

	questions := `[{"question":"2+2?","options":["3","4"],"correctAnswer":1}]`
	var private, pending uploadBody
	env.upload(t, alice.Token, pdfForm(subject.ID, false, questions), http.StatusCreated, &private)
	env.upload(t, alice.Token, pdfForm(subject.ID, true, questions), http.StatusCreated, &pending)

	for _, id := range []string{private.Resource.ID, pending.Resource.ID} {
		env.doJSON(t, http.MethodGet, "/api/resources/"+id, bob.Token, nil, http.StatusNotFound, nil)
		env.doJSON(t, http.MethodPost, "/api/resources/"+id+"/like", bob.Token, nil, http.StatusNotFound, nil)
		env.doJSON(t, http.MethodPut, "/api/favorites/"+id, bob.Token, nil, http.StatusNotFound, nil)
		env.doJSON(t, http.MethodPost, "/api/resources/"+id+"/quiz/submit", bob.Token,
			map[string]any{"answers": []any{1}}, http.StatusNotFound, nil)
		env.doJSON(t, http.MethodGet, "/api/resources/"+id, alice.Token, nil, http.StatusOK, nil)
		env.doJSON(t, http.MethodGet, "/api/resources/"+id, teacher.Token, nil, http.StatusOK, nil)
	}

	var me struct {
		XP int `json:"xp"`
	}
	env.doJSON(t, http.MethodGet, "/api/users/"+bob.User.ID, bob.Token, nil, http.StatusOK, &me)
	if me.XP != 0 {
		t.Fatalf("hidden quiz awarded %d XP", me.XP)
	}
}

func TestUploadRejections(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signup(t, "tina", "teacher")
	student := env.signup(t, "sam", "student")

	var subject struct {
		ID string `json:"id"`
	}
	env.doJSON(t, http.MethodPost, "/api/subjects", teacher.Token, map[string]string{"name": "Math"}, http.StatusCreated, &subject)

	notPDF := pdfForm(subject.ID, true, "")
	notPDF.contentType = "image/png"
	env.upload(t, student.Token, notPDF, http.StatusBadRequest, nil)

	tooBig := pdfForm(subject.ID, true, "")
	tooBig.file = make([]byte, 2048)
	env.upload(t, student.Token, tooBig, http.StatusBadRequest, nil)

	badQuiz := pdfForm(subject.ID, true, `[{"question":"q","options":["a","b"],"correctAnswer":5}]`)
	env.upload(t, student.Token, badQuiz, http.StatusBadRequest, nil)

	if env.blobs.Len() != 0 {
		t.Fatalf("rejected uploads reached the blob store: %d", env.blobs.Len())
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	env.doJSON(t, http.MethodGet, "/api/notifications", "", nil, http.StatusUnauthorized, nil)
	env.doJSON(t, http.MethodGet, "/api/notifications", "garbage", nil, http.StatusUnauthorized, nil)
}

func TestSignupAndLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice", "student")

	env.doJSON(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice2", "email": "alice@example.com", "password": "secret1",
	}, http.StatusBadRequest, nil)
	env.doJSON(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "bob", "email": "bob@example.com", "password": "short",
	}, http.StatusBadRequest, nil)

	var s session
	env.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret1",
	}, http.StatusOK, &s)
	if s.Token == "" {
		t.Fatalf("expected token")
	}
	env.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong1",
	}, http.StatusBadRequest, nil)
}

func TestUnknownResourceIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	student := env.signup(t, "sam", "student")
	env.doJSON(t, http.MethodGet, "/api/resources/missing", student.Token, nil, http.StatusNotFound, nil)
	env.doJSON(t, http.MethodPost, "/api/resources/missing/like", student.Token, nil, http.StatusNotFound, nil)
}

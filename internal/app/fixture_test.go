package app_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"study-vault/internal/app"
	"study-vault/internal/auth"
	"study-vault/internal/domain"
	"study-vault/internal/infra/memory"
)

type fixture struct {
	store         *memory.Store
	blobs         *countingBlobs
	hub           *app.Hub
	users         *app.UserService
	resources     *app.ResourceService
	quizzes       *app.QuizService
	approvals     *app.ApprovalService
	favorites     *app.FavoritesService
	notifications *app.NotificationService
	subjects      *app.SubjectService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	blobs := &countingBlobs{BlobStore: memory.NewBlobStore("")}
	hub := app.NewHub()
	notifications := app.NewNotificationService(store, hub)
	return &fixture{
		store:         store,
		blobs:         blobs,
		hub:           hub,
		users:         app.NewUserService(store, auth.NewBcryptHasher(bcrypt.MinCost), blobs),
		resources:     app.NewResourceService(store, blobs, 1024),
		quizzes:       app.NewQuizService(store, memory.NewQuizRepository(app.NewStoreQuizLoader(store), time.Minute)),
		approvals:     app.NewApprovalService(store, notifications, blobs),
		favorites:     app.NewFavoritesService(store),
		notifications: notifications,
		subjects:      app.NewSubjectService(store),
	}
}

func (f *fixture) signup(t *testing.T, username string, role domain.Role) domain.User {
	t.Helper()
	user, err := f.users.Signup(context.Background(), app.SignupInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret1",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("signup %s: %v", username, err)
	}
	return user
}

func (f *fixture) subject(t *testing.T, teacherID string) domain.Subject {
	t.Helper()
	subject, err := f.subjects.Create(context.Background(), teacherID, "Math")
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	return subject
}

func (f *fixture) upload(t *testing.T, authorID, subjectID string, share bool, questions string) app.UploadResult {
	t.Helper()
	result, err := f.resources.Upload(context.Background(), authorID, pdfInput(subjectID, share, questions))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return result
}

// published uploads a share-requested resource and approves it, leaving it public. The author
// earns the approval XP.
func (f *fixture) published(t *testing.T, authorID, teacherID, subjectID, questions string) app.UploadResult {
	t.Helper()
	result := f.upload(t, authorID, subjectID, true, questions)
	res, err := f.approvals.Approve(context.Background(), teacherID, result.Resource.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	result.Resource = res
	return result
}

// resource reads the stored record directly, bypassing visibility rules.
func (f *fixture) resource(t *testing.T, id string) domain.Resource {
	t.Helper()
	var res domain.Resource
	err := f.store.RunInTx(context.Background(), func(ctx context.Context, tx app.Tx) error {
		var err error
		res, err = tx.GetResource(ctx, id)
		return err
	})
	if err != nil {
		t.Fatalf("get resource %s: %v", id, err)
	}
	return res
}

func (f *fixture) user(t *testing.T, id string) domain.User {
	t.Helper()
	user, err := f.users.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get user %s: %v", id, err)
	}
	return user
}

func pdfInput(subjectID string, share bool, questions string) app.UploadInput {
	body := []byte("%PDF-1.4 notes")
	return app.UploadInput{
		Title:        "Algebra notes",
		Comment:      "chapter 1",
		SubjectID:    subjectID,
		ShareRequest: share,
		CreateQuiz:   questions != "",
		Questions:    []byte(questions),
		File: &app.FileUpload{
			Name:        "notes.pdf",
			ContentType: domain.PDFContentType,
			Size:        int64(len(body)),
			Body:        bytes.NewReader(body),
		},
	}
}

// countingBlobs records how often the blob store is touched.
type countingBlobs struct {
	*memory.BlobStore
	puts    int
	deletes int
}

func (b *countingBlobs) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	b.puts++
	return b.BlobStore.Put(ctx, key, contentType, r)
}

func (b *countingBlobs) Delete(ctx context.Context, key string) error {
	b.deletes++
	return b.BlobStore.Delete(ctx, key)
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func expectKind(t *testing.T, err error, want domain.Kind) {
	t.Helper()
	if got := domain.KindOf(err); got != want {
		t.Fatalf("expected %s error, got %v (%v)", want, got, err)
	}
}

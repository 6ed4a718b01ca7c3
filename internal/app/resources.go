package app

import (
	"bytes"
	"context"
	"io"
	"mime"
	"path"
	"strings"

	"study-vault/internal/domain"
)

// DefaultMaxUploadBytes caps document uploads.
const DefaultMaxUploadBytes = 5 << 20

// FileUpload is the single binary attached to an upload.
type FileUpload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadInput is the resource intake form.
type UploadInput struct {
	Title        string `json:"title" validate:"required,max=200"`
	Comment      string `json:"comment" validate:"max=2000"`
	SubjectID    string `json:"subject" validate:"required"`
	ShareRequest bool   `json:"shareRequest"`
	CreateQuiz   bool   `json:"createQuiz"`
	// Questions is the serialized question array, only read when CreateQuiz is set.
	Questions []byte      `json:"-" validate:"-"`
	File      *FileUpload `json:"-" validate:"-"`
}

// UploadResult is the created resource and, when requested, its quiz.
type UploadResult struct {
	Resource domain.Resource `json:"resource"`
	Quiz     *domain.Quiz    `json:"quiz"`
}

// ResourceService handles document intake, visibility and resource queries.
type ResourceService struct {
	store    Store
	blobs    BlobStore
	maxBytes int64
}

func NewResourceService(store Store, blobs BlobStore, maxBytes int64) *ResourceService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &ResourceService{store: store, blobs: blobs, maxBytes: maxBytes}
}

// Upload validates the intake, stores the document and creates the resource (and quiz) in one
// transaction. Everything that can be rejected is checked before the blob store is called.
func (s *ResourceService) Upload(ctx context.Context, authorID string, in UploadInput) (UploadResult, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return UploadResult{}, err
	}
	if err := s.checkFile(in.File); err != nil {
		return UploadResult{}, err
	}

	var questions []domain.Question
	if in.CreateQuiz && len(bytes.TrimSpace(in.Questions)) > 0 {
		var err error
		if questions, err = DecodeQuestions(in.Questions); err != nil {
			return UploadResult{}, err
		}
	}

	data, err := io.ReadAll(io.LimitReader(in.File.Body, s.maxBytes+1))
	if err != nil {
		return UploadResult{}, domain.Validation("could not read uploaded file")
	}
	if int64(len(data)) > s.maxBytes {
		return UploadResult{}, domain.ErrFileTooLarge
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetUser(ctx, authorID); err != nil {
			return err
		}
		_, err := tx.GetSubject(ctx, in.SubjectID)
		return err
	})
	if err != nil {
		return UploadResult{}, err
	}

	res := domain.Resource{
		ID:        newID(),
		Title:     in.Title,
		Comment:   in.Comment,
		AuthorID:  authorID,
		SubjectID: in.SubjectID,
		FileType:  domain.PDFContentType,
		CreatedAt: now(),
	}
	res.ApplySharePolicy(in.ShareRequest)
	res.FileKey = path.Join("study_vault", authorID, res.ID+".pdf")

	url, err := s.blobs.Put(ctx, res.FileKey, domain.PDFContentType, bytes.NewReader(data))
	if err != nil {
		return UploadResult{}, domain.Upstream("document upload failed", err)
	}
	res.FileURL = url

	var result UploadResult
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		created := res
		if err := tx.CreateResource(ctx, created); err != nil {
			return err
		}
		result = UploadResult{Resource: created}
		if len(questions) == 0 {
			return nil
		}
		quiz, err := attachQuiz(ctx, tx, &created, questions)
		if err != nil {
			return err
		}
		result = UploadResult{Resource: created, Quiz: &quiz}
		return nil
	})
	if err != nil {
		removeBlob(ctx, s.blobs, res.FileKey)
		return UploadResult{}, err
	}
	return result, nil
}

func (s *ResourceService) checkFile(f *FileUpload) error {
	if f == nil || f.Body == nil {
		return domain.ErrFileRequired
	}
	mediaType, _, err := mime.ParseMediaType(f.ContentType)
	if err != nil || mediaType != domain.PDFContentType {
		return domain.ErrNotPDF
	}
	if f.Size > s.maxBytes {
		return domain.ErrFileTooLarge
	}
	return nil
}

// Get returns a single resource as seen by viewerID. Private and pending resources of other
// users read as absent; teachers see everything.
func (s *ResourceService) Get(ctx context.Context, viewerID, resourceID string) (domain.Resource, error) {
	var res domain.Resource
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		res, err = tx.GetResource(ctx, resourceID)
		if err != nil {
			return err
		}
		if res.ReadableBy(viewerID) {
			return nil
		}
		if _, err := requireTeacher(ctx, tx, viewerID); err != nil {
			return domain.ErrResourceNotFound
		}
		return nil
	})
	if err != nil {
		return domain.Resource{}, err
	}
	return res, nil
}

// requirePublic guards interactions reserved for public resources: likes and quiz attempts.
// The author gets a refusal, anyone else sees the resource as absent.
func requirePublic(res domain.Resource, actorID string) error {
	switch {
	case res.Public():
		return nil
	case res.AuthorID == actorID:
		return domain.ErrNotPublic
	default:
		return domain.ErrResourceNotFound
	}
}

// ListVisible returns approved resources that are public or owned by viewerID, optionally
// narrowed to one subject.
func (s *ResourceService) ListVisible(ctx context.Context, viewerID, subjectID string) ([]domain.Resource, error) {
	return s.list(ctx, domain.ResourceFilter{SubjectID: subjectID, Viewer: viewerID})
}

// ListByAuthor returns every resource authored by authorID.
func (s *ResourceService) ListByAuthor(ctx context.Context, authorID string) ([]domain.Resource, error) {
	return s.list(ctx, domain.ResourceFilter{AuthorID: authorID})
}

func (s *ResourceService) list(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, error) {
	var out []domain.Resource
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.ListResources(ctx, filter)
		return err
	})
	return out, err
}

// TogglePrivacy sets the private flag. Making a resource public requires that its author allowed
// sharing at upload and that it has been approved; a refused toggle leaves it untouched.
func (s *ResourceService) TogglePrivacy(ctx context.Context, actorID, resourceID string, desiredPrivate bool) (domain.Resource, error) {
	var res domain.Resource
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		res, err = tx.GetResource(ctx, resourceID)
		if err != nil {
			return err
		}
		if res.AuthorID != actorID {
			return domain.ErrNotOwner
		}
		if !desiredPrivate {
			if !res.CanBePublic {
				return domain.ErrCannotBePublic
			}
			if !res.Approved {
				return domain.ErrNotApprovedYet
			}
		}
		res.Private = desiredPrivate
		return tx.UpdateResource(ctx, res)
	})
	if err != nil {
		return domain.Resource{}, err
	}
	return res, nil
}

// Delete removes a resource on behalf of its author. Teachers remove content through Reject and
// DeleteStudent instead.
func (s *ResourceService) Delete(ctx context.Context, actorID, resourceID string) error {
	var key string
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		res, err := tx.GetResource(ctx, resourceID)
		if err != nil {
			return err
		}
		if res.AuthorID != actorID {
			return domain.ErrNotOwner
		}
		key = res.FileKey
		return tx.DeleteResource(ctx, res.ID)
	})
	if err != nil {
		return err
	}
	removeBlob(ctx, s.blobs, key)
	return nil
}

package app

import (
	"context"
	"strings"

	"study-vault/internal/domain"
)

// SubjectService manages the categories teachers file resources under.
type SubjectService struct {
	store Store
}

func NewSubjectService(store Store) *SubjectService {
	return &SubjectService{store: store}
}

// Create adds a subject owned by the calling teacher.
func (s *SubjectService) Create(ctx context.Context, teacherID, name string) (domain.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Subject{}, domain.Validation("name: this field is required")
	}
	subject := domain.Subject{ID: newID(), Name: name, TeacherID: teacherID, CreatedAt: now()}
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := requireTeacher(ctx, tx, teacherID); err != nil {
			return err
		}
		return tx.CreateSubject(ctx, subject)
	})
	if err != nil {
		return domain.Subject{}, err
	}
	return subject, nil
}

func (s *SubjectService) List(ctx context.Context) ([]domain.Subject, error) {
	var out []domain.Subject
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.ListSubjects(ctx)
		return err
	})
	return out, err
}

// Delete removes a subject. Only the teacher who created it may do so.
func (s *SubjectService) Delete(ctx context.Context, teacherID, subjectID string) error {
	return s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := requireTeacher(ctx, tx, teacherID); err != nil {
			return err
		}
		subject, err := tx.GetSubject(ctx, subjectID)
		if err != nil {
			return err
		}
		if subject.TeacherID != teacherID {
			return domain.ErrNotOwner
		}
		return tx.DeleteSubject(ctx, subjectID)
	})
}

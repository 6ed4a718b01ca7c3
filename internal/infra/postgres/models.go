package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"study-vault/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID           string    `bun:"id,pk"`
	Username     string    `bun:"username,notnull"`
	Email        string    `bun:"email,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Role         string    `bun:"role,notnull"`
	XP           int       `bun:"xp,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

func newUserRow(u domain.User) *userRow {
	return &userRow{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		XP:           u.XP,
		CreatedAt:    u.CreatedAt,
	}
}

func (r userRow) toDomain(liked []string) domain.User {
	if liked == nil {
		liked = []string{}
	}
	return domain.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		XP:           r.XP,
		Liked:        liked,
		CreatedAt:    r.CreatedAt,
	}
}

type resourceRow struct {
	bun.BaseModel `bun:"table:resources"`

	ID          string    `bun:"id,pk"`
	Title       string    `bun:"title,notnull"`
	Comment     string    `bun:"comment,notnull"`
	AuthorID    string    `bun:"author_id,notnull"`
	SubjectID   string    `bun:"subject_id,notnull"`
	FileURL     string    `bun:"file_url,notnull"`
	FileKey     string    `bun:"file_key,notnull"`
	FileType    string    `bun:"file_type,notnull"`
	Likes       int       `bun:"likes,notnull"`
	QuizID      string    `bun:"quiz_id,nullzero"`
	Approved    bool      `bun:"approved,notnull"`
	Private     bool      `bun:"private,notnull"`
	CanBePublic bool      `bun:"can_be_public,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

func newResourceRow(r domain.Resource) *resourceRow {
	return &resourceRow{
		ID:          r.ID,
		Title:       r.Title,
		Comment:     r.Comment,
		AuthorID:    r.AuthorID,
		SubjectID:   r.SubjectID,
		FileURL:     r.FileURL,
		FileKey:     r.FileKey,
		FileType:    r.FileType,
		Likes:       r.Likes,
		QuizID:      r.QuizID,
		Approved:    r.Approved,
		Private:     r.Private,
		CanBePublic: r.CanBePublic,
		CreatedAt:   r.CreatedAt,
	}
}

func (r resourceRow) toDomain() domain.Resource {
	return domain.Resource{
		ID:          r.ID,
		Title:       r.Title,
		Comment:     r.Comment,
		AuthorID:    r.AuthorID,
		SubjectID:   r.SubjectID,
		FileURL:     r.FileURL,
		FileKey:     r.FileKey,
		FileType:    r.FileType,
		Likes:       r.Likes,
		QuizID:      r.QuizID,
		Approved:    r.Approved,
		Private:     r.Private,
		CanBePublic: r.CanBePublic,
		CreatedAt:   r.CreatedAt,
	}
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID         string            `bun:"id,pk"`
	ResourceID string            `bun:"resource_id,notnull"`
	Questions  []domain.Question `bun:"questions,type:jsonb,notnull"`
	CreatedAt  time.Time         `bun:"created_at,notnull"`
}

func (r quizRow) toDomain() domain.Quiz {
	return domain.Quiz{ID: r.ID, ResourceID: r.ResourceID, Questions: r.Questions, CreatedAt: r.CreatedAt}
}

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts"`

	ID          string    `bun:"id,pk"`
	UserID      string    `bun:"user_id,notnull"`
	QuizID      string    `bun:"quiz_id,notnull"`
	Score       int       `bun:"score,notnull"`
	AttemptedAt time.Time `bun:"attempted_at,notnull"`
}

type likeRow struct {
	bun.BaseModel `bun:"table:user_likes"`

	UserID     string    `bun:"user_id,pk"`
	ResourceID string    `bun:"resource_id,pk"`
	LikedAt    time.Time `bun:"liked_at,notnull"`
}

type notificationRow struct {
	bun.BaseModel `bun:"table:notifications"`

	ID        string    `bun:"id,pk"`
	UserID    string    `bun:"user_id,notnull"`
	Message   string    `bun:"message,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (r notificationRow) toDomain() domain.Notification {
	return domain.Notification{ID: r.ID, UserID: r.UserID, Message: r.Message, CreatedAt: r.CreatedAt}
}

type subjectRow struct {
	bun.BaseModel `bun:"table:subjects"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	TeacherID string    `bun:"teacher_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (r subjectRow) toDomain() domain.Subject {
	return domain.Subject{ID: r.ID, Name: r.Name, TeacherID: r.TeacherID, CreatedAt: r.CreatedAt}
}

package domain

import "time"

// Role identifies what a user may do on the platform.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// Reward amounts.
const (
	ApprovalXP = 5
	QuizPassXP = 3
)

// PDFContentType is the only document type accepted at upload.
const PDFContentType = "application/pdf"

// User is an account and its reward/favorites state.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	XP           int       `json:"xp"`
	Liked        []string  `json:"liked"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasLiked reports whether resourceID is in the user's liked set.
func (u User) HasLiked(resourceID string) bool {
	for _, id := range u.Liked {
		if id == resourceID {
			return true
		}
	}
	return false
}

// Resource is an uploaded document and its publication state.
type Resource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Comment     string    `json:"comment"`
	AuthorID    string    `json:"authorId"`
	SubjectID   string    `json:"subjectId"`
	FileURL     string    `json:"fileUrl"`
	FileKey     string    `json:"-"`
	FileType    string    `json:"fileType"`
	Likes       int       `json:"likes"`
	QuizID      string    `json:"quizId,omitempty"`
	Approved    bool      `json:"approved"`
	Private     bool      `json:"private"`
	CanBePublic bool      `json:"canBePublic"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Public reports whether the resource shows up in the public listing.
func (r Resource) Public() bool {
	return r.Approved && !r.Private
}

// ReadableBy reports whether userID may see the resource outside an administrative view.
func (r Resource) ReadableBy(userID string) bool {
	return r.Public() || r.AuthorID == userID
}

// HasQuiz reports whether a quiz is linked to the resource.
func (r Resource) HasQuiz() bool {
	return r.QuizID != ""
}

// ApplySharePolicy sets the creation-time visibility flags from the uploader's share request.
func (r *Resource) ApplySharePolicy(shareRequest bool) {
	if shareRequest {
		r.Approved = false
		r.Private = false
		r.CanBePublic = true
		return
	}
	r.Approved = true
	r.Private = true
	r.CanBePublic = false
}

// ResourceFilter narrows resource listings. Zero values mean "any".
type ResourceFilter struct {
	SubjectID string
	AuthorID  string
	// Approved filters on the approved flag when non-nil.
	Approved *bool
	// Viewer restricts results to public resources plus the viewer's own private ones.
	Viewer string
}

// Match reports whether r passes the filter.
func (f ResourceFilter) Match(r Resource) bool {
	if f.SubjectID != "" && r.SubjectID != f.SubjectID {
		return false
	}
	if f.AuthorID != "" && r.AuthorID != f.AuthorID {
		return false
	}
	if f.Approved != nil && r.Approved != *f.Approved {
		return false
	}
	if f.Viewer != "" && !(r.Approved && (!r.Private || r.AuthorID == f.Viewer)) {
		return false
	}
	return true
}

// Question models a multiple choice question with a zero-based correct option index.
type Question struct {
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// Quiz is an ordered set of questions owned by a resource.
type Quiz struct {
	ID         string     `json:"id"`
	ResourceID string     `json:"resourceId"`
	Questions  []Question `json:"questions"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// QuizAttempt records one graded submission.
type QuizAttempt struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	QuizID      string    `json:"quizId"`
	Score       int       `json:"score"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// QuestionResult is the grading detail for a single question.
type QuestionResult struct {
	QuestionIndex       int  `json:"questionIndex"`
	Correct             bool `json:"correct"`
	CorrectAnswerIndex  int  `json:"correctAnswerIndex"`
	SelectedAnswerIndex *int `json:"selectedAnswerIndex"`
}

// GradeResult summarizes a quiz submission.
type GradeResult struct {
	Score       int              `json:"score"`
	Correctness []QuestionResult `json:"correctness"`
	XPAward     int              `json:"xpAward"`
}

// Notification is a durable inbox message for a user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationEvent is what gets pushed to connected sessions.
type NotificationEvent struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// Subject is a category resources are filed under.
type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeacherID string    `json:"teacherId"`
	CreatedAt time.Time `json:"createdAt"`
}

// LikeOutcome labels the result of a favorites operation.
type LikeOutcome string

const (
	Liked   LikeOutcome = "liked"
	Unliked LikeOutcome = "unliked"
)

// LikeResult is returned by favorites operations.
type LikeResult struct {
	Outcome LikeOutcome `json:"outcome"`
	User    User        `json:"user"`
	Likes   int         `json:"likes"`
}

// UserStats aggregates a user's activity.
type UserStats struct {
	ResourcesShared  int `json:"resourcesShared"`
	QuizzesCompleted int `json:"quizzesCompleted"`
}

// LeaderboardEntry is a student's position in the XP ranking.
type LeaderboardEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	XP       int    `json:"xp"`
}

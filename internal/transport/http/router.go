package http

import (
	"net/http"

	"study-vault/internal/app"
	"study-vault/internal/auth"
)

// Services bundles the use cases exposed over HTTP.
type Services struct {
	Users         *app.UserService
	Resources     *app.ResourceService
	Quizzes       *app.QuizService
	Approvals     *app.ApprovalService
	Favorites     *app.FavoritesService
	Notifications *app.NotificationService
	Subjects      *app.SubjectService
	Hub           *app.Hub
	Tokens        *auth.TokenIssuer
	// MaxUploadBytes bounds the multipart body; the service enforces the file limit itself.
	MaxUploadBytes int64
}

// API holds the handlers for the JSON endpoints.
type API struct {
	users         *app.UserService
	resources     *app.ResourceService
	quizzes       *app.QuizService
	approvals     *app.ApprovalService
	favorites     *app.FavoritesService
	notifications *app.NotificationService
	subjects      *app.SubjectService
	tokens        *auth.TokenIssuer
	maxUpload     int64
}

// NewRouter registers every route and wraps the mux in request logging.
func NewRouter(s Services) http.Handler {
	maxUpload := s.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = app.DefaultMaxUploadBytes
	}
	a := &API{
		users:         s.Users,
		resources:     s.Resources,
		quizzes:       s.Quizzes,
		approvals:     s.Approvals,
		favorites:     s.Favorites,
		notifications: s.Notifications,
		subjects:      s.Subjects,
		tokens:        s.Tokens,
		maxUpload:     maxUpload,
	}
	ws := NewWSHandler(s.Hub, s.Notifications, s.Tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ws", ws.ServeWS)

	mux.HandleFunc("POST /api/auth/signup", a.signup)
	mux.HandleFunc("POST /api/auth/login", a.login)

	mux.HandleFunc("GET /api/users/{id}", a.authed(a.getUser))
	mux.HandleFunc("GET /api/users/{id}/stats", a.authed(a.userStats))
	mux.HandleFunc("PUT /api/users/me/username", a.authed(a.updateUsername))
	mux.HandleFunc("PUT /api/users/me/password", a.authed(a.changePassword))
	mux.HandleFunc("GET /api/leaderboard", a.leaderboard)

	mux.HandleFunc("POST /api/resources", a.authed(a.uploadResource))
	mux.HandleFunc("GET /api/resources", a.authed(a.listResources))
	mux.HandleFunc("GET /api/resources/mine", a.authed(a.myResources))
	mux.HandleFunc("GET /api/resources/{id}", a.authed(a.getResource))
	mux.HandleFunc("DELETE /api/resources/{id}", a.authed(a.deleteResource))
	mux.HandleFunc("POST /api/resources/{id}/privacy", a.authed(a.togglePrivacy))
	mux.HandleFunc("POST /api/resources/{id}/like", a.authed(a.toggleLike))
	mux.HandleFunc("PUT /api/favorites/{id}", a.authed(a.addFavorite))
	mux.HandleFunc("DELETE /api/favorites/{id}", a.authed(a.removeFavorite))
	mux.HandleFunc("POST /api/resources/{id}/quiz", a.authed(a.createQuiz))
	mux.HandleFunc("POST /api/resources/{id}/quiz/submit", a.authed(a.submitQuiz))

	mux.HandleFunc("GET /api/teacher/requests", a.authed(a.pendingRequests))
	mux.HandleFunc("POST /api/teacher/approve/{id}", a.authed(a.approve))
	mux.HandleFunc("POST /api/teacher/reject/{id}", a.authed(a.reject))
	mux.HandleFunc("GET /api/teacher/students", a.authed(a.listStudents))
	mux.HandleFunc("DELETE /api/teacher/students/{id}", a.authed(a.deleteStudent))

	mux.HandleFunc("GET /api/subjects", a.authed(a.listSubjects))
	mux.HandleFunc("POST /api/subjects", a.authed(a.createSubject))
	mux.HandleFunc("DELETE /api/subjects/{id}", a.authed(a.deleteSubject))

	mux.HandleFunc("GET /api/notifications", a.authed(a.listNotifications))
	mux.HandleFunc("DELETE /api/notifications/{id}", a.authed(a.dismissNotification))

	return logRequests(mux)
}

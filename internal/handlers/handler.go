// Package handlers routes incoming chat updates into the three conversation
// flows: the student registration wizard, the course/lab menu and the admin
// panel. Dispatch is driven by each chat's stored state tag; a state/input
// pair no flow claims is logged and dropped, never fallen through.
package handlers

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"gradebot/internal/api"
	"gradebot/internal/bot"
	"gradebot/internal/callbacks"
	"gradebot/internal/grading"
	"gradebot/internal/models"
	"gradebot/pkg/logger"
)

// SessionStore is the durable conversation-state contract.
type SessionStore interface {
	Get(ctx context.Context, chatID int64) (*models.Session, error)
	SetState(ctx context.Context, chatID int64, state models.State) error
	UpdateData(ctx context.Context, chatID int64, patch map[string]any) error
	Clear(ctx context.Context, chatID int64) error
	SetLastMessageID(ctx context.Context, chatID int64, messageID int) error
}

// StudentStore is the student registry contract.
type StudentStore interface {
	GetByChat(ctx context.Context, chatID int64) (*models.Student, error)
	Create(ctx context.Context, s *models.Student) error
	Update(ctx context.Context, s *models.Student) error
	ByGroup(ctx context.Context, group string) ([]models.Student, error)
	Groups(ctx context.Context) ([]string, error)
	DeleteByID(ctx context.Context, id int64) error
	DeleteGroup(ctx context.Context, group string) error
}

// CourseAPI is the student-facing slice of the grading-server gateway.
type CourseAPI interface {
	Courses(ctx context.Context) ([]api.Course, error)
	Groups(ctx context.Context, courseID string) ([]string, error)
	Labs(ctx context.Context, courseID, group string) ([]string, error)
	CourseInfo(ctx context.Context, courseID string) (*api.CourseInfo, error)
	RegisterStudent(ctx context.Context, courseID, group string, payload api.RegisterRequest) (*api.RegisterResult, error)
}

// AdminAPI is the privileged slice of the grading-server gateway.
type AdminAPI interface {
	Login(ctx context.Context, login, password string) (string, error)
	Logout(ctx context.Context, cookie string) error
	ListCourses(ctx context.Context, cookie string) ([]api.Course, error)
	CourseInfo(ctx context.Context, cookie, courseID string) (*api.CourseInfo, error)
	DeleteCourse(ctx context.Context, cookie, courseID string) error
	UploadCourse(ctx context.Context, cookie, fileURL, filename string) error
}

// AdminSessions stores the single admin credential.
type AdminSessions interface {
	Get(ctx context.Context) (*models.AdminSession, error)
	Save(ctx context.Context, cookie string, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// PollStarter launches and cancels background grading polls.
type PollStarter interface {
	Start(req grading.Request)
	CancelChat(chatID int64)
}

// Handler holds every flow's dependencies.
type Handler struct {
	transport bot.Transport
	render    *bot.Renderer
	sessions  SessionStore
	students  StudentStore
	courses   CourseAPI
	admin     AdminAPI
	adminSess AdminSessions
	poller    PollStarter
	adminTTL  time.Duration
	now       func() time.Time
	semester  func() string
}

// Config wires a Handler.
type Config struct {
	Transport     bot.Transport
	Renderer      *bot.Renderer
	Sessions      SessionStore
	Students      StudentStore
	Courses       CourseAPI
	Admin         AdminAPI
	AdminSessions AdminSessions
	Poller        PollStarter
	AdminTTL      time.Duration
	Now           func() time.Time // defaults to time.Now
	Semester      func() string    // defaults to semester.Current
}

func New(cfg Config) *Handler {
	h := &Handler{
		transport: cfg.Transport,
		render:    cfg.Renderer,
		sessions:  cfg.Sessions,
		students:  cfg.Students,
		courses:   cfg.Courses,
		admin:     cfg.Admin,
		adminSess: cfg.AdminSessions,
		poller:    cfg.Poller,
		adminTTL:  cfg.AdminTTL,
		now:       cfg.Now,
		semester:  cfg.Semester,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.semester == nil {
		h.semester = defaultSemester
	}
	return h
}

// HandleUpdate dispatches one incoming update to its flow handler.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		h.HandleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		h.HandleCallback(ctx, update.CallbackQuery)
	}
}

// HandleMessage routes a text or document message by the chat's current
// state.
func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			h.handleStart(ctx, msg)
		case "admin":
			h.handleAdminEntry(ctx, msg)
		default:
			zap.L().Debug("unknown command ignored",
				zap.Int64(logger.FieldChatID, chatID), zap.String("command", msg.Command()))
		}
		return
	}

	sess, err := h.sessions.Get(ctx, chatID)
	if err != nil {
		zap.L().Error("failed to load session",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		return
	}

	switch {
	case models.IsRegInput(sess.State):
		h.handleRegistrationInput(ctx, msg, sess)
	case sess.State == models.StateAdminLogin:
		h.handleAdminLoginInput(ctx, msg)
	case sess.State == models.StateAdminPassword:
		h.handleAdminPasswordInput(ctx, msg, sess)
	case sess.State == models.StateAdminEdit:
		h.handleAdminEditMessage(ctx, msg)
	default:
		zap.L().Debug("no handler for state/input pair",
			zap.Int64(logger.FieldChatID, chatID),
			zap.String(logger.FieldState, string(sess.State)))
	}
}

// HandleCallback routes a button press by its decoded payload.
func (h *Handler) HandleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	payload, err := callbacks.Decode(cb.Data)
	if err != nil {
		zap.L().Warn("malformed callback payload",
			zap.Int64(logger.FieldChatID, cb.Message.Chat.ID), zap.Error(err))
		_ = h.transport.AnswerCallback(cb.ID, "")
		return
	}

	switch payload.Action {
	case callbacks.RegStart:
		h.handleRegStart(ctx, cb)
	case callbacks.RegBack:
		h.handleRegBack(ctx, cb)
	case callbacks.RegRestart:
		h.handleRegRestart(ctx, cb)
	case callbacks.RegConfirm:
		h.handleRegConfirm(ctx, cb)
	case callbacks.MenuInfo:
		h.handleMenuInfo(ctx, cb)
	case callbacks.MenuCourses, callbacks.CoursesBack:
		h.showActiveCourses(ctx, cb.Message.Chat.ID)
	case callbacks.CoursesOther:
		h.showOtherCourses(ctx, cb.Message.Chat.ID)
	case callbacks.BackMenu:
		h.handleBackMenu(ctx, cb)
	case callbacks.Course:
		h.handleCourseSelected(ctx, cb, payload)
	case callbacks.Lab:
		h.handleLabSelected(ctx, cb, payload)
	case callbacks.EmptyList:
		_ = h.transport.Alert(cb.ID, "📭 The list is empty")
	case callbacks.AdminCancel:
		h.handleAdminCancel(ctx, cb)
	case callbacks.AdminLogout:
		h.handleAdminLogout(ctx, cb)
	case callbacks.AdminBack:
		h.showAdminMain(ctx, cb.Message.Chat.ID)
	case callbacks.AdminGroups, callbacks.AdminBackGroups:
		h.handleAdminGroups(ctx, cb)
	case callbacks.AdminGroup, callbacks.AdminBackStudents:
		h.handleAdminGroupOpen(ctx, cb, payload)
	case callbacks.AdminStudent:
		h.handleAdminStudent(ctx, cb, payload)
	case callbacks.AdminDelStudent:
		h.handleAdminDelStudent(ctx, cb, payload)
	case callbacks.AdminDelStudentYes:
		h.handleAdminDelStudentYes(ctx, cb, payload)
	case callbacks.AdminDelGroup:
		h.handleAdminDelGroup(ctx, cb, payload)
	case callbacks.AdminDelGroupYes:
		h.handleAdminDelGroupYes(ctx, cb, payload)
	case callbacks.AdminCourses, callbacks.AdminBackCourses:
		h.handleAdminCourses(ctx, cb)
	case callbacks.AdminCourse:
		h.handleAdminCourse(ctx, cb, payload)
	case callbacks.AdminCourseDel:
		h.handleAdminCourseDel(ctx, cb, payload)
	case callbacks.AdminCourseDelYes:
		h.handleAdminCourseDelYes(ctx, cb, payload)
	case callbacks.AdminCourseAdd:
		h.handleAdminCourseAdd(ctx, cb)
	default:
		zap.L().Debug("unknown callback action",
			zap.Int64(logger.FieldChatID, cb.Message.Chat.ID),
			zap.String("action", string(payload.Action)))
	}

	// Clears the button spinner; duplicate answers are rejected upstream and
	// ignored here.
	_ = h.transport.AnswerCallback(cb.ID, "")
}

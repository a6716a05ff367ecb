package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gradebot/internal/api"
	"gradebot/internal/bot"
	"gradebot/internal/database"
	"gradebot/internal/grading"
	"gradebot/internal/models"
)

// fakeChat records everything the handlers push through the transport.
type fakeChat struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentMsg
	edits   []string
	deleted []int
	alerts  []string
	fileURL string
}

type sentMsg struct {
	id   int
	text string
}

func (f *fakeChat) Send(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sentMsg{id: f.nextID, text: text})
	return f.nextID, nil
}

func (f *fakeChat) Edit(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeChat) Delete(chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeChat) AnswerCallback(callbackID, text string) error { return nil }

func (f *fakeChat) Alert(callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, text)
	return nil
}

func (f *fakeChat) FileURL(fileID string) (string, error) {
	if f.fileURL == "" {
		return "https://files.example/" + fileID, nil
	}
	return f.fileURL, nil
}

// lastText returns the text of the most recent message still on screen.
func (f *fakeChat) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].text
}

func (f *fakeChat) lastAlert() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.alerts) == 0 {
		return ""
	}
	return f.alerts[len(f.alerts)-1]
}

// memSessions mirrors the Postgres session store, one row per chat.
type memSessions struct {
	states map[int64]models.State
	data   map[int64]map[string]any
	lastID map[int64]int
}

func newMemSessions() *memSessions {
	return &memSessions{
		states: map[int64]models.State{},
		data:   map[int64]map[string]any{},
		lastID: map[int64]int{},
	}
}

func (m *memSessions) Get(ctx context.Context, chatID int64) (*models.Session, error) {
	data := map[string]any{}
	for k, v := range m.data[chatID] {
		data[k] = v
	}
	return &models.Session{
		ChatID:        chatID,
		State:         m.states[chatID],
		Data:          data,
		LastMessageID: m.lastID[chatID],
	}, nil
}

func (m *memSessions) SetState(ctx context.Context, chatID int64, state models.State) error {
	m.states[chatID] = state
	return nil
}

func (m *memSessions) UpdateData(ctx context.Context, chatID int64, patch map[string]any) error {
	if m.data[chatID] == nil {
		m.data[chatID] = map[string]any{}
	}
	for k, v := range patch {
		m.data[chatID][k] = v
	}
	return nil
}

func (m *memSessions) Clear(ctx context.Context, chatID int64) error {
	delete(m.states, chatID)
	delete(m.data, chatID)
	delete(m.lastID, chatID)
	return nil
}

func (m *memSessions) SetLastMessageID(ctx context.Context, chatID int64, messageID int) error {
	m.lastID[chatID] = messageID
	return nil
}

func (m *memSessions) LastMessageID(ctx context.Context, chatID int64) (int, error) {
	return m.lastID[chatID], nil
}

// memStudents mirrors the student registry including its uniqueness rules.
type memStudents struct {
	nextID  int64
	records map[int64]*models.Student
}

func newMemStudents() *memStudents {
	return &memStudents{records: map[int64]*models.Student{}}
}

func (m *memStudents) GetByChat(ctx context.Context, chatID int64) (*models.Student, error) {
	for _, s := range m.records {
		if s.ChatID == chatID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memStudents) Create(ctx context.Context, s *models.Student) error {
	for _, ex := range m.records {
		if ex.ChatID == s.ChatID {
			return database.ErrDuplicateStudent
		}
		if ex.Surname == s.Surname && ex.Name == s.Name &&
			ex.GroupCode == s.GroupCode && ex.GitHub == s.GitHub {
			return database.ErrDuplicateStudent
		}
	}
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.records[s.ID] = &cp
	return nil
}

func (m *memStudents) Update(ctx context.Context, s *models.Student) error {
	if _, ok := m.records[s.ID]; !ok {
		return database.ErrNotFound
	}
	cp := *s
	m.records[s.ID] = &cp
	return nil
}

func (m *memStudents) ByGroup(ctx context.Context, group string) ([]models.Student, error) {
	var out []models.Student
	for _, s := range m.records {
		if s.GroupCode == group {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStudents) Groups(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, s := range m.records {
		if !seen[s.GroupCode] {
			seen[s.GroupCode] = true
			out = append(out, s.GroupCode)
		}
	}
	return out, nil
}

func (m *memStudents) DeleteByID(ctx context.Context, id int64) error {
	if _, ok := m.records[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memStudents) DeleteGroup(ctx context.Context, group string) error {
	for id, s := range m.records {
		if s.GroupCode == group {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *memStudents) count() int { return len(m.records) }

// fakeCourseAPI scripts the student-facing gateway.
type fakeCourseAPI struct {
	courses       []api.Course
	groups        map[string][]string
	labs          map[string][]string
	info          map[string]*api.CourseInfo
	registerCalls int
	registerRes   *api.RegisterResult
}

func (f *fakeCourseAPI) Courses(ctx context.Context) ([]api.Course, error) {
	return f.courses, nil
}

func (f *fakeCourseAPI) Groups(ctx context.Context, courseID string) ([]string, error) {
	return f.groups[courseID], nil
}

func (f *fakeCourseAPI) Labs(ctx context.Context, courseID, group string) ([]string, error) {
	return f.labs[courseID], nil
}

func (f *fakeCourseAPI) CourseInfo(ctx context.Context, courseID string) (*api.CourseInfo, error) {
	return f.info[courseID], nil
}

func (f *fakeCourseAPI) RegisterStudent(ctx context.Context, courseID, group string, payload api.RegisterRequest) (*api.RegisterResult, error) {
	f.registerCalls++
	if f.registerRes != nil {
		return f.registerRes, nil
	}
	return &api.RegisterResult{Status: api.StatusRegistered}, nil
}

// fakeAdminAPI scripts the privileged gateway and counts privileged calls.
type fakeAdminAPI struct {
	password        string
	cookie          string
	courses         []api.Course
	info            map[string]*api.CourseInfo
	privilegedCalls int
	logoutCalls     int
	deleted         []string
	uploaded        []string
}

func (f *fakeAdminAPI) Login(ctx context.Context, login, password string) (string, error) {
	if password == f.password {
		return f.cookie, nil
	}
	return "", nil
}

func (f *fakeAdminAPI) Logout(ctx context.Context, cookie string) error {
	f.logoutCalls++
	return nil
}

func (f *fakeAdminAPI) ListCourses(ctx context.Context, cookie string) ([]api.Course, error) {
	f.privilegedCalls++
	return f.courses, nil
}

func (f *fakeAdminAPI) CourseInfo(ctx context.Context, cookie, courseID string) (*api.CourseInfo, error) {
	f.privilegedCalls++
	return f.info[courseID], nil
}

func (f *fakeAdminAPI) DeleteCourse(ctx context.Context, cookie, courseID string) error {
	f.privilegedCalls++
	f.deleted = append(f.deleted, courseID)
	return nil
}

func (f *fakeAdminAPI) UploadCourse(ctx context.Context, cookie, fileURL, filename string) error {
	f.privilegedCalls++
	f.uploaded = append(f.uploaded, filename)
	return nil
}

// memAdminSessions mirrors the single-credential admin session store.
type memAdminSessions struct {
	sess *models.AdminSession
	now  func() time.Time
}

func (m *memAdminSessions) Get(ctx context.Context) (*models.AdminSession, error) {
	if m.sess == nil {
		return nil, database.ErrNoSession
	}
	cp := *m.sess
	return &cp, nil
}

func (m *memAdminSessions) Save(ctx context.Context, cookie string, ttl time.Duration) error {
	m.sess = &models.AdminSession{Cookie: cookie, ExpiresAt: m.now().Add(ttl)}
	return nil
}

func (m *memAdminSessions) Clear(ctx context.Context) error {
	m.sess = nil
	return nil
}

type fakePoller struct {
	started   []grading.Request
	cancelled []int64
}

func (f *fakePoller) Start(req grading.Request) { f.started = append(f.started, req) }
func (f *fakePoller) CancelChat(chatID int64)   { f.cancelled = append(f.cancelled, chatID) }

// env bundles a handler with all of its fakes.
type env struct {
	h         *Handler
	chat      *fakeChat
	sessions  *memSessions
	students  *memStudents
	courses   *fakeCourseAPI
	admin     *fakeAdminAPI
	adminSess *memAdminSessions
	poller    *fakePoller
	now       time.Time
}

func newEnv() *env {
	e := &env{
		chat:     &fakeChat{},
		sessions: newMemSessions(),
		students: newMemStudents(),
		courses: &fakeCourseAPI{
			groups: map[string][]string{},
			labs:   map[string][]string{},
			info:   map[string]*api.CourseInfo{},
		},
		admin:  &fakeAdminAPI{password: "secret", cookie: "tok-1", info: map[string]*api.CourseInfo{}},
		poller: &fakePoller{},
		now:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	e.adminSess = &memAdminSessions{now: func() time.Time { return e.now }}
	e.h = New(Config{
		Transport:     e.chat,
		Renderer:      bot.NewRenderer(e.chat, e.sessions),
		Sessions:      e.sessions,
		Students:      e.students,
		Courses:       e.courses,
		Admin:         e.admin,
		AdminSessions: e.adminSess,
		Poller:        e.poller,
		AdminTTL:      time.Hour,
		Now:           func() time.Time { return e.now },
		Semester:      func() string { return "Spring 2026" },
	})
	return e
}

var msgSeq = 1000

func textMsg(chatID int64, text string) *tgbotapi.Message {
	msgSeq++
	return &tgbotapi.Message{
		MessageID: msgSeq,
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
		Text:      text,
	}
}

func commandMsg(chatID int64, cmd string) *tgbotapi.Message {
	m := textMsg(chatID, "/"+cmd)
	m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd) + 1}}
	return m
}

func docMsg(chatID int64, filename string) *tgbotapi.Message {
	m := textMsg(chatID, "")
	m.Document = &tgbotapi.Document{FileID: "file-1", FileName: filename}
	return m
}

var cbSeq int

func callback(chatID int64, data string) *tgbotapi.CallbackQuery {
	msgSeq++
	return callbackOn(chatID, msgSeq, data)
}

// callbackOn presses a button sitting on a specific message, the way
// Telegram reports presses on a live keyboard.
func callbackOn(chatID int64, messageID int, data string) *tgbotapi.CallbackQuery {
	cbSeq++
	return &tgbotapi.CallbackQuery{
		ID:      fmt.Sprintf("cb-%d", cbSeq),
		Data:    data,
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: chatID, Type: "private"}},
	}
}

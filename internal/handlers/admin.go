package handlers

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gradebot/internal/bot"
	"gradebot/internal/callbacks"
	"gradebot/internal/models"
	"gradebot/pkg/logger"
)

// Session-data keys used by the admin flows.
const (
	keyAdminLogin = "admin_login"
	keyCurGroup   = "cur_group"
	keyStudents   = "students"
	keyDelStudent = "del_student_idx"
	keyDelGroup   = "del_group"
	keyCurCourse  = "cur_course_id"
	keyDelCourse  = "del_course_id"
)

func (h *Handler) handleAdminEntry(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	h.poller.CancelChat(chatID)
	_ = h.transport.Delete(chatID, msg.MessageID)

	if err := h.sessions.Clear(ctx, chatID); err != nil {
		zap.L().Error("failed to reset session",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	if err := h.sessions.SetState(ctx, chatID, models.StateAdminLogin); err != nil {
		zap.L().Error("failed to set state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		return
	}
	h.render.Render(ctx, chatID, "🔐 Enter the admin login", bot.LoginCancelKeyboard())
}

func (h *Handler) handleAdminLoginInput(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	_ = h.transport.Delete(chatID, msg.MessageID)

	login := strings.TrimSpace(msg.Text)
	if login == "" {
		return
	}
	if err := h.sessions.UpdateData(ctx, chatID, map[string]any{keyAdminLogin: login}); err != nil {
		zap.L().Error("failed to store login",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		return
	}
	if err := h.sessions.SetState(ctx, chatID, models.StateAdminPassword); err != nil {
		zap.L().Error("failed to set state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		return
	}
	h.render.Render(ctx, chatID, "🔐 Enter the password", bot.LoginCancelKeyboard())
}

func (h *Handler) handleAdminPasswordInput(ctx context.Context, msg *tgbotapi.Message, sess *models.Session) {
	chatID := msg.Chat.ID
	_ = h.transport.Delete(chatID, msg.MessageID)

	login := sess.String(keyAdminLogin)
	password := strings.TrimSpace(msg.Text)

	cookie, err := h.admin.Login(ctx, login, password)
	if err != nil {
		zap.L().Error("admin login request failed",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	if cookie == "" {
		if err := h.sessions.SetState(ctx, chatID, models.StateAdminLogin); err != nil {
			zap.L().Error("failed to set state",
				zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		}
		h.render.Render(ctx, chatID,
			"❌ Invalid credentials\n\n🔐 Enter the admin login", bot.LoginCancelKeyboard())
		return
	}

	if err := h.adminSess.Save(ctx, cookie, h.adminTTL); err != nil {
		zap.L().Error("failed to save admin session", zap.Error(err))
		h.render.Render(ctx, chatID,
			"❌ Could not open an admin session, try again", bot.LoginCancelKeyboard())
		return
	}
	h.showAdminMain(ctx, chatID)
}

func (h *Handler) showAdminMain(ctx context.Context, chatID int64) {
	if err := h.sessions.SetState(ctx, chatID, models.StateAdminMain); err != nil {
		zap.L().Error("failed to set state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	h.render.Render(ctx, chatID, "🔧 <b>Admin panel</b>", bot.AdminMainKeyboard())
}

// validAdminSession returns the stored credential or a user-facing refusal
// reason. An expired credential is purged on sight.
func (h *Handler) validAdminSession(ctx context.Context) (*models.AdminSession, string) {
	sess, err := h.adminSess.Get(ctx)
	if err != nil {
		return nil, "⚠️ Log in with /admin first"
	}
	if sess.Expired(h.now()) {
		if err := h.adminSess.Clear(ctx); err != nil {
			zap.L().Error("failed to purge expired admin session", zap.Error(err))
		}
		return nil, "⏰ Session expired, log in again"
	}
	return sess, ""
}

func (h *Handler) ensureAdmin(ctx context.Context, cb *tgbotapi.CallbackQuery) *models.AdminSession {
	sess, reason := h.validAdminSession(ctx)
	if sess == nil {
		_ = h.transport.Alert(cb.ID, reason)
	}
	return sess
}

func (h *Handler) handleAdminCancel(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	sess, err := h.sessions.Get(ctx, chatID)
	if err != nil {
		zap.L().Error("failed to load session",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		return
	}

	if sess.State == models.StateAdminConfirm {
		// Back out of a pending confirmation to the list it came from. The
		// group context wins: cur_course_id can linger from an earlier
		// course view while the pending action is a registry one.
		switch {
		case sess.String(keyCurGroup) != "":
			h.showStudents(ctx, chatID, sess.String(keyCurGroup))
		case sess.String(keyDelCourse) != "" || sess.String(keyCurCourse) != "":
			if adm, _ := h.validAdminSession(ctx); adm != nil {
				h.renderAdminCourses(ctx, chatID, adm.Cookie)
			} else {
				h.showAdminMain(ctx, chatID)
			}
		default:
			h.showAdminMain(ctx, chatID)
		}
		return
	}

	// Login or panel cancel closes the admin conversation entirely.
	_ = h.transport.Delete(chatID, cb.Message.MessageID)
	if err := h.sessions.Clear(ctx, chatID); err != nil {
		zap.L().Error("failed to clear session",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
}

func (h *Handler) handleAdminLogout(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID

	var errs error
	if sess, err := h.adminSess.Get(ctx); err == nil {
		errs = multierr.Append(errs, h.admin.Logout(ctx, sess.Cookie))
	}
	errs = multierr.Append(errs, h.adminSess.Clear(ctx))
	if errs != nil {
		zap.L().Warn("logout finished with errors", zap.Error(errs))
	}

	_ = h.transport.Delete(chatID, cb.Message.MessageID)
	if err := h.sessions.Clear(ctx, chatID); err != nil {
		zap.L().Error("failed to clear session",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	_ = h.transport.Alert(cb.ID, "✅ Admin session closed")
}

func (h *Handler) handleAdminGroups(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if h.ensureAdmin(ctx, cb) == nil {
		return
	}
	h.showAdminGroups(ctx, cb.Message.Chat.ID)
}

func (h *Handler) showAdminGroups(ctx context.Context, chatID int64) {
	groups, err := h.students.Groups(ctx)
	if err != nil {
		zap.L().Error("failed to list groups",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	if err := h.sessions.SetState(ctx, chatID, models.StateAdminGroups); err != nil {
		zap.L().Error("failed to set state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	h.render.Render(ctx, chatID, "👥 <b>Groups</b>", bot.GroupsKeyboard(groups))
}

// groupRoster loads a group sorted by rendered full name, the same order the
// student buttons use, so that a button index addresses the same record on
// both sides of a confirmation.
func (h *Handler) groupRoster(ctx context.Context, group string) ([]models.Student, []string, error) {
	list, err := h.students.ByGroup(ctx, group)
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].DisplayName() < list[j].DisplayName()
	})
	names := make([]string, len(list))
	for i := range list {
		names[i] = list[i].DisplayName()
	}
	return list, names, nil
}

func (h *Handler) handleAdminGroupOpen(ctx context.Context, cb *tgbotapi.CallbackQuery, p callbacks.Payload) {
	if h.ensureAdmin(ctx, cb) == nil {
		return
	}
	h.showStudents(ctx, cb.Message.Chat.ID, p.Target)
}

func (h *Handler) showStudents(ctx context.Context, chatID int64, group string) {
	_, names, err := h.groupRoster(ctx, group)
	if err != nil {
		zap.L().Error("failed to list students",
			zap.Int64(logger.FieldChatID, chatID),
			zap.String(logger.FieldGroup, group), zap.Error(err))
	}
	if err := h.sessions.UpdateData(ctx, chatID, map[string]any{
		keyCurGroup: group, keyStudents: names,
	}); err != nil {
		zap.L().Error("failed to store roster",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	if err := h.sessions.SetState(ctx, chatID, models.StateAdminStudents); err != nil {
		zap.L().Error("failed to set state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	h.render.Render(ctx, chatID,
		fmt.Sprintf("👥 <b>%s</b>: students", html.EscapeString(group)),
		bot.StudentsKeyboard(names, group))
}

func (h *Handler) handleAdminStudent(ctx context.Context, cb *tgbotapi.CallbackQuery, p callbacks.Payload) {
	chatID := cb.Message.Chat.ID
	if h.ensureAdmin(ctx, cb) == nil {
		return
	}
	group := p.Target

	roster, _, err := h.groupRoster(ctx, group)
	if err != nil || p.Index < 0 || p.Index >= len(roster) {
		_ = h.transport.Alert(cb.ID, "❌ Student not found")
		return
	}
	student := roster[p.Index]

	text := fmt.Sprintf("👤 <b>%s</b>\n🎓 Group: %s\n🔗 GitHub: %s",
		html.EscapeString(student.DisplayName()),
		html.EscapeString(student.GroupCode),
		html.EscapeString(student.GitHub))
	if len(student.Courses) == 0 {
		text += "\n📚 Courses: —"
	} else {
		text += "\n📚 Courses:"
		for _, c := range student.Courses {
			text += fmt.Sprintf("\n  • %s (%s)", html.EscapeString(c.Name), html.EscapeString(c.Semester))
		}
	}

	if err := h.sessions.SetState(ctx, chatID, models.StateAdminStudentInfo); err != nil {
		zap.L().Error("failed to set state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	h.render.Render(ctx, chatID, text, bot.StudentInfoKeyboard(group, p.Index))
}

func (h *Handler) handleAdminDelStudent(ctx context.Context, cb *tgbotapi.CallbackQuery, p callbacks.Payload) {
	chatID := cb.Message.Chat.ID
	if h.ensureAdmin(ctx, cb) == nil {
		return
	}
	group := p.Target

	_, names, err := h.groupRoster(ctx, group)
	if err != nil || p.Index < 0 || p.Index >= len(names) {
		_ = h.transport.Alert(cb.ID, "❌ Student not found")
		return
	}

	if err := h.sessions.UpdateData(ctx, chatID, map[string]any{
		keyCurGroup: group, keyDelStudent: p.Index,
	}); err != nil {
		zap.L().Error("failed to store pending deletion",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	if err := h.sessions.SetState(ctx, chatID, models.StateAdminConfirm); err != nil {
		zap.L().Error("failed to set state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	yes := callbacks.New(callbacks.AdminDelStudentYes).WithTarget(group).WithIndex(p.Index)
	h.render.Render(ctx, chatID,
		fmt.Sprintf("❓ Delete student <b>%s</b>?", html.EscapeString(names[p.Index])),
		bot.ConfirmActionKeyboard(yes))
}

func (h *Handler) handleAdminDelStudentYes(ctx context.Context, cb *tgbotapi.CallbackQuery, p callbacks.Payload) {
	chatID := cb.Message.Chat.ID
	if h.ensureAdmin(ctx, cb) == nil {
		return
	}

	group, idx := p.Target, p.Index
	if group == "" || idx < 0 {
		// Old button without a payload; fall back to the session bag.
		sess, err := h.sessions.Get(ctx, chatID)
		if err != nil {
			zap.L().Error("failed to load session",
				zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
			return
		}
		group = sess.String(keyCurGroup)
		if i, ok := sess.Int(keyDelStudent); ok {
			idx = i
		}
	}

	roster, _, err := h.groupRoster(ctx, group)
	if err != nil || idx < 0 || idx >= len(roster) {
		_ = h.transport.Alert(cb.ID, "❌ Student no longer exists")
		h.showStudents(ctx, chatID, group)
		return
	}
	if err := h.students.DeleteByID(ctx, roster[idx].ID); err != nil {
		zap.L().Error("failed to delete student",
			zap.Int64(logger.FieldChatID, chatID),
			zap.String(logger.FieldGroup, group), zap.Error(err))
		_ = h.transport.Alert(cb.ID, "❌ Could not delete the student")
		return
	}
	h.showStudents(ctx, chatID, group)
}

func (h *Handler) handleAdminDelGroup(ctx context.Context, cb *tgbotapi.CallbackQuery, p callbacks.Payload) {
	chatID := cb.Message.Chat.ID
	if h.ensureAdmin(ctx, cb) == nil {
		return
	}
	group := p.Target

	if err := h.sessions.UpdateData(ctx, chatID, map[string]any{
		keyCurGroup: group, keyDelGroup: group,
	}); err != nil {
		zap.L().Error("failed to store pending deletion",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	if err := h.sessions.SetState(ctx, chatID, models.StateAdminConfirm); err != nil {
		zap.L().Error("failed to set state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	yes := callbacks.New(callbacks.AdminDelGroupYes).WithTarget(group)
	h.render.Render(ctx, chatID,
		fmt.Sprintf("❓ Delete group <b>%s</b> with all of its students?", html.EscapeString(group)),
		bot.ConfirmActionKeyboard(yes))
}

func (h *Handler) handleAdminDelGroupYes(ctx context.Context, cb *tgbotapi.CallbackQuery, p callbacks.Payload) {
	chatID := cb.Message.Chat.ID
	if h.ensureAdmin(ctx, cb) == nil {
		return
	}

	group := p.Target
	if group == "" {
		sess, err := h.sessions.Get(ctx, chatID)
		if err != nil {
			zap.L().Error("failed to load session",
				zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
			return
		}
		group = sess.String(keyDelGroup)
	}
	if group == "" {
		_ = h.transport.Alert(cb.ID, "❌ Group not found")
		return
	}

	if err := h.students.DeleteGroup(ctx, group); err != nil {
		zap.L().Error("failed to delete group",
			zap.String(logger.FieldGroup, group), zap.Error(err))
		_ = h.transport.Alert(cb.ID, "❌ Could not delete the group")
		return
	}
	h.showAdminGroups(ctx, chatID)
}

func (h *Handler) handleAdminCourses(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	h.showAdminCourses(ctx, cb)
}

func (h *Handler) showAdminCourses(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	sess := h.ensureAdmin(ctx, cb)
	if sess == nil {
		return
	}
	h.renderAdminCourses(ctx, cb.Message.Chat.ID, sess.Cookie)
}

func (h *Handler) renderAdminCourses(ctx context.Context, chatID int64, cookie string) {
	courses, err := h.admin.ListCourses(ctx, cookie)
	if err != nil {
		zap.L().Error("failed to list courses", zap.Error(err))
	}
	if err := h.sessions.SetState(ctx, chatID, models.StateAdminCourses); err != nil {
		zap.L().Error("failed to set state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	h.render.Render(ctx, chatID, "📚 <b>Courses</b>", bot.AdminCoursesKeyboard(courses))
}

func (h *Handler) handleAdminCourse(ctx context.Context, cb *tgbotapi.CallbackQuery, p callbacks.Payload) {
	chatID := cb.Message.Chat.ID
	sess := h.ensureAdmin(ctx, cb)
	if sess == nil {
		return
	}
	courseID := p.Target

	info, err := h.admin.CourseInfo(ctx, sess.Cookie, courseID)
	if err != nil {
		zap.L().Error("failed to fetch course info",
			zap.String(logger.FieldCourseID, courseID), zap.Error(err))
		_ = h.transport.Alert(cb.ID, "❌ Server error, try again later")
		return
	}

	text := fmt.Sprintf("📘 <b>Course %s</b>", html.EscapeString(courseID))
	if info != nil {
		text = fmt.Sprintf("📘 <b>%s</b> (%s)",
			html.EscapeString(info.Name), html.EscapeString(info.Semester))
		if info.GitHubOrg != "" {
			text += fmt.Sprintf("\n🔗 GitHub: https://github.com/%s", info.GitHubOrg)
		}
		if info.Spreadsheet != "" {
			text += fmt.Sprintf("\n📊 Sheet: %s", info.Spreadsheet)
		}
	}

	if err := h.sessions.UpdateData(ctx, chatID, map[string]any{keyCurCourse: courseID}); err != nil {
		zap.L().Error("failed to store course id",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	if err := h.sessions.SetState(ctx, chatID, models.StateAdminCourseInfo); err != nil {
		zap.L().Error("failed to set state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	h.render.Render(ctx, chatID, text, bot.CourseActionsKeyboard(courseID))
}

func (h *Handler) handleAdminCourseDel(ctx context.Context, cb *tgbotapi.CallbackQuery, p callbacks.Payload) {
	chatID := cb.Message.Chat.ID
	courseID := p.Target

	if err := h.sessions.UpdateData(ctx, chatID, map[string]any{keyDelCourse: courseID}); err != nil {
		zap.L().Error("failed to store pending deletion",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	if err := h.sessions.SetState(ctx, chatID, models.StateAdminConfirm); err != nil {
		zap.L().Error("failed to set state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	yes := callbacks.New(callbacks.AdminCourseDelYes).WithTarget(courseID)
	h.render.Render(ctx, chatID,
		fmt.Sprintf("❓ Delete course <b>%s</b>?", html.EscapeString(courseID)),
		bot.ConfirmActionKeyboard(yes))
}

func (h *Handler) handleAdminCourseDelYes(ctx context.Context, cb *tgbotapi.CallbackQuery, p callbacks.Payload) {
	chatID := cb.Message.Chat.ID
	sess := h.ensureAdmin(ctx, cb)
	if sess == nil {
		return
	}

	courseID := p.Target
	if courseID == "" {
		if s, err := h.sessions.Get(ctx, chatID); err == nil {
			courseID = s.String(keyDelCourse)
		}
	}
	if courseID == "" {
		_ = h.transport.Alert(cb.ID, "❌ Course not found")
		return
	}

	if err := h.admin.DeleteCourse(ctx, sess.Cookie, courseID); err != nil {
		zap.L().Error("failed to delete course",
			zap.String(logger.FieldCourseID, courseID), zap.Error(err))
		_ = h.transport.Alert(cb.ID, "❌ Could not delete the course")
		return
	}
	h.showAdminCourses(ctx, cb)
}

func (h *Handler) handleAdminCourseAdd(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	if h.ensureAdmin(ctx, cb) == nil {
		return
	}
	if err := h.sessions.SetState(ctx, chatID, models.StateAdminEdit); err != nil {
		zap.L().Error("failed to set state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		return
	}
	h.render.Render(ctx, chatID,
		"📤 Send the course archive as a document", bot.UploadBackKeyboard())
}

// handleAdminEditMessage consumes messages while the panel waits for a course
// file. A document is uploaded; anything else cancels the upload.
func (h *Handler) handleAdminEditMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	_ = h.transport.Delete(chatID, msg.MessageID)

	sess, reason := h.validAdminSession(ctx)
	if sess == nil {
		if _, err := h.transport.Send(chatID, reason, nil); err != nil {
			zap.L().Warn("failed to notify about stale session",
				zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		}
		h.showAdminMain(ctx, chatID)
		return
	}

	if msg.Document == nil {
		h.renderAdminCourses(ctx, chatID, sess.Cookie)
		return
	}

	fileURL, err := h.transport.FileURL(msg.Document.FileID)
	if err != nil {
		zap.L().Error("failed to resolve document url",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		h.render.Render(ctx, chatID,
			"❌ Could not download the file, send it again", bot.UploadBackKeyboard())
		return
	}
	if err := h.admin.UploadCourse(ctx, sess.Cookie, fileURL, msg.Document.FileName); err != nil {
		zap.L().Error("course upload failed", zap.Error(err))
		h.render.Render(ctx, chatID,
			"❌ Course upload failed, send the file again", bot.UploadBackKeyboard())
		return
	}

	if err := h.sessions.SetState(ctx, chatID, models.StateAdminCourses); err != nil {
		zap.L().Error("failed to set state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	courses, err := h.admin.ListCourses(ctx, sess.Cookie)
	if err != nil {
		zap.L().Error("failed to list courses", zap.Error(err))
	}
	h.render.Render(ctx, chatID, "✅ Course uploaded\n\n📚 <b>Courses</b>",
		bot.AdminCoursesKeyboard(courses))
}

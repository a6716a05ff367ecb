package handlers

import (
	"context"
	"fmt"
	"html"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"gradebot/internal/api"
	"gradebot/internal/bot"
	"gradebot/internal/callbacks"
	"gradebot/internal/grading"
	"gradebot/internal/models"
	"gradebot/internal/semester"
	"gradebot/pkg/logger"
)

func defaultSemester() string {
	return semester.Current()
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	h.poller.CancelChat(chatID)
	_ = h.transport.Delete(chatID, msg.MessageID)

	student, err := h.students.GetByChat(ctx, chatID)
	if err == nil && student != nil {
		h.render.Render(ctx, chatID,
			fmt.Sprintf("👋 Hello, <b>%s</b>!\n\n🏠 Main menu", html.EscapeString(student.Name)),
			bot.MainMenuKeyboard())
		return
	}
	h.render.Render(ctx, chatID,
		"👋 Welcome to the course bot!\n\nPress «Register» to begin", bot.StartKeyboard())
}

func (h *Handler) handleMenuInfo(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	student, err := h.students.GetByChat(ctx, chatID)
	if err != nil || student == nil {
		_ = h.transport.Alert(cb.ID, "❌ No registration data found")
		return
	}

	text := fmt.Sprintf("👤 <b>%s</b>\n🎓 Group: %s\n🔗 GitHub: %s",
		html.EscapeString(student.DisplayName()),
		html.EscapeString(student.GroupCode),
		html.EscapeString(student.GitHub))
	if len(student.Courses) > 0 {
		text += "\n📚 Courses:"
		for _, c := range student.Courses {
			text += fmt.Sprintf("\n  • %s (%s)", html.EscapeString(c.Name), html.EscapeString(c.Semester))
		}
	}
	h.render.Render(ctx, chatID, text, bot.BackMenuKeyboard())
}

func (h *Handler) handleBackMenu(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	h.render.Render(ctx, cb.Message.Chat.ID, "🏠 Main menu", bot.MainMenuKeyboard())
}

// splitCourses partitions the listing into this semester's courses and the
// rest.
func (h *Handler) splitCourses(ctx context.Context) (active, other []api.Course) {
	courses, err := h.courses.Courses(ctx)
	if err != nil {
		zap.L().Warn("course listing unavailable", zap.Error(err))
		return nil, nil
	}
	current := h.semester()
	for _, c := range courses {
		if c.Semester == current {
			active = append(active, c)
		} else {
			other = append(other, c)
		}
	}
	return active, other
}

func (h *Handler) showActiveCourses(ctx context.Context, chatID int64) {
	active, other := h.splitCourses(ctx)
	text := fmt.Sprintf("📚 <b>Courses of %s</b>", html.EscapeString(h.semester()))
	h.render.Render(ctx, chatID, text, bot.CoursesKeyboard(active, len(other) > 0))
}

func (h *Handler) showOtherCourses(ctx context.Context, chatID int64) {
	_, other := h.splitCourses(ctx)
	h.render.Render(ctx, chatID, "📚 <b>Other courses</b>", bot.CoursesKeyboard(other, false))
}

func (h *Handler) findCourse(ctx context.Context, id string) *api.Course {
	courses, err := h.courses.Courses(ctx)
	if err != nil {
		zap.L().Warn("course listing unavailable", zap.Error(err))
		return nil
	}
	for i := range courses {
		if strconv.FormatInt(courses[i].ID, 10) == id {
			return &courses[i]
		}
	}
	return nil
}

func (h *Handler) handleCourseSelected(ctx context.Context, cb *tgbotapi.CallbackQuery, p callbacks.Payload) {
	chatID := cb.Message.Chat.ID
	courseID := p.Target

	course := h.findCourse(ctx, courseID)
	if course == nil {
		_ = h.transport.Alert(cb.ID, "❌ Course not found")
		return
	}
	student, err := h.students.GetByChat(ctx, chatID)
	if err != nil || student == nil {
		_ = h.transport.Alert(cb.ID, "⚠️ Register first to open a course")
		return
	}

	if !student.HasCourse(course.Name, course.Semester) {
		res, err := h.courses.RegisterStudent(ctx, courseID, student.GroupCode, api.RegisterRequest{
			Name:       student.Name,
			Surname:    student.Surname,
			Patronymic: student.Patronymic,
			GitHub:     student.GitHub,
		})
		if err != nil || res == nil {
			zap.L().Error("course registration failed",
				zap.Int64(logger.FieldChatID, chatID),
				zap.String(logger.FieldCourseID, courseID), zap.Error(err))
			_ = h.transport.Alert(cb.ID, "❌ Server error, try again later")
			return
		}
		if res.Status != api.StatusRegistered && res.Status != api.StatusAlreadyRegistered {
			msg := res.Message
			if msg == "" {
				msg = "❌ Could not join the course"
			}
			_ = h.transport.Alert(cb.ID, msg)
			return
		}
		student.Courses = append(student.Courses, models.CourseRef{
			Name: course.Name, Semester: course.Semester,
		})
		if err := h.students.Update(ctx, student); err != nil {
			zap.L().Error("failed to save course membership",
				zap.Int64(logger.FieldChatID, chatID),
				zap.String(logger.FieldCourseID, courseID), zap.Error(err))
			_ = h.transport.Alert(cb.ID, "❌ Server error, try again later")
			return
		}
	}

	groups, err := h.courses.Groups(ctx, courseID)
	if err != nil {
		zap.L().Warn("group listing unavailable",
			zap.String(logger.FieldCourseID, courseID), zap.Error(err))
	}
	if !contains(groups, student.GroupCode) {
		_ = h.transport.Alert(cb.ID, "⚠️ This course is not available for your group")
		return
	}

	labs, err := h.courses.Labs(ctx, courseID, student.GroupCode)
	if err != nil {
		zap.L().Warn("lab listing unavailable",
			zap.String(logger.FieldCourseID, courseID),
			zap.String(logger.FieldGroup, student.GroupCode), zap.Error(err))
	}
	if len(labs) == 0 {
		_ = h.transport.Alert(cb.ID, "📭 No labs for your group yet")
		return
	}

	info, err := h.courses.CourseInfo(ctx, courseID)
	if err != nil {
		zap.L().Warn("course info unavailable",
			zap.String(logger.FieldCourseID, courseID), zap.Error(err))
	}
	h.render.Render(ctx, chatID, courseHeader(course, info), bot.LabsKeyboard(labs, courseID))
}

func courseHeader(course *api.Course, info *api.CourseInfo) string {
	text := fmt.Sprintf("🧪 <b>%s</b> (%s)",
		html.EscapeString(course.Name), html.EscapeString(course.Semester))
	if info != nil {
		if info.GitHubOrg != "" {
			text += fmt.Sprintf("\n🔗 <a href=\"https://github.com/%s\">GitHub organization</a>", info.GitHubOrg)
		}
		if info.Spreadsheet != "" {
			text += fmt.Sprintf("\n📊 <a href=\"%s\">Score sheet</a>", info.Spreadsheet)
		}
	}
	return text + "\n\nPick a lab to check:"
}

func (h *Handler) handleLabSelected(ctx context.Context, cb *tgbotapi.CallbackQuery, p callbacks.Payload) {
	chatID := cb.Message.Chat.ID
	student, err := h.students.GetByChat(ctx, chatID)
	if err != nil || student == nil {
		_ = h.transport.Alert(cb.ID, "⚠️ Register first to run checks")
		return
	}

	_ = h.transport.Delete(chatID, cb.Message.MessageID)
	msgID, err := h.transport.Send(chatID,
		fmt.Sprintf("⏳ Checking <b>%s</b>, this can take a while…", html.EscapeString(p.Target)), nil)
	if err != nil {
		zap.L().Error("failed to send check placeholder",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		return
	}
	// Tracked so a later render replaces the placeholder even when the poll
	// behind it was cancelled before its terminal edit.
	if err := h.sessions.SetLastMessageID(ctx, chatID, msgID); err != nil {
		zap.L().Warn("failed to record placeholder id",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}

	h.poller.Start(grading.Request{
		ChatID:    chatID,
		MessageID: msgID,
		CourseID:  p.Course,
		Group:     student.GroupCode,
		LabID:     p.Target,
		GitHub:    student.GitHub,
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

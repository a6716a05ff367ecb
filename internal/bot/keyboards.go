package bot

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gradebot/internal/api"
	"gradebot/internal/callbacks"
)

// Keyboard builders for every flow. Each returns a pointer so callers can
// pass nil for "no keyboard".

func button(text string, p callbacks.Payload) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, p.Encode())
}

func markup(rows ...[]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func StartKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(tgbotapi.NewInlineKeyboardRow(
		button("📝 Register", callbacks.New(callbacks.RegStart)),
	))
}

// NavKeyboard is the registration step navigation; the first step has no
// back button.
func NavKeyboard(includeBack bool) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if includeBack {
		row = append(row, button("⬅️ Back", callbacks.New(callbacks.RegBack)))
	}
	row = append(row, button("🔄 Start over", callbacks.New(callbacks.RegRestart)))
	return markup(row)
}

func ConfirmKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(
		tgbotapi.NewInlineKeyboardRow(button("✅ Confirm", callbacks.New(callbacks.RegConfirm))),
		tgbotapi.NewInlineKeyboardRow(button("🔄 Start over", callbacks.New(callbacks.RegRestart))),
	)
}

func MainMenuKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(
		tgbotapi.NewInlineKeyboardRow(button("📚 Choose course", callbacks.New(callbacks.MenuCourses))),
		tgbotapi.NewInlineKeyboardRow(button("ℹ️ My info", callbacks.New(callbacks.MenuInfo))),
	)
}

func BackMenuKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(tgbotapi.NewInlineKeyboardRow(
		button("⬅️ Back", callbacks.New(callbacks.BackMenu)),
	))
}

func HomeKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(tgbotapi.NewInlineKeyboardRow(
		button("🏠 Main menu", callbacks.New(callbacks.BackMenu)),
	))
}

func CoursesKeyboard(courses []api.Course, addOther bool) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if len(courses) == 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("📭 Empty", callbacks.New(callbacks.EmptyList)),
		))
	}
	for _, c := range courses {
		p := callbacks.New(callbacks.Course).WithTarget(strconv.FormatInt(c.ID, 10))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button(fmt.Sprintf("%s (%s)", c.Name, c.Semester), p),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if addOther {
		nav = append(nav, button("📚 Other courses", callbacks.New(callbacks.CoursesOther)))
	}
	nav = append(nav, button("⬅️ Back", callbacks.New(callbacks.BackMenu)))
	rows = append(rows, nav)

	return markup(rows...)
}

func LabsKeyboard(labs []string, courseID string) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, lab := range labs {
		p := callbacks.New(callbacks.Lab).WithCourse(courseID).WithTarget(lab)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(lab, p)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("⬅️ Back", callbacks.New(callbacks.CoursesBack)),
	))
	return markup(rows...)
}

func LoginCancelKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(tgbotapi.NewInlineKeyboardRow(
		button("❌ Cancel", callbacks.New(callbacks.AdminCancel)),
	))
}

func AdminMainKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(
		tgbotapi.NewInlineKeyboardRow(button("📚 Courses", callbacks.New(callbacks.AdminCourses))),
		tgbotapi.NewInlineKeyboardRow(button("👥 Students", callbacks.New(callbacks.AdminGroups))),
		tgbotapi.NewInlineKeyboardRow(button("🚪 Log out", callbacks.New(callbacks.AdminLogout))),
	)
}

func GroupsKeyboard(groups []string) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if len(groups) == 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("📭 Empty", callbacks.New(callbacks.EmptyList)),
		))
	}
	for _, g := range groups {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button(g, callbacks.New(callbacks.AdminGroup).WithTarget(g)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("⬅️ Back", callbacks.New(callbacks.AdminBack)),
	))
	return markup(rows...)
}

func StudentsKeyboard(students []string, group string) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if len(students) == 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("📭 Empty", callbacks.New(callbacks.EmptyList)),
		))
	}
	for idx, name := range students {
		p := callbacks.New(callbacks.AdminStudent).WithTarget(group).WithIndex(idx)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(name, p)))
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		button("🗑️ Delete group", callbacks.New(callbacks.AdminDelGroup).WithTarget(group)),
		button("⬅️ Back", callbacks.New(callbacks.AdminBackGroups)),
	})
	return markup(rows...)
}

func StudentInfoKeyboard(group string, idx int) *tgbotapi.InlineKeyboardMarkup {
	del := callbacks.New(callbacks.AdminDelStudent).WithTarget(group).WithIndex(idx)
	back := callbacks.New(callbacks.AdminBackStudents).WithTarget(group)
	return markup(
		tgbotapi.NewInlineKeyboardRow(button("🗑️ Delete student", del)),
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Back", back)),
	)
}

// ConfirmActionKeyboard is the destructive-action round-trip: the yes payload
// encodes the target, cancel restores the prior view.
func ConfirmActionKeyboard(yes callbacks.Payload) *tgbotapi.InlineKeyboardMarkup {
	return markup(
		tgbotapi.NewInlineKeyboardRow(button("✅ Confirm", yes)),
		tgbotapi.NewInlineKeyboardRow(button("❌ Cancel", callbacks.New(callbacks.AdminCancel))),
	)
}

func AdminCoursesKeyboard(courses []api.Course) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if len(courses) == 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("📭 Empty", callbacks.New(callbacks.EmptyList)),
		))
	}
	for _, c := range courses {
		p := callbacks.New(callbacks.AdminCourse).WithTarget(strconv.FormatInt(c.ID, 10))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button(fmt.Sprintf("%s (%s)", c.Name, c.Semester), p),
		))
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		button("➕ Add", callbacks.New(callbacks.AdminCourseAdd)),
		button("⬅️ Back", callbacks.New(callbacks.AdminBack)),
	})
	return markup(rows...)
}

func CourseActionsKeyboard(courseID string) *tgbotapi.InlineKeyboardMarkup {
	return markup(
		tgbotapi.NewInlineKeyboardRow(
			button("🗑️ Delete", callbacks.New(callbacks.AdminCourseDel).WithTarget(courseID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("⬅️ Back", callbacks.New(callbacks.AdminBackCourses)),
		),
	)
}

func UploadBackKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(tgbotapi.NewInlineKeyboardRow(
		button("⬅️ Back", callbacks.New(callbacks.AdminBackCourses)),
	))
}

package models

import "time"

// CourseRef is one course a student is attached to. Equality is (name, semester).
type CourseRef struct {
	Name     string `json:"name"`
	Semester string `json:"semester"`
}

// Student is a registered student record. Patronymic is empty when the
// student has none. The tuple (surname, name, group code, github) is unique
// system-wide, as is the owning chat id.
type Student struct {
	ID         int64       `db:"id"`
	ChatID     int64       `db:"chat_id"`
	Surname    string      `db:"surname"`
	Name       string      `db:"name"`
	Patronymic string      `db:"patronymic"`
	GroupCode  string      `db:"group_code"`
	GitHub     string      `db:"github"`
	Courses    []CourseRef `db:"courses"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

// HasCourse reports whether the student already holds a reference to the
// given course.
func (s *Student) HasCourse(name, semester string) bool {
	for _, c := range s.Courses {
		if c.Name == name && c.Semester == semester {
			return true
		}
	}
	return false
}

// DisplayName renders "Surname Name Patronymic" with the patronymic omitted
// when absent.
func (s *Student) DisplayName() string {
	if s.Patronymic == "" {
		return s.Surname + " " + s.Name
	}
	return s.Surname + " " + s.Name + " " + s.Patronymic
}

// Session is one chat's conversation state: the current flow state tag, an
// arbitrary data bag, and the id of the last bot message rendered into the
// chat.
type Session struct {
	ChatID        int64
	State         State
	Data          map[string]any
	LastMessageID int
}

// String returns the string value stored under key, or "" when the key is
// absent or not a string.
func (s *Session) String(key string) string {
	v, _ := s.Data[key].(string)
	return v
}

// Int returns the integer value stored under key. JSON round-trips turn
// numbers into float64, so both forms are accepted.
func (s *Session) Int(key string) (int, bool) {
	switch v := s.Data[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// StringSlice returns the string-slice value stored under key. A slice that
// went through JSON comes back as []any.
func (s *Session) StringSlice(key string) []string {
	switch v := s.Data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// AdminSession is the single stored admin credential.
type AdminSession struct {
	Cookie    string
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at the given time.
func (a *AdminSession) Expired(now time.Time) bool {
	return !a.ExpiresAt.After(now)
}

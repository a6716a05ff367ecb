package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStudentDisplayName(t *testing.T) {
	withPatronymic := Student{Surname: "Ivanov", Name: "Ivan", Patronymic: "Ivanovich"}
	assert.Equal(t, "Ivanov Ivan Ivanovich", withPatronymic.DisplayName())

	without := Student{Surname: "Petrov", Name: "Petr"}
	assert.Equal(t, "Petrov Petr", without.DisplayName())
}

func TestStudentHasCourse(t *testing.T) {
	s := Student{Courses: []CourseRef{{Name: "OS", Semester: "Fall 2025"}}}

	assert.True(t, s.HasCourse("OS", "Fall 2025"))
	assert.False(t, s.HasCourse("OS", "Spring 2026"))
	assert.False(t, s.HasCourse("Networks", "Fall 2025"))
}

func TestSessionAccessors(t *testing.T) {
	sess := Session{Data: map[string]any{
		"name":    "Ivan",
		"idx":     float64(2), // a JSON round-trip widens ints
		"raw_idx": 5,
		"list":    []any{"a", "b"},
		"typed":   []string{"x"},
	}}

	assert.Equal(t, "Ivan", sess.String("name"))
	assert.Equal(t, "", sess.String("missing"))
	assert.Equal(t, "", sess.String("idx"))

	i, ok := sess.Int("idx")
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	i, ok = sess.Int("raw_idx")
	assert.True(t, ok)
	assert.Equal(t, 5, i)
	_, ok = sess.Int("name")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b"}, sess.StringSlice("list"))
	assert.Equal(t, []string{"x"}, sess.StringSlice("typed"))
	assert.Nil(t, sess.StringSlice("name"))
}

func TestAdminSessionExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	live := AdminSession{ExpiresAt: now.Add(time.Minute)}
	dead := AdminSession{ExpiresAt: now.Add(-time.Minute)}
	edge := AdminSession{ExpiresAt: now}

	assert.False(t, live.Expired(now))
	assert.True(t, dead.Expired(now))
	assert.True(t, edge.Expired(now))
}

// Package callbacks encodes inline-button payloads as an action tag plus
// query-escaped parameters. Escaping keeps group codes and course ids that
// contain the separator characters unambiguous, which a naive
// delimiter-joined encoding cannot.
package callbacks

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Action identifies what a button press asks for.
type Action string

// Student-side actions.
const (
	RegStart     Action = "reg_start"
	RegBack      Action = "reg_back"
	RegRestart   Action = "reg_restart"
	RegConfirm   Action = "reg_confirm"
	MenuInfo     Action = "menu_info"
	MenuCourses  Action = "menu_courses"
	BackMenu     Action = "back_menu"
	CoursesOther Action = "courses_other"
	CoursesBack  Action = "courses_back"
	Course       Action = "course" // Target: course id
	Lab          Action = "lab"    // Course: course id, Target: lab id
	EmptyList    Action = "empty"
)

// Admin-side actions.
const (
	AdminCancel        Action = "admin_cancel"
	AdminLogout        Action = "admin_logout"
	AdminBack          Action = "admin_back"
	AdminGroups        Action = "admin_groups"
	AdminGroup         Action = "adm_group" // Target: group code
	AdminBackGroups    Action = "admin_back_groups"
	AdminStudent       Action = "adm_student" // Target: group code, Index
	AdminBackStudents  Action = "adm_back_students"
	AdminDelStudent    Action = "adm_del_student"
	AdminDelStudentYes Action = "adm_del_student_yes"
	AdminDelGroup      Action = "adm_del_group"
	AdminDelGroupYes   Action = "adm_del_group_yes"
	AdminCourses       Action = "admin_courses"
	AdminBackCourses   Action = "admin_back_courses"
	AdminCourse        Action = "adm_course" // Target: course id
	AdminCourseDel     Action = "adm_course_del"
	AdminCourseDelYes  Action = "adm_course_del_yes"
	AdminCourseAdd     Action = "adm_course_add"
)

// Payload is a decoded button press. Index is -1 when the button carries no
// list position.
type Payload struct {
	Action Action
	Target string
	Course string
	Index  int
}

var ErrBadPayload = errors.New("malformed callback payload")

// New builds a payload with no list position.
func New(action Action) Payload {
	return Payload{Action: action, Index: -1}
}

// WithTarget attaches the primary identifier (group code, course id, lab id).
func (p Payload) WithTarget(target string) Payload {
	p.Target = target
	return p
}

// WithCourse attaches a secondary course-id parameter.
func (p Payload) WithCourse(id string) Payload {
	p.Course = id
	return p
}

// WithIndex attaches a list position.
func (p Payload) WithIndex(i int) Payload {
	p.Index = i
	return p
}

// Encode renders the payload into callback-data form:
// "action" or "action?t=...&c=...&i=...".
func (p Payload) Encode() string {
	v := url.Values{}
	if p.Target != "" {
		v.Set("t", p.Target)
	}
	if p.Course != "" {
		v.Set("c", p.Course)
	}
	if p.Index >= 0 {
		v.Set("i", strconv.Itoa(p.Index))
	}
	if len(v) == 0 {
		return string(p.Action)
	}
	return string(p.Action) + "?" + v.Encode()
}

// Decode parses callback data produced by Encode.
func Decode(data string) (Payload, error) {
	action, query, hasQuery := strings.Cut(data, "?")
	if action == "" {
		return Payload{}, ErrBadPayload
	}
	p := Payload{Action: Action(action), Index: -1}
	if !hasQuery {
		return p, nil
	}

	v, err := url.ParseQuery(query)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	p.Target = v.Get("t")
	p.Course = v.Get("c")
	if raw := v.Get("i"); raw != "" {
		i, err := strconv.Atoi(raw)
		if err != nil {
			return Payload{}, fmt.Errorf("%w: bad index %q", ErrBadPayload, raw)
		}
		p.Index = i
	}
	return p, nil
}

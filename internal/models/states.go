package models

// State is a conversation flow state tag. The empty tag means the chat is in
// no flow. Each flow owns a closed set of tags; dispatch for a state outside
// its flow's table is rejected, never fallen through.
type State string

const StateNone State = ""

// Registration wizard states, in fixed linear order.
const (
	StateRegSurname    State = "reg_surname"
	StateRegName       State = "reg_name"
	StateRegPatronymic State = "reg_patronymic"
	StateRegGroup      State = "reg_group"
	StateRegGitHub     State = "reg_github"
	StateRegConfirm    State = "reg_confirm"
)

// RegOrder is the forward transition table of the registration wizard. The
// step after the last input state is StateRegConfirm.
var RegOrder = []State{
	StateRegSurname,
	StateRegName,
	StateRegPatronymic,
	StateRegGroup,
	StateRegGitHub,
}

// regPrev maps each registration input state to its predecessor. The first
// state has none.
var regPrev = map[State]State{}

func init() {
	for i := 1; i < len(RegOrder); i++ {
		regPrev[RegOrder[i]] = RegOrder[i-1]
	}
}

// RegPrev returns the predecessor of a registration state, and false for the
// first state.
func RegPrev(s State) (State, bool) {
	p, ok := regPrev[s]
	return p, ok
}

// RegNext returns the successor of a registration input state, and false when
// s is the last input state (the caller moves to StateRegConfirm).
func RegNext(s State) (State, bool) {
	for i, st := range RegOrder {
		if st == s && i+1 < len(RegOrder) {
			return RegOrder[i+1], true
		}
	}
	return StateNone, false
}

// IsRegInput reports whether s is a registration state that accepts text.
func IsRegInput(s State) bool {
	for _, st := range RegOrder {
		if st == s {
			return true
		}
	}
	return false
}

// Admin login sub-machine states.
const (
	StateAdminLogin    State = "admin_login"
	StateAdminPassword State = "admin_password"
)

// Admin menu states, entered only from an authenticated main panel.
const (
	StateAdminMain        State = "admin_main"
	StateAdminGroups      State = "admin_groups"
	StateAdminStudents    State = "admin_students"
	StateAdminStudentInfo State = "admin_student_info"
	StateAdminCourses     State = "admin_courses"
	StateAdminCourseInfo  State = "admin_course_info"
	StateAdminEdit        State = "admin_edit"
	StateAdminConfirm     State = "admin_confirm"
)

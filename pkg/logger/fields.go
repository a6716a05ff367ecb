package logger

// Standard field names for consistent logging.
const (
	FieldService  = "service"
	FieldError    = "error"
	FieldChatID   = "chat_id"
	FieldState    = "state"
	FieldCourseID = "course_id"
	FieldGroup    = "group"
	FieldLabID    = "lab_id"
)

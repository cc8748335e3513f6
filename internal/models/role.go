package models

// Action enumerates the operations subject to role checks.
type Action string

const (
	ActionViewAny          Action = "VIEW_ANY"
	ActionViewOwn          Action = "VIEW_OWN"
	ActionCreateCourse     Action = "CREATE_COURSE"
	ActionEditCourse       Action = "EDIT_COURSE"
	ActionDeleteCourse     Action = "DELETE_COURSE"
	ActionCreateProfile    Action = "CREATE_PROFILE"
	ActionEditProfile      Action = "EDIT_PROFILE"
	ActionDeleteProfile    Action = "DELETE_PROFILE"
	ActionCreateEnrollment Action = "CREATE_ENROLLMENT"
	ActionEditEnrollment   Action = "EDIT_ENROLLMENT"
	ActionDeleteEnrollment Action = "DELETE_ENROLLMENT"
)

// capabilities is the exhaustive role-capability table. Absence means deny;
// STUDENT enrollment creation is self-only, enforced at the object level.
var capabilities = map[UserRole]map[Action]struct{}{
	RoleAdmin: {
		ActionViewAny:          {},
		ActionViewOwn:          {},
		ActionCreateCourse:     {},
		ActionEditCourse:       {},
		ActionDeleteCourse:     {},
		ActionCreateProfile:    {},
		ActionEditProfile:      {},
		ActionDeleteProfile:    {},
		ActionCreateEnrollment: {},
		ActionEditEnrollment:   {},
		ActionDeleteEnrollment: {},
	},
	RoleTeacher: {
		ActionViewAny:          {},
		ActionViewOwn:          {},
		ActionEditCourse:       {},
		ActionEditProfile:      {},
		ActionCreateEnrollment: {},
		ActionEditEnrollment:   {},
		ActionDeleteEnrollment: {},
	},
	RoleStudent: {
		ActionViewOwn:          {},
		ActionCreateEnrollment: {},
	},
}

// Can reports whether the role is allowed to perform the action.
func Can(role UserRole, action Action) bool {
	actions, ok := capabilities[role]
	if !ok {
		return false
	}
	_, ok = actions[action]
	return ok
}

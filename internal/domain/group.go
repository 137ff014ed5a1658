package domain

type GroupID string

// Role is the member's privilege level inside a group, mirrored from the
// membership store. Exactly one CREATOR exists per group.
type Role string

const (
	RoleCreator    Role = "CREATOR"
	RoleController Role = "CONTROLLER"
	RoleMember     Role = "MEMBER"
)

// CanControl reports whether the role may issue privileged actions
// (method selection, forced content reset) and publish media.
func (r Role) CanControl() bool {
	return r == RoleCreator || r == RoleController
}

func (r Role) Valid() bool {
	switch r {
	case RoleCreator, RoleController, RoleMember:
		return true
	}
	return false
}

// Group is the persisted group record as the coordinator sees it.
// Idle means no member able to control playback is present.
type Group struct {
	ID   GroupID `json:"id"`
	Name string  `json:"name"`
	Idle bool    `json:"isIdle"`
}

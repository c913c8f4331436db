package domain

// Role - closed set of participant roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates a role received from a caller.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

func (r Role) String() string {
	return string(r)
}

// User - one row per caller identity.
type User struct {
	// ID - opaque identity assigned by the host.
	ID          string `json:"identity"`
	SessionID   string `json:"session_id"`
	Role        Role   `json:"role"`
	ConnectedAt int64  `json:"connected_at"`
}

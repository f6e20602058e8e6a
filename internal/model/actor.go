package model

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID         string
	Name       string
	Email      string
	RoleCode   string
	Privileges []string
}

func (a Actor) IsAdmin() bool {
	return a.RoleCode == RoleAdmin
}

func (a Actor) Can(privilege string) bool {
	for _, p := range a.Privileges {
		if p == privilege {
			return true
		}
	}
	return false
}

// SystemActor is used for seeding and scheduled jobs.
var SystemActor = Actor{ID: "system", Name: "System", RoleCode: RoleAdmin}

package model

// Actor is the authenticated profile a service call runs as.
// StoreID scopes every query.
type Actor struct {
	StoreID   uint
	ProfileID uint
	Role      ProfileRole
}

func (a Actor) IsManager() bool {
	return a.Role.IsManager()
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Audience selects which members of a store may receive an event.
// Managers see everything addressed to them; other roles only see events
// that name their profile.
type Audience struct {
	Managers   bool
	ProfileIDs []uint
}

// ManagersAnd addresses managers and the listed profiles.
func ManagersAnd(profileIDs ...uint) Audience {
	return Audience{Managers: true, ProfileIDs: profileIDs}
}

func (a Audience) Includes(actor Actor) bool {
	if a.Managers && actor.IsManager() {
		return true
	}
	for _, id := range a.ProfileIDs {
		if id == actor.ProfileID {
			return true
		}
	}
	return false
}

package user

import "time"

// User represents a user entity in the system.
type User struct {
	ID        int64     // ID is the unique identifier for the user; zero until first saved
	Name      string    // Name is the full name of the user
	Email     string    // Email is the unique email address of the user
	CreatedAt time.Time // CreatedAt is set by the store on first save
	UpdatedAt time.Time // UpdatedAt is refreshed by the store on every save
}

// IsNew reports whether the user has not been persisted yet.
func (u *User) IsNew() bool {
	return u.ID == 0
}

package domain

import "time"

// User models a registered account.
type User struct {
	ID           string    `json:"id"`
	Identifier   string    `json:"identifier"`
	FirstName    string    `json:"firstname"`
	LastName     string    `json:"lastname"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPatch carries a partial update. Nil fields are left unchanged.
type UserPatch struct {
	FirstName    *string
	LastName     *string
	PasswordHash *string
}

// IsEmpty reports whether the patch would change nothing.
func (p UserPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.PasswordHash == nil
}

// Apply copies the non-nil fields of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
}

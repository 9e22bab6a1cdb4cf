// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

// User is one account record. PasswordHash is only populated by the
// WithSecret reads and never leaves the process.
type User struct {
	ID           string    `db:"id"            bson:"_id"`
	Email        string    `db:"email"         bson:"email"`
	PasswordHash string    `db:"password_hash" bson:"password_hash,omitempty" json:"-"`
	Name         string    `db:"name"          bson:"name"`
	Role         string    `db:"role"          bson:"role"`
	TokenVersion int       `db:"token_version" bson:"token_version"`
	CreatedAt    time.Time `db:"created_at"    bson:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    bson:"updated_at"`

	Favorites []Favorite `db:"-" bson:"favorites"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Favorite struct {
	Country string    `db:"country"  bson:"country"  json:"country"`
	Flag    string    `db:"flag"     bson:"flag"     json:"flag"`
	AddedAt time.Time `db:"added_at" bson:"added_at" json:"addedAt"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UpdateFields is a partial update. Nil pointers leave the column as is.
type UpdateFields struct {
	Name             *string
	Email            *string
	PasswordHash     *string
	Role             *string
	BumpTokenVersion bool
}

func (f UpdateFields) IsEmpty() bool {
	return f.Name == nil &&
		f.Email == nil &&
		f.PasswordHash == nil &&
		f.Role == nil &&
		!f.BumpTokenVersion
}

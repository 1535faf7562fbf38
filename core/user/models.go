package user

import (
	"database/sql/driver"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/fyp/core"
)

// Role is one of the closed set of roles a User can hold.
type Role string

const (
	RoleStudent    Role = "student"
	RoleSupervisor Role = "supervisor"
	RoleManager    Role = "manager"
	RoleModerator  Role = "moderator"
	RoleExaminer   Role = "examiner"
)

var AllRoles = []Role{RoleStudent, RoleSupervisor, RoleManager, RoleModerator, RoleExaminer}

func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(core.CleanString(s, true /* lower */))
	if !r.IsValid() {
		return "", errors.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Roles is stored as a postgres TEXT[] column.
type Roles []Role

func (rs Roles) Has(role Role) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

func (rs Roles) HasAny(roles ...Role) bool {
	for _, role := range roles {
		if rs.Has(role) {
			return true
		}
	}
	return false
}

func (rs Roles) Strings() []string {
	strs := make([]string, 0, len(rs))
	for _, r := range rs {
		strs = append(strs, string(r))
	}
	return strs
}

func (rs Roles) Value() (driver.Value, error) {
	return pq.StringArray(rs.Strings()).Value()
}

func (rs *Roles) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return errors.Wrap(err, "scanning roles")
	}
	roles := make(Roles, 0, len(arr))
	for _, s := range arr {
		roles = append(roles, Role(s))
	}
	*rs = roles
	return nil
}

type User struct {
	ID           int64      `json:"id" db:"user_id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	Roles        Roles      `json:"roles" db:"roles"`
	PasswordHash []byte     `json:"-" db:"password_hash"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    *time.Time `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) HasRole(role Role) bool { return u.Roles.Has(role) }

// NewUser contains information needed to register a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required,notblank,max=150"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []Role `json:"roles" validate:"required,min=1,dive,role"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields keep their current value.
type UpdateUser struct {
	Name            string `json:"name" validate:"max=150"`
	Email           string `json:"email" validate:"omitempty,email,max=254"`
	Roles           []Role `json:"roles" validate:"omitempty,min=1,dive,role"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	return validate.Struct(uu)
}

type ResetUserPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search   string
	Roles    []Role
	IsActive *bool
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && len(qf.Roles) == 0 && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OrderingFields maps accepted `ordering` query fields to columns.
var OrderingFields = map[string]string{
	"id":         "user_id",
	"name":       "name",
	"email":      "email",
	"created_at": "created_at",
	"last_login": "last_login",
}

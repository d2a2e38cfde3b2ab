package account

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

var (
	AllRoles = []string{RoleStudent, RoleTeacher}

	// hashCost is the bcrypt work factor; tuned once at startup via SetHashCost.
	hashCost = bcrypt.DefaultCost
)

// SetHashCost sets the bcrypt work factor for password hashing. A zero or
// out-of-range cost falls back to bcrypt.DefaultCost.
func SetHashCost(cost int) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashCost = cost
}

type Account struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Role         string    `json:"role" db:"role"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// SetPassword hashes pwd and stores the hash; the clear text is never kept.
func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), hashCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

// CheckPassword reports whether pwd hashes to the stored hash. The comparison
// is constant-time; a malformed stored hash yields an error, never a panic.
func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) IsTeacher() bool { return a.Role == RoleTeacher }
func (a *Account) IsStudent() bool { return a.Role == RoleStudent }

// NewAccount contains information needed to register a new Account.
type NewAccount struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"omitempty,role"`
}

func (na *NewAccount) Validate(svc *Service) error {
	na.Name = core.CleanString(na.Name)
	na.Email = core.NormalizeEmail(na.Email)

	if err := core.Validate.Struct(na); err != nil {
		return err
	}
	return svc.checkUniqueness(na.Email)
}

// UpdateAccount defines what information may be provided to modify an existing
// Account. Identity and role are immutable here.
type UpdateAccount struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (ua *UpdateAccount) Validate(origAcct Account, svc *Service) error {
	name := core.CleanString(ua.Name)
	if name != "" {
		ua.Name = name
	} else {
		ua.Name = origAcct.Name
	}

	email := core.NormalizeEmail(ua.Email)
	if email != "" {
		ua.Email = email
	} else {
		ua.Email = origAcct.Email
	}

	if err := core.Validate.Struct(ua); err != nil {
		return err
	}
	return svc.checkUniqueness(ua.Email, origAcct)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = strings.ToLower(core.CleanString(qf.Role))
}

// PublicAccount is the view of an Account exposed to its owner after login.
type PublicAccount struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (a Account) Public() PublicAccount {
	return PublicAccount{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role}
}

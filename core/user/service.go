package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("user")
	ErrEmailExists      = errors.New("a user with this email already exists")
	ErrRoleRequired     = errors.New("user does not hold the required role")
	ErrInactiveUser     = errors.New("user account is deactivated")
	ErrInvalidResetLink = errors.New("invalid password reset link")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int64) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		// QueryFilter.Roles matches users holding any of the roles.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		// EmailExists reports whether another user than excludedID uses the email.
		EmailExists(ctx context.Context, email string, excludedID int64) (bool, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		SetUserActive(ctx context.Context, id int64, active bool) (User, error)
		SetLastLogin(ctx context.Context, id int64, at time.Time) (User, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		mailSvc  core.EmailService
		tokenGen tokenGenerator
	}
)

func NewService(repo Repository, validate *validator.Validate, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		validate: validate,
		mailSvc:  mailSvc,
		tokenGen: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.PasswordResetTimeoutDelta,
		},
	}
}

func (svc *Service) checkEmailUniqueness(ctx context.Context, email string, excludedID int64) error {
	exists, err := svc.repo.EmailExists(ctx, email, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return nil
}

// Create registers a new active User and emails them their account details.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if err := svc.checkEmailUniqueness(ctx, nu.Email, 0); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     dedupRoles(nu.Roles),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return User{}, errors.Wrap(err, "creating user")
	}

	svc.sendAccountCreatedMail(usr)
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter != nil {
		filter.Clean()
	}
	users, err := svc.repo.QueryUsers(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

// ListActiveByRole returns the active users holding role, by name.
func (svc *Service) ListActiveByRole(ctx context.Context, role Role) ([]User, error) {
	active := true
	return svc.Query(
		ctx,
		&QueryFilter{Roles: []Role{role}, IsActive: &active},
		[]core.DBOrdering{{Field: "name", Ascending: true}},
	)
}

// RequireRole returns the User with given id if they are active and hold role.
func (svc *Service) RequireRole(ctx context.Context, id int64, role Role) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !usr.IsActive {
		return User{}, ErrInactiveUser
	}
	if !usr.HasRole(role) {
		return User{}, ErrRoleRequired
	}
	return usr, nil
}

// RoleFieldError converts a RequireRole failure into a validation error on field.
// Other errors are returned unchanged.
func RoleFieldError(err error, field string, role Role) error {
	cause := errors.Cause(err)
	if cause == ErrNotFound || cause == ErrInactiveUser || cause == ErrRoleRequired {
		msg := fmt.Sprintf("must reference an active %s", role)
		return core.NewValidationError(cause, core.FieldError{Field: field, Error: msg})
	}
	return err
}

func (svc *Service) Update(ctx context.Context, id int64, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = uu.Validate(usr, svc.validate); err != nil {
		return User{}, err
	}
	if uu.Email != usr.Email {
		if err = svc.checkEmailUniqueness(ctx, uu.Email, usr.ID); err != nil {
			return User{}, err
		}
	}

	usr.Name = uu.Name
	usr.Email = uu.Email
	if len(uu.Roles) > 0 {
		usr.Roles = dedupRoles(uu.Roles)
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()

	usr, err = svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

// SetActive deactivates or reactivates a User. Users are never deleted.
func (svc *Service) SetActive(ctx context.Context, id int64, active bool) (User, error) {
	return svc.repo.SetUserActive(ctx, id, active)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	return svc.repo.SetLastLogin(ctx, usr.ID, time.Now().UTC())
}

// ResetPassword sets a new password by hand, bypassing reset tokens.
func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if tag := passwordPolicyViolation(pwd, usr.Name, usr.Email); tag != "" {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "password", Error: passwordPolicyText(tag)})
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestPasswordReset emails a password reset link to the active User owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

// ConfirmPasswordReset checks a reset token and sets the new password.
func (svc *Service) ConfirmPasswordReset(ctx context.Context, data ResetUserPassword) (User, error) {
	if err := data.Validate(svc.validate); err != nil {
		return User{}, err
	}
	invalidLink := core.NewValidationError(ErrInvalidResetLink)

	id, err := decodeUID(data.UID)
	if err != nil {
		return User{}, invalidLink
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, invalidLink
		}
		return User{}, err
	}
	if !usr.IsActive || svc.tokenGen.verifyToken(usr, data.Token) != nil {
		return User{}, invalidLink
	}
	if tag := passwordPolicyViolation(data.Password, usr.Name, usr.Email); tag != "" {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "password", Error: passwordPolicyText(tag)})
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) sendAccountCreatedMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your account has been created",
		TemplateName: "account_created",
		TemplateData: map[string]interface{}{
			"Name":  usr.Name,
			"Email": usr.Email,
			"Roles": usr.Roles.Strings(),
		},
	})
}

func (svc *Service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": svc.tokenGen.makeToken(usr),
		},
	})
}

func passwordPolicyText(tag string) string {
	switch tag {
	case pwdMinLenTag:
		return pwdMinLenText
	case pwdNoSpaceTag:
		return pwdNoSpaceText
	case pwdNotAllNumTag:
		return pwdNotAllNumText
	case pwdComplexityTag:
		return pwdComplexityText
	case pwdAttrSimTag:
		return pwdAttrSimText
	}
	return "invalid password"
}

func dedupRoles(roles []Role) Roles {
	out := make(Roles, 0, len(roles))
	for _, r := range roles {
		if !out.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

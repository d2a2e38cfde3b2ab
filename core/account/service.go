package account

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound           = errors.New("account not found")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// notFoundHash is compared against on the unknown-email path so response
	// timing does not reveal whether an account exists.
	notFoundHash, _ = bcrypt.GenerateFromPassword([]byte("no such account"), bcrypt.DefaultCost)
)

type (
	Repository interface {
		// CheckEmailUniqueness matches emails case-insensitively.
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...Account) error
		CreateAccount(ctx context.Context, acct Account) (Account, error)
		QueryAllAccounts(ctx context.Context) ([]Account, error)
		// FilterAccounts applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Account.Name or Account.Email.
		FilterAccounts(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Account, error)
		GetAccountByID(ctx context.Context, id int) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		UpdateAccount(ctx context.Context, acct Account) (Account, error)
		// AccountHasDependents reports whether the account owns courses or is
		// linked to a student profile.
		AccountHasDependents(ctx context.Context, id int) (bool, error)
		DeleteAccountsByID(ctx context.Context, ids ...int) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

func (svc *Service) checkUniqueness(email string, exclAccts ...Account) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclAccts...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates a new Account. The role defaults to student when omitted.
func (svc *Service) Register(ctx context.Context, na NewAccount) (Account, error) {
	if na.Role == "" {
		na.Role = RoleStudent
	}

	now := time.Now().UTC()
	acct := Account{
		Name:      na.Name,
		Email:     na.Email,
		Role:      na.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acct.SetPassword(na.Password); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}

	acct, err := svc.repo.CreateAccount(ctx, acct)
	if err != nil {
		return Account{}, err
	}

	svc.sendWelcomeEmail(acct)
	return acct, nil
}

// Authenticate checks the credentials against the stored hash. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Account, error) {
	acct, err := svc.repo.GetAccountByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			// burn the same bcrypt work as a real comparison
			_ = bcrypt.CompareHashAndPassword(notFoundHash, []byte(pwd))
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, errors.Wrap(err, "finding account by email")
	}
	if err = acct.CheckPassword(pwd); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Account, error) {
	return svc.repo.QueryAllAccounts(ctx)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Account, error) {
	return svc.repo.FilterAccounts(ctx, filter, ordering...)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Account, error) {
	return svc.repo.GetAccountByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccountByEmail(ctx, core.NormalizeEmail(email))
}

// Update applies the set fields of ua to the account; identity and role are
// not touched. All-or-nothing.
func (svc *Service) Update(ctx context.Context, id int, ua UpdateAccount) (Account, error) {
	acct, err := svc.repo.GetAccountByID(ctx, id)
	if err != nil {
		return Account{}, err
	}

	acct.Name = ua.Name
	acct.Email = ua.Email
	acct.UpdatedAt = time.Now().UTC()
	if ua.Password != "" {
		if err = acct.SetPassword(ua.Password); err != nil {
			return Account{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateAccount(ctx, acct)
}

// SetPassword resets the account's password; used by the admin CLI.
func (svc *Service) SetPassword(ctx context.Context, id int, pwd string) (Account, error) {
	acct, err := svc.repo.GetAccountByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if err = acct.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acct.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAccount(ctx, acct)
}

// Delete refuses with core.ErrHasDependents while courses or a student profile
// still reference the account.
func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	for _, id := range ids {
		hasDeps, err := svc.repo.AccountHasDependents(ctx, id)
		if err != nil {
			return err
		}
		if hasDeps {
			return core.ErrHasDependents
		}
	}
	return svc.repo.DeleteAccountsByID(ctx, ids...)
}

func (svc *Service) sendWelcomeEmail(acct Account) {
	if svc.mailSvc == nil {
		return
	}
	appName := "Shule"
	if svc.conf != nil {
		appName = svc.conf.AppName
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: acct.Name, Address: acct.Email}},
		Subject: "Welcome to " + appName,
		Body: fmt.Sprintf(
			"Hi %s,\r\n\r\nYour %s account has been created. You can now log in with your email address.\r\n",
			acct.Name, appName,
		),
	})
}

package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) *accountRepository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) query() []account.Account {
	accts := make([]account.Account, 0, len(repo.db.accounts))
	for _, acct := range repo.db.accounts {
		accts = append(accts, *acct)
	}
	return accts
}

func (repo *accountRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...account.Account) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.checkEmailUniqueness(email, excluded...)
}

// checkEmailUniqueness must be called with the lock held.
func (repo *accountRepository) checkEmailUniqueness(email string, excluded ...account.Account) error {
	exclLen := len(excluded)
	if exclLen > 1 {
		sort.Slice(excluded, func(i, j int) bool { return excluded[i].ID < excluded[j].ID })
	}

	email = strings.ToLower(email)
	for _, acct := range repo.query() {
		if strings.ToLower(acct.Email) == email && !isExcluded(acct, excluded, exclLen) {
			return account.ErrEmailExists
		}
	}
	return nil
}

// CreateAccount re-checks email uniqueness inside the write lock so two
// concurrent registrations with the same email cannot both land.
func (repo *accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkEmailUniqueness(acct.Email); err != nil {
		return account.Account{}, core.NewConstraintError(core.RuleUniqueEmail, err.Error())
	}

	repo.db.accountPK++
	acct.ID = repo.db.accountPK
	repo.db.accounts[acct.ID] = &acct
	return acct, nil
}

func (repo *accountRepository) QueryAllAccounts(ctx context.Context) ([]account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	accts := repo.query()
	sortAccounts(accts)
	return accts, nil
}

func (repo *accountRepository) FilterAccounts(ctx context.Context, filter account.QueryFilter, ordering ...core.DBOrdering) ([]account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	accts := make([]account.Account, 0)
	for _, acct := range repo.query() {
		if search != "" &&
			!strings.Contains(strings.ToLower(acct.Name), search) &&
			!strings.Contains(strings.ToLower(acct.Email), search) {
			continue
		}
		if filter.Role != "" && acct.Role != filter.Role {
			continue
		}
		if !filter.CreatedFrom.IsZero() && acct.CreatedAt.Before(filter.CreatedFrom) {
			continue
		}
		if !filter.CreatedTo.IsZero() && acct.CreatedAt.After(filter.CreatedTo) {
			continue
		}
		accts = append(accts, acct)
	}
	sortAccounts(accts)
	return accts, nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id int) (account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if acct, ok := repo.db.accounts[id]; ok {
		return *acct, nil
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	email = strings.ToLower(email)
	for _, acct := range repo.query() {
		if strings.ToLower(acct.Email) == email {
			return acct, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.accounts[acct.ID]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	if err := repo.checkEmailUniqueness(acct.Email, *orig); err != nil {
		return account.Account{}, core.NewConstraintError(core.RuleUniqueEmail, err.Error())
	}

	repo.db.accounts[acct.ID] = &acct
	return acct, nil
}

func (repo *accountRepository) AccountHasDependents(ctx context.Context, id int) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, crs := range repo.db.courses {
		if crs.TeacherID == id {
			return true, nil
		}
	}
	for _, std := range repo.db.students {
		if std.AccountID != nil && *std.AccountID == id {
			return true, nil
		}
	}
	return false, nil
}

func (repo *accountRepository) DeleteAccountsByID(ctx context.Context, ids ...int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.accounts, id)
	}
	return nil
}

func sortAccounts(accts []account.Account) {
	sort.Slice(accts, func(i, j int) bool {
		if accts[i].CreatedAt.Equal(accts[j].CreatedAt) {
			return accts[i].ID > accts[j].ID
		}
		return accts[i].CreatedAt.After(accts[j].CreatedAt)
	})
}

func isExcluded(acct account.Account, excluded []account.Account, n int) bool {
	if n <= 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return excluded[i].ID >= acct.ID })
	return idx < n && excluded[idx].ID == acct.ID
}

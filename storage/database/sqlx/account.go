package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

type accountRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB, conf *core.Config) *accountRepository {
	return &accountRepository{db: db, timeout: conf.Database.Timeout}
}

func (repo accountRepository) context(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, repo.timeout)
}

func (repo accountRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...account.Account) error {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	query := `SELECT EXISTS (SELECT 1 FROM account WHERE lower(email) = lower($1)`
	args := []interface{}{email}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for i, acct := range excluded {
			ids = append(ids, fmt.Sprintf("$%d", i+2))
			args = append(args, acct.ID)
		}
		query += fmt.Sprintf(" AND id NOT IN (%s)", strings.Join(ids, ","))
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return trapErr(err, account.ErrNotFound, "checking email uniqueness")
	}
	if exists {
		return account.ErrEmailExists
	}
	return nil
}

func (repo accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	query := `
		INSERT INTO account (name, email, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query,
		acct.Name, acct.Email, acct.Role, acct.PasswordHash, acct.CreatedAt, acct.UpdatedAt,
	).Scan(&acct.ID)
	if err != nil {
		return account.Account{}, trapErr(err, account.ErrNotFound, "inserting account")
	}
	return acct, nil
}

func (repo accountRepository) QueryAllAccounts(ctx context.Context) ([]account.Account, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	accts := make([]account.Account, 0)
	if err := repo.db.SelectContext(ctx, &accts, `SELECT * FROM account ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, trapErr(err, account.ErrNotFound, "querying accounts")
	}
	return accts, nil
}

func (repo accountRepository) FilterAccounts(ctx context.Context, filter account.QueryFilter, ordering ...core.DBOrdering) ([]account.Account, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR email ILIKE %s)", p, p))
	}
	if filter.Role != "" {
		conds = append(conds, fmt.Sprintf("role = %s", arg(filter.Role)))
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, fmt.Sprintf("created_at >= %s", arg(filter.CreatedFrom.UTC())))
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, fmt.Sprintf("created_at <= %s", arg(filter.CreatedTo.UTC())))
	}

	query := `SELECT * FROM account`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}

	accts := make([]account.Account, 0)
	if err := repo.db.SelectContext(ctx, &accts, query, args...); err != nil {
		return nil, trapErr(err, account.ErrNotFound, "filtering accounts")
	}
	return accts, nil
}

func (repo accountRepository) GetAccountByID(ctx context.Context, id int) (account.Account, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	var acct account.Account
	if err := repo.db.GetContext(ctx, &acct, `SELECT * FROM account WHERE id = $1`, id); err != nil {
		return account.Account{}, trapErr(err, account.ErrNotFound, "finding account by ID")
	}
	return acct, nil
}

func (repo accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	var acct account.Account
	if err := repo.db.GetContext(ctx, &acct, `SELECT * FROM account WHERE lower(email) = lower($1)`, email); err != nil {
		return account.Account{}, trapErr(err, account.ErrNotFound, "finding account by email")
	}
	return acct, nil
}

func (repo accountRepository) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	query := `
		UPDATE account
		SET name = $1, email = $2, password_hash = $3, updated_at = $4
		WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, query, acct.Name, acct.Email, acct.PasswordHash, acct.UpdatedAt, acct.ID)
	if err != nil {
		return account.Account{}, trapErr(err, account.ErrNotFound, "updating account")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return acct, nil
}

func (repo accountRepository) AccountHasDependents(ctx context.Context, id int) (bool, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	query := `
		SELECT EXISTS (
			SELECT 1 FROM course WHERE teacher_id = $1
			UNION
			SELECT 1 FROM student WHERE account_id = $1
		)`
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, trapErr(err, account.ErrNotFound, "checking account dependents")
	}
	return exists, nil
}

func (repo accountRepository) DeleteAccountsByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := repo.context(ctx)
	defer cancel()

	query, args, err := sqlx.In(`DELETE FROM account WHERE id IN (?)`, ids)
	if err != nil {
		return trapErr(err, account.ErrNotFound, "deleting accounts")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return trapErr(err, account.ErrNotFound, "deleting accounts")
	}
	return nil
}

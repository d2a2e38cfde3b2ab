package inmemdb

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

// Two racing creations with case-variants of the same email: exactly one may
// land.
func TestAccountRepository_CreateAccount_concurrentDuplicateEmail(t *testing.T) {
	repo := NewAccountRepository(Open())
	ctx := context.Background()

	emails := []string{"ali@test.cd", "ALI@test.cd", "Ali@Test.CD", "ali@TEST.cd"}

	var wg sync.WaitGroup
	results := make(chan error, len(emails))
	for _, email := range emails {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			now := time.Now().UTC()
			_, err := repo.CreateAccount(ctx, account.Account{
				Name: "Ali", Email: email, Role: account.RoleStudent, CreatedAt: now, UpdatedAt: now,
			})
			results <- err
		}(email)
	}
	wg.Wait()
	close(results)

	var created, rejected int
	for err := range results {
		if err == nil {
			created++
			continue
		}
		cerr, ok := core.AsConstraintError(err)
		if !ok || cerr.Rule != core.RuleUniqueEmail {
			t.Errorf("CreateAccount() error = %v, want unique email constraint", err)
		}
		rejected++
	}
	if created != 1 {
		t.Errorf("CreateAccount() landed %d times, want exactly 1", created)
	}
	if rejected != len(emails)-1 {
		t.Errorf("CreateAccount() rejected %d times, want %d", rejected, len(emails)-1)
	}

	accts, err := repo.QueryAllAccounts(ctx)
	if err != nil {
		t.Fatalf("QueryAllAccounts() failed: %v", err)
	}
	if len(accts) != 1 {
		t.Fatalf("QueryAllAccounts() = %d accounts, want 1", len(accts))
	}
	if !strings.EqualFold(accts[0].Email, "ali@test.cd") {
		t.Errorf("stored email = %s, want a case-variant of ali@test.cd", accts[0].Email)
	}
}

func TestAccountRepository_CheckEmailUniqueness_excluded(t *testing.T) {
	repo := NewAccountRepository(Open())
	ctx := context.Background()

	now := time.Now().UTC()
	acct, err := repo.CreateAccount(ctx, account.Account{
		Name: "Ali", Email: "ali@test.cd", Role: account.RoleStudent, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}

	if err = repo.CheckEmailUniqueness(ctx, "ALI@test.cd"); err != account.ErrEmailExists {
		t.Errorf("CheckEmailUniqueness() error = %v, want %v", err, account.ErrEmailExists)
	}
	// an account keeping its own email is not a duplicate
	if err = repo.CheckEmailUniqueness(ctx, "ali@test.cd", acct); err != nil {
		t.Errorf("CheckEmailUniqueness() with exclusion error = %v, want nil", err)
	}
}

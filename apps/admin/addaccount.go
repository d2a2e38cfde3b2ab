package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

// addAccount updates or creates an account.Account.
func (cli *commandLine) addAccount(name, email, pwd string, isTeacher bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.NormalizeEmail(email)

	now := time.Now().UTC()
	acct, err := cli.acctRepo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != account.ErrNotFound {
			return err
		}
		acct = account.Account{
			Email:     email,
			CreatedAt: now,
		}
	}
	acct.Name = name
	if isTeacher {
		acct.Role = account.RoleTeacher
	} else if acct.Role == "" {
		acct.Role = account.RoleStudent
	}
	acct.UpdatedAt = now
	if err := acct.SetPassword(pwd); err != nil {
		return err
	}

	if acct.ID == 0 {
		_, err = cli.acctRepo.CreateAccount(ctx, acct)
	} else {
		_, err = cli.acctRepo.UpdateAccount(ctx, acct)
	}
	return err
}

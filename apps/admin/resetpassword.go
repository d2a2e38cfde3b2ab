package main

import (
	"context"
	"time"

	"github.com/trezcool/shule/core"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	acct, err := cli.acctRepo.GetAccountByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if err := acct.SetPassword(pwd); err != nil {
		return err
	}
	acct.UpdatedAt = time.Now().UTC()
	if _, err := cli.acctRepo.UpdateAccount(ctx, acct); err != nil {
		return err
	}
	return nil
}

package account_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	emailsvc "github.com/trezcool/shule/services/email"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

func testConfig() *core.Config {
	return &core.Config{
		AppName:          "Shule",
		DefaultFromEmail: "noreply@localhost",
		SecretKey:        []byte("secret"),
	}
}

func setup(t *testing.T) (*account.Service, account.Repository) {
	t.Helper()
	conf := testConfig()
	repo := inmemdb.NewAccountRepository(inmemdb.Open())
	svc := account.NewService(repo, emailsvc.NewConsoleServiceMock(conf), conf)
	emailsvc.SentMessages = emailsvc.SentMessages[:0]
	return svc, repo
}

func TestAccount_password(t *testing.T) {
	var acct account.Account
	if err := acct.SetPassword("S3cret!pwd"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	if len(acct.PasswordHash) == 0 {
		t.Fatal("SetPassword() did not store a hash")
	}
	if string(acct.PasswordHash) == "S3cret!pwd" {
		t.Error("SetPassword() stored the clear text")
	}
	if err := acct.CheckPassword("S3cret!pwd"); err != nil {
		t.Errorf("CheckPassword() failed on the right password: %v", err)
	}
	if err := acct.CheckPassword("not-the-password"); err == nil {
		t.Error("CheckPassword() accepted a wrong password")
	}

	// malformed stored hash errors out, never panics
	acct.PasswordHash = []byte("lol")
	if err := acct.CheckPassword("S3cret!pwd"); err == nil {
		t.Error("CheckPassword() accepted a malformed hash")
	}
}

func TestNewAccount_Validate_passwordPolicy(t *testing.T) {
	svc, _ := setup(t)

	tests := []struct {
		name    string
		pwd     string
		wantErr bool
	}{
		{name: "too short", pwd: "L0l!", wantErr: true},
		{name: "whitespace", pwd: "L0l! pwd am", wantErr: true},
		{name: "all numeric", pwd: "13467980", wantErr: true},
		{name: "no complexity", pwd: "lemonadelol", wantErr: true},
		{name: "similar to email", pwd: "Tester@test.cd1", wantErr: true},
		{name: "valid", pwd: "!Passw0rd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := account.NewAccount{
				Name:            "Tester",
				Email:           "tester@test.cd",
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
			}
			err := data.Validate(svc)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_Register(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acct, err := svc.Register(ctx, account.NewAccount{
		Name:            "Ali",
		Email:           "ali@test.cd",
		Password:        "!Passw0rd",
		PasswordConfirm: "!Passw0rd",
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if acct.ID == 0 {
		t.Error("Register() did not assign an id")
	}
	if acct.Role != account.RoleStudent {
		t.Errorf("Register() role = %s, want default %s", acct.Role, account.RoleStudent)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Errorf("Register() sent %d welcome emails, want 1", len(emailsvc.SentMessages))
	}

	teacher, err := svc.Register(ctx, account.NewAccount{
		Name:            "Prof. Ahmed",
		Email:           "ahmed@test.cd",
		Password:        "!Passw0rd",
		PasswordConfirm: "!Passw0rd",
		Role:            account.RoleTeacher,
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if !teacher.IsTeacher() {
		t.Errorf("Register() role = %s, want %s", teacher.Role, account.RoleTeacher)
	}
}

func TestService_Register_duplicateEmail(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, account.NewAccount{
		Name: "Ali", Email: "ali@test.cd", Password: "!Passw0rd", PasswordConfirm: "!Passw0rd",
	}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	// a case-variant of an existing email is still a duplicate
	data := account.NewAccount{
		Name: "Fake Ali", Email: "ALI@Test.CD", Password: "!Passw0rd", PasswordConfirm: "!Passw0rd",
	}
	err := data.Validate(svc)
	if err == nil {
		t.Fatal("Validate() accepted a duplicate email")
	}
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok {
		t.Fatalf("Validate() error = %T, want *core.ValidationError", err)
	}
	if len(vErr.Fields) != 1 || vErr.Fields[0].Field != "email" {
		t.Errorf("Validate() fields = %+v, want single email error", vErr.Fields)
	}
}

func TestService_Authenticate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, account.NewAccount{
		Name: "Ali", Email: "ali@test.cd", Password: "!Passw0rd", PasswordConfirm: "!Passw0rd",
	}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "valid credentials", email: "ali@test.cd", pwd: "!Passw0rd"},
		{name: "case-variant email still matches", email: "ALI@TEST.CD", pwd: "!Passw0rd"},
		{name: "wrong password", email: "ali@test.cd", pwd: "lol", wantErr: account.ErrInvalidCredentials},
		{name: "unknown email", email: "who@test.cd", pwd: "!Passw0rd", wantErr: account.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Authenticate(ctx, tt.email, tt.pwd); errors.Cause(err) != tt.wantErr {
				t.Errorf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_Update_identityImmutable(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acct, err := svc.Register(ctx, account.NewAccount{
		Name: "Ali", Email: "ali@test.cd", Password: "!Passw0rd", PasswordConfirm: "!Passw0rd",
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	updated, err := svc.Update(ctx, acct.ID, account.UpdateAccount{Name: "Ali M.", Email: acct.Email})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if updated.ID != acct.ID {
		t.Errorf("Update() id = %d, want %d", updated.ID, acct.ID)
	}
	if updated.Role != acct.Role {
		t.Errorf("Update() role = %s, want %s", updated.Role, acct.Role)
	}
	if updated.Name != "Ali M." {
		t.Errorf("Update() name = %s, want Ali M.", updated.Name)
	}
	if !updated.UpdatedAt.After(acct.UpdatedAt) && !updated.UpdatedAt.Equal(acct.UpdatedAt) {
		t.Errorf("Update() did not touch UpdatedAt: %v", updated.UpdatedAt)
	}
}

func TestService_Delete(t *testing.T) {
	conf := testConfig()
	db := inmemdb.Open()
	repo := inmemdb.NewAccountRepository(db)
	svc := account.NewService(repo, nil, conf)
	ctx := context.Background()

	acct, err := svc.Register(ctx, account.NewAccount{
		Name: "Gone", Email: "gone@test.cd", Password: "!Passw0rd", PasswordConfirm: "!Passw0rd",
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err = svc.Delete(ctx, acct.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err = svc.GetByID(ctx, acct.ID); errors.Cause(err) != account.ErrNotFound {
		t.Errorf("GetByID() after delete error = %v, want %v", err, account.ErrNotFound)
	}
}

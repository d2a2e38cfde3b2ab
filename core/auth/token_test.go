package auth

import (
	"testing"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

func testConfig() *core.Config {
	return &core.Config{
		AppName:   "Shule",
		SecretKey: []byte("secret"),
		Server: core.ServerConfig{
			TokenExpirationDelta:        24 * time.Hour,
			TokenRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

func TestNewTokenIssuer_missingSecret(t *testing.T) {
	conf := testConfig()
	conf.SecretKey = nil
	if _, err := NewTokenIssuer(conf); err == nil {
		t.Error("NewTokenIssuer() expected an error on empty secret")
	}
}

func TestTokenIssuer_IssueValidate(t *testing.T) {
	issuer, err := NewTokenIssuer(testConfig())
	if err != nil {
		t.Fatalf("NewTokenIssuer() failed: %v", err)
	}

	acct := account.Account{ID: 42, Name: "T", Email: "t@test.cd", Role: account.RoleTeacher}

	token, expiresAt, err := issuer.Issue(acct)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	wantExp := time.Now().Add(24 * time.Hour)
	if d := expiresAt.Sub(wantExp); d < -time.Minute || d > time.Minute {
		t.Errorf("Issue() expiresAt = %v, want ~%v", expiresAt, wantExp)
	}

	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if claims.AccountID != acct.ID {
		t.Errorf("Validate() AccountID = %d, want %d", claims.AccountID, acct.ID)
	}
	if claims.Role != acct.Role {
		t.Errorf("Validate() Role = %s, want %s", claims.Role, acct.Role)
	}
}

func TestTokenIssuer_Validate(t *testing.T) {
	issuer, _ := NewTokenIssuer(testConfig())

	otherConf := testConfig()
	otherConf.SecretKey = []byte("other-secret")
	otherIssuer, _ := NewTokenIssuer(otherConf)

	acct := account.Account{ID: 1, Role: account.RoleStudent}

	validToken, _, err := issuer.Issue(acct)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	wrongKeyToken, _, err := otherIssuer.Issue(acct)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	// generate an expired token
	issuer.nowFunc = func() time.Time { return time.Now().Add(-25 * time.Hour) }
	expiredToken, _, err := issuer.Issue(acct)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	issuer.nowFunc = time.Now // reset

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "no token", wantErr: ErrTokenMalformed},
		{name: "garbage token", token: "lmaooolol", wantErr: ErrTokenMalformed},
		{name: "wrong key", token: wrongKeyToken, wantErr: ErrSignatureMismatch},
		{name: "expired token", token: expiredToken, wantErr: ErrTokenExpired},
		{name: "tampered token", token: validToken + "x", wantErr: ErrSignatureMismatch},
		{name: "valid token", token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := issuer.Validate(tt.token); err != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenIssuer_Refresh(t *testing.T) {
	issuer, _ := NewTokenIssuer(testConfig())
	acct := account.Account{ID: 7, Role: account.RoleStudent}

	token, _, err := issuer.Issue(acct)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	// within the refresh window
	newToken, _, err := issuer.Refresh(acct, claims)
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	newClaims, err := issuer.Validate(newToken)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if newClaims.OrigIssuedAt != claims.OrigIssuedAt {
		t.Errorf("Refresh() OrigIssuedAt = %d, want %d", newClaims.OrigIssuedAt, claims.OrigIssuedAt)
	}

	// past the refresh window
	issuer.nowFunc = func() time.Time { return time.Now().Add(5 * time.Hour) }
	if _, _, err = issuer.Refresh(acct, claims); err != ErrRefreshExpired {
		t.Errorf("Refresh() error = %v, wantErr %v", err, ErrRefreshExpired)
	}
}

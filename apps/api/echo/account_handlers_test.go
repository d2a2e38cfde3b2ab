package echoapi

import (
	"net/http"
	"testing"

	"github.com/trezcool/shule/core/account"
)

func TestAccountAPI_registerLoginFlow(t *testing.T) {
	app := newTestApp(t)

	// register
	rec := app.request(t, http.MethodPost, "/v1/accounts/register", "", marshalObj(t, map[string]string{
		"name":             "Ali",
		"email":            "Ali@Test.CD",
		"password":         "!Passw0rd",
		"password_confirm": "!Passw0rd",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register code = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var acct account.Account
	decodeObj(t, rec, &acct)
	if acct.Email != "ali@test.cd" {
		t.Errorf("register email = %s, want lowercased ali@test.cd", acct.Email)
	}
	if acct.Role != account.RoleStudent {
		t.Errorf("register role = %s, want default %s", acct.Role, account.RoleStudent)
	}

	// login
	rec = app.request(t, http.MethodPost, "/v1/accounts/login", "", marshalObj(t, map[string]string{
		"email":    "ali@test.cd",
		"password": "!Passw0rd",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("login code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var login LoginResponse
	decodeObj(t, rec, &login)
	if login.Token == "" {
		t.Error("login returned no token")
	}
	if login.Account.ID != acct.ID {
		t.Errorf("login account id = %d, want %d", login.Account.ID, acct.ID)
	}

	// the token works against an authed endpoint
	rec = app.request(t, http.MethodGet, "/v1/accounts/"+itoa(acct.ID), login.Token)
	if rec.Code != http.StatusOK {
		t.Errorf("retrieve own account code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAccountAPI_login_badCredentials(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "Ali", "ali@test.cd", "")

	tests := []struct {
		name  string
		email string
		pwd   string
	}{
		{name: "wrong password", email: "ali@test.cd", pwd: "lol"},
		{name: "unknown email", email: "who@test.cd", pwd: "!Passw0rd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request(t, http.MethodPost, "/v1/accounts/login", "", marshalObj(t, map[string]string{
				"email":    tt.email,
				"password": tt.pwd,
			}))
			// unknown email and wrong password are indistinguishable
			if rec.Code != http.StatusBadRequest {
				t.Errorf("login code = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestAccountAPI_register_duplicateEmail(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "Ali", "ali@test.cd", "")

	rec := app.request(t, http.MethodPost, "/v1/accounts/register", "", marshalObj(t, map[string]string{
		"name":             "Fake Ali",
		"email":            "ALI@test.cd",
		"password":         "!Passw0rd",
		"password_confirm": "!Passw0rd",
	}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("register duplicate code = %d, want %d; body: %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}

func TestAccountAPI_accessControl(t *testing.T) {
	app := newTestApp(t)
	ali := app.createAccount(t, "Ali", "ali@test.cd", "")
	mary := app.createAccount(t, "Mary", "mary@test.cd", "")
	teacher := app.createAccount(t, "Prof. Ahmed", "ahmed@test.cd", account.RoleTeacher)

	aliToken := app.token(t, ali)
	teacherToken := app.token(t, teacher)

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		wantCode int
	}{
		{name: "anonymous is rejected", method: http.MethodGet, path: "/v1/accounts/" + itoa(ali.ID),
			wantCode: http.StatusUnauthorized},
		{name: "garbage token is rejected", method: http.MethodGet, path: "/v1/accounts/" + itoa(ali.ID),
			token: "lol", wantCode: http.StatusUnauthorized},
		{name: "owner reads own account", method: http.MethodGet, path: "/v1/accounts/" + itoa(ali.ID),
			token: aliToken, wantCode: http.StatusOK},
		{name: "other account is off limits", method: http.MethodGet, path: "/v1/accounts/" + itoa(mary.ID),
			token: aliToken, wantCode: http.StatusForbidden},
		{name: "student cannot list accounts", method: http.MethodGet, path: "/v1/accounts",
			token: aliToken, wantCode: http.StatusForbidden},
		{name: "teacher lists accounts", method: http.MethodGet, path: "/v1/accounts",
			token: teacherToken, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request(t, tt.method, tt.path, tt.token)
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d; body: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestAccountAPI_tokenRefresh(t *testing.T) {
	app := newTestApp(t)
	ali := app.createAccount(t, "Ali", "ali@test.cd", "")

	rec := app.request(t, http.MethodPost, "/v1/accounts/token-refresh", app.token(t, ali))
	if rec.Code != http.StatusOK {
		t.Fatalf("token-refresh code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp TokenResponse
	decodeObj(t, rec, &resp)
	if resp.Token == "" {
		t.Error("token-refresh returned no token")
	}
}

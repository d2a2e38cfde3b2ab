package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/school"
	emailsvc "github.com/trezcool/shule/services/email"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

type testLogger struct{ t *testing.T }

func (l testLogger) Debug(msg string, args ...interface{}) { l.t.Logf("DEBUG %s %v", msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.t.Logf("INFO %s %v", msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.t.Logf("WARN %s %v", msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.t.Logf("ERROR %s %v", msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.t.Fatalf("FATAL %s %v", msg, args) }

type testApp struct {
	server    Server
	acctSvc   *account.Service
	schoolSvc *school.Service
	issuer    *auth.TokenIssuer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{
		TestMode:         true,
		AppName:          "Shule",
		SecretKey:        []byte("secret"),
		DefaultFromEmail: "noreply@localhost",
		Server: core.ServerConfig{
			TokenExpirationDelta:        10 * time.Minute,
			TokenRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	db := inmemdb.Open()
	acctSvc := account.NewService(inmemdb.NewAccountRepository(db), emailsvc.NewConsoleServiceMock(conf), conf)
	schoolSvc := school.NewService(inmemdb.NewSchoolRepository(db), acctSvc)

	issuer, err := auth.NewTokenIssuer(conf)
	if err != nil {
		t.Fatalf("NewTokenIssuer() failed: %v", err)
	}

	server := NewServer(&Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         testLogger{t},
		AccountSvc:     acctSvc,
		SchoolSvc:      schoolSvc,
		Issuer:         issuer,
		Gate:           auth.NewGate(schoolSvc),
	})
	return &testApp{server: server, acctSvc: acctSvc, schoolSvc: schoolSvc, issuer: issuer}
}

func (app *testApp) request(t *testing.T, method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) createAccount(t *testing.T, name, email, role string) account.Account {
	t.Helper()
	acct, err := app.acctSvc.Register(context.Background(), account.NewAccount{
		Name:            name,
		Email:           email,
		Password:        "!Passw0rd",
		PasswordConfirm: "!Passw0rd",
		Role:            role,
	})
	if err != nil {
		t.Fatalf("createAccount() failed: %v", err)
	}
	return acct
}

func (app *testApp) token(t *testing.T, acct account.Account) string {
	t.Helper()
	token, _, err := app.issuer.Issue(acct)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decodeObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("decodeObj() failed: %v; body: %s", err, rec.Body.String())
	}
}

func itoa(id int) string { return strconv.Itoa(id) }

// jsonBytesEqual compares payloads structurally; lists match regardless of order.
func jsonBytesEqual(t *testing.T, b1, b2 []byte) bool {
	t.Helper()
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		t.Fatalf("jsonBytesEqual() failed: %v", err)
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		t.Fatalf("jsonBytesEqual() failed: %v", err)
	}
	if reflect.DeepEqual(j1, j2) {
		return true
	}
	l1, ok1 := j1.([]interface{})
	l2, ok2 := j2.([]interface{})
	if ok1 && ok2 {
		return assert.ElementsMatch(t, l1, l2)
	}
	return false
}

func TestServer_home(t *testing.T) {
	app := newTestApp(t)
	rec := app.request(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET / code = %d, want %d", rec.Code, http.StatusOK)
	}
}

package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

var (
	// errors
	ErrTokenMalformed    = errors.New("token is malformed")
	ErrSignatureMismatch = errors.New("token signature mismatch")
	ErrTokenExpired      = errors.New("token expired")
	ErrRefreshExpired    = errors.New("refresh has expired")
)

// Claims represents the authorization claims transmitted via a JWT. The role
// claim is the role stored on the Account at issuance time; role changes do
// not retroactively revoke already-issued tokens (no revocation list is kept -
// compromise recovery relies on short expiry plus secret rotation).
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	AccountID    int    `json:"uid"`
	Role         string `json:"role"`
}

// TokenIssuer creates and validates signed, time-limited identity assertions
// binding an account id and a role.
type TokenIssuer struct {
	appName         string
	secret          []byte
	expirationDelta time.Duration
	refreshDelta    time.Duration

	nowFunc func() time.Time // mockable
}

// NewTokenIssuer sets up an issuer from the app config. The config loader has
// already refused to start without a signing secret; this guards direct
// construction in tests and tools.
func NewTokenIssuer(conf *core.Config) (*TokenIssuer, error) {
	if len(conf.SecretKey) == 0 {
		return nil, errors.New("token issuer: signing secret is not set")
	}
	return &TokenIssuer{
		appName:         conf.AppName,
		secret:          conf.SecretKey,
		expirationDelta: conf.Server.TokenExpirationDelta,
		refreshDelta:    conf.Server.TokenRefreshExpirationDelta,
		nowFunc:         time.Now,
	}, nil
}

func (ti *TokenIssuer) claims(acct account.Account, origIat ...int64) *Claims {
	now := ti.nowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.appName,
			ExpiresAt: now.Add(ti.expirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		AccountID:    acct.ID,
		Role:         acct.Role,
	}
}

// Issue produces a signed token for the account and returns it with its expiry.
func (ti *TokenIssuer) Issue(acct account.Account) (string, time.Time, error) {
	claims := ti.claims(acct)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	ss, err := token.SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "signing token")
	}
	return ss, time.Unix(claims.ExpiresAt, 0), nil
}

// Validate verifies the token's signature and expiry and returns its claims.
// Failures are typed: ErrTokenMalformed, ErrSignatureMismatch or
// ErrTokenExpired; callers map each to an unauthenticated response.
func (ti *TokenIssuer) Validate(tokenStr string) (Claims, error) {
	if tokenStr == "" {
		return Claims{}, ErrTokenMalformed
	}

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSignatureMismatch
		}
		return ti.secret, nil
	})
	if err != nil {
		if vErr, ok := err.(*jwt.ValidationError); ok {
			switch {
			case vErr.Errors&jwt.ValidationErrorMalformed != 0:
				return Claims{}, ErrTokenMalformed
			case vErr.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
				return Claims{}, ErrTokenExpired
			default:
				return Claims{}, ErrSignatureMismatch
			}
		}
		return Claims{}, ErrTokenMalformed
	}
	if !token.Valid {
		return Claims{}, ErrSignatureMismatch
	}
	return *claims, nil
}

// Refresh reissues a token for the account as long as the original issuance is
// still within the refresh window.
func (ti *TokenIssuer) Refresh(acct account.Account, claims Claims) (string, time.Time, error) {
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(ti.refreshDelta)
	if ti.nowFunc().After(expTime) {
		return "", time.Time{}, ErrRefreshExpired
	}

	newClaims := ti.claims(acct, claims.OrigIssuedAt)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, newClaims)

	ss, err := token.SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "signing token")
	}
	return ss, time.Unix(newClaims.ExpiresAt, 0), nil
}

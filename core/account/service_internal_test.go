package account

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// The unknown-email login path compares against notFoundHash so that it costs
// the same bcrypt work as a wrong password on a real account. That only holds
// if the decoy is a well-formed hash at a real cost; a malformed one would
// make the compare bail out early.
func Test_notFoundHash(t *testing.T) {
	cost, err := bcrypt.Cost(notFoundHash)
	if err != nil {
		t.Fatalf("bcrypt.Cost() failed: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want %d", cost, bcrypt.DefaultCost)
	}
	if err := bcrypt.CompareHashAndPassword(notFoundHash, []byte("!Passw0rd")); err != bcrypt.ErrMismatchedHashAndPassword {
		t.Errorf("CompareHashAndPassword() error = %v, want %v", err, bcrypt.ErrMismatchedHashAndPassword)
	}
}

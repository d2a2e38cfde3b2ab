package core

import "testing"

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{name: "already folded", email: "ali@test.cd", want: "ali@test.cd"},
		{name: "mixed case", email: "Ali@Test.CD", want: "ali@test.cd"},
		{name: "surrounding whitespace", email: "  ALI@test.cd \n", want: "ali@test.cd"},
		{name: "empty", email: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeEmail(tt.email); got != tt.want {
				t.Errorf("NormalizeEmail() = %q, want %q", got, tt.want)
			}
		})
	}
}

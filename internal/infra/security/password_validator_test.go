package security

import (
	"errors"
	"testing"
)

func TestDefaultPasswordPolicyAccepts(t *testing.T) {
	policy := DefaultPasswordPolicy(0)

	for _, password := range []string{"Abcd1234", "Calanques2026", "S0leilMistral"} {
		if err := policy.Validate(password); err != nil {
			t.Fatalf("expected %q to pass policy, got %v", password, err)
		}
	}
}

func TestDefaultPasswordPolicyRejects(t *testing.T) {
	policy := DefaultPasswordPolicy(0)

	cases := []struct {
		password string
		code     string
	}{
		{"Ab1", "min_length"},
		{"abcd1234", "uppercase"},
		{"ABCD1234", "lowercase"},
		{"Abcdefgh", "digit"},
	}

	for _, tc := range cases {
		err := policy.Validate(tc.password)
		if err == nil {
			t.Fatalf("expected %q to fail policy", tc.password)
		}

		var verr *PasswordValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected PasswordValidationError, got %T", err)
		}
		if verr.Code != tc.code {
			t.Fatalf("expected code %s for %q, got %s", tc.code, tc.password, verr.Code)
		}
	}
}

func TestRequireDifferentFrom(t *testing.T) {
	rule := RequireDifferentFrom("Abcd1234")

	if err := rule.Validate("Abcd1234"); err == nil {
		t.Fatal("expected identical password to be rejected")
	}
	if err := rule.Validate("Efgh5678"); err != nil {
		t.Fatalf("expected different password to pass, got %v", err)
	}
}

func TestRequirePasswordStrengthRule(t *testing.T) {
	rule := RequirePasswordStrengthRule(3)

	if err := rule.Validate("password1"); err == nil {
		t.Fatal("expected common password to be rejected")
	}

	if err := rule.Validate("korrigan-calanque-73-mistral"); err != nil {
		t.Fatalf("expected long passphrase to pass, got %v", err)
	}

	disabled := RequirePasswordStrengthRule(0)
	if err := disabled.Validate("password1"); err != nil {
		t.Fatalf("expected disabled rule to pass everything, got %v", err)
	}
}

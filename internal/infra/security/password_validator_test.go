package security

import (
	"errors"
	"strings"
	"testing"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/arklim/anon-inbox/internal/core/domain"
)

func violationCode(t *testing.T, err error) string {
	t.Helper()

	if err == nil {
		t.Fatalf("expected validation error")
	}
	var vErr *PasswordValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected PasswordValidationError, got %T", err)
	}
	return vErr.Code
}

func TestPasswordPolicy_DefaultAcceptsShortSimplePasswords(t *testing.T) {
	policy := NewPasswordPolicy(PasswordPolicyConfig{})

	if err := policy.Validate("pw123456", domain.PasswordContext{Username: "alice", Email: "a@x.io"}); err != nil {
		t.Fatalf("expected default policy to accept, got %v", err)
	}
}

func TestPasswordPolicy_Violations(t *testing.T) {
	policy := NewPasswordPolicy(PasswordPolicyConfig{MinLength: 6})
	ctx := domain.PasswordContext{Username: "alice_smith", Email: "alice@example.com"}

	if code := violationCode(t, policy.Validate("pw1", ctx)); code != "min_length" {
		t.Fatalf("expected min_length, got %s", code)
	}
	if code := violationCode(t, policy.Validate(strings.Repeat("a", 300), ctx)); code != "max_length" {
		t.Fatalf("expected max_length, got %s", code)
	}
	if code := violationCode(t, policy.Validate("alice_smith", ctx)); code != "matches_identity" {
		t.Fatalf("expected matches_identity, got %s", code)
	}
}

func TestPasswordPolicy_StrengthScore(t *testing.T) {
	policy := NewPasswordPolicy(PasswordPolicyConfig{MinStrengthScore: 3})

	strong := "C0mplex!Passphrase#2025"
	if strength := zxcvbn.PasswordStrength(strong, nil); strength.Score < 3 {
		t.Fatalf("test password unexpectedly weak: score=%d", strength.Score)
	}
	if err := policy.Validate(strong, domain.PasswordContext{}); err != nil {
		t.Fatalf("expected strong password to pass, got %v", err)
	}

	if code := violationCode(t, policy.Validate("Password123", domain.PasswordContext{})); code != "weak_password" {
		t.Fatalf("expected weak_password, got %s", code)
	}
}

package security

import (
	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/core/port"
)

const (
	defaultMinPasswordLength = 6
	maxPasswordBytes         = 256
)

// PasswordPolicyConfig tunes the sign-up password policy.
type PasswordPolicyConfig struct {
	MinLength        int
	MinStrengthScore int
}

// PasswordPolicy adapts the password validator to the domain-level policy interface.
type PasswordPolicy struct {
	cfg PasswordPolicyConfig
}

// NewPasswordPolicy builds a policy; a zero MinLength falls back to six characters.
func NewPasswordPolicy(cfg PasswordPolicyConfig) *PasswordPolicy {
	if cfg.MinLength <= 0 {
		cfg.MinLength = defaultMinPasswordLength
	}
	return &PasswordPolicy{cfg: cfg}
}

// Validate applies length and optional strength rules, using the user attributes as zxcvbn dictionary input.
func (p *PasswordPolicy) Validate(password string, ctx domain.PasswordContext) error {
	inputs := make([]string, 0, 2)
	if ctx.Username != "" {
		inputs = append(inputs, ctx.Username)
	}
	if ctx.Email != "" {
		inputs = append(inputs, ctx.Email)
	}

	validator := NewPasswordValidator(
		MinLengthRule(p.cfg.MinLength),
		MaxLengthRule(maxPasswordBytes),
		RequireDifferentFrom(inputs...),
		RequirePasswordStrengthRule(p.cfg.MinStrengthScore, inputs...),
	)

	return validator.Validate(password)
}

var _ port.PasswordPolicyValidator = (*PasswordPolicy)(nil)

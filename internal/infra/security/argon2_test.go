package security

import (
	"strings"
	"testing"
)

func fastArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	hasher, err := NewArgon2Hasher(fastArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}

	password := "correct horse battery staple"
	encoded, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		t.Fatalf("unexpected hash format: %q", encoded)
	}
	if parts[0] != Argon2Algorithm || parts[1] != argon2Version {
		t.Fatalf("unexpected header: %s$%s", parts[0], parts[1])
	}
	if parts[2] != "m=8192,t=1,p=1" {
		t.Fatalf("encoded hash does not reflect configured parameters: %s", parts[2])
	}

	ok, err := hasher.Verify(password, encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("Verify returned false for correct password")
	}

	ok, err = hasher.Verify("Tr0ub4dor&3", encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for incorrect password")
	}
}

func TestArgon2Hasher_SaltsDiffer(t *testing.T) {
	hasher, err := NewArgon2Hasher(fastArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}

	first, _ := hasher.Hash("pw123456")
	second, _ := hasher.Hash("pw123456")
	if first == second {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestArgon2Hasher_VerifyUsesEmbeddedParameters(t *testing.T) {
	old, err := NewArgon2Hasher(fastArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}
	encoded, err := old.Hash("pw123456")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	stronger := fastArgon2Config()
	stronger.Iterations = 2
	current, err := NewArgon2Hasher(stronger)
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}

	ok, err := current.Verify("pw123456", encoded)
	if err != nil || !ok {
		t.Fatalf("expected hash produced with older parameters to verify, ok=%v err=%v", ok, err)
	}
}

func TestArgon2Hasher_InvalidInputs(t *testing.T) {
	hasher, err := NewArgon2Hasher(fastArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}

	if _, err := hasher.Verify("password", "invalid-format"); err == nil {
		t.Fatal("expected error for invalid format")
	}
	if ok, err := hasher.Verify("", ""); err != nil || ok {
		t.Fatalf("expected false without error for empty inputs, ok=%v err=%v", ok, err)
	}

	weak := fastArgon2Config()
	weak.Memory = 1024
	if _, err := NewArgon2Hasher(weak); err == nil {
		t.Fatal("expected configuration error for low memory")
	}
}

// AngelaMos | 2026
// security_test.go

package core

import (
	"encoding/base64"
	"fmt"
	"testing"

	"golang.org/x/crypto/argon2"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	ok, rehash, err := VerifyPassword("correct-horse", hash)
	if err != nil || !ok || rehash != "" {
		t.Fatalf("VerifyPassword(correct) = %v, %q, %v", ok, rehash, err)
	}

	ok, _, err = VerifyPassword("battery-staple", hash)
	if err != nil || ok {
		t.Fatalf("VerifyPassword(wrong) = %v, %v", ok, err)
	}
}

func TestVerifyPasswordFlagsOutdatedParams(t *testing.T) {
	salt := []byte("0123456789abcdef")
	old := argonParams{memory: 32 * 1024, time: 1, threads: 2, keyLen: 32}
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, old.memory, old.time, old.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(old.derive("pw-123456", salt)),
	)

	ok, rehash, err := VerifyPassword("pw-123456", encoded)
	if err != nil || !ok {
		t.Fatalf("VerifyPassword() = %v, %v", ok, err)
	}
	if rehash == "" {
		t.Fatal("VerifyPassword() did not offer a rehash")
	}
	if ok, again, _ := VerifyPassword("pw-123456", rehash); !ok || again != "" {
		t.Fatalf("rehash verify = %v, %q", ok, again)
	}
}

func TestVerifyPasswordRejectsMalformed(t *testing.T) {
	for _, encoded := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$aa$bb", "$argon2id$v=1$m=1,t=1,p=1$aa$bb"} {
		if _, _, err := VerifyPassword("pw", encoded); err == nil {
			t.Errorf("VerifyPassword(%q) error = nil", encoded)
		}
	}
}

func TestVerifyPasswordTimingSafeWithoutHash(t *testing.T) {
	ok, rehash, err := VerifyPasswordTimingSafe("anything", nil)
	if ok || rehash != "" || err != nil {
		t.Fatalf("VerifyPasswordTimingSafe(nil) = %v, %q, %v", ok, rehash, err)
	}
}

func TestRefreshTokenHashing(t *testing.T) {
	a, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}
	b, _ := GenerateRefreshToken() //nolint:errcheck

	if a == b {
		t.Fatal("tokens collide")
	}
	if HashToken(a) != HashToken(a) || HashToken(a) == HashToken(b) {
		t.Fatal("HashToken is not a stable distinct digest")
	}
	if len(HashToken(a)) != 64 {
		t.Fatalf("hash length = %d, want 64", len(HashToken(a)))
	}
}

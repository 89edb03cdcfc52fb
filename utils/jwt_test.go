package utils

import (
	"os"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret-for-utils")
	os.Exit(m.Run())
}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("guest-1", "guest", "412", time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.Subject != "guest-1" || claims.Role != "guest" || claims.Room != "412" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateToken_StaffHasNoRoom(t *testing.T) {
	token, err := GenerateToken("alex", "staff", "", time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.Room != "" {
		t.Fatalf("staff token must carry no room, got %q", claims.Room)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	token, err := GenerateToken("guest-1", "guest", "412", -time.Minute)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	_, err = ValidateToken(token)
	if err == nil {
		t.Fatal("expected error for expired token")
	}
	if err.Error() != "token expired" {
		t.Fatalf("expected expiry error, got %q", err.Error())
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestRevocationInfo(t *testing.T) {
	token, err := GenerateToken("guest-1", "guest", "412", time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	jti, ttl, err := RevocationInfo(token)
	if err != nil {
		t.Fatalf("revocation info failed: %v", err)
	}
	if jti == "" {
		t.Fatal("expected a jti")
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("ttl outside token lifetime: %v", ttl)
	}
}

func TestRevokeJTI_NoStoreConfigured(t *testing.T) {
	if err := RevokeJTI("some-jti", time.Minute); err == nil {
		t.Fatal("expected error with no revocation store")
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("guest-1", "guest", "412", time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	os.Setenv("JWT_SECRET", "a-different-secret")
	defer os.Setenv("JWT_SECRET", "test-secret-for-utils")

	if _, err := ValidateToken(token); err == nil {
		t.Fatal("expected error for wrong signing secret")
	}
}

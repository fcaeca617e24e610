package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAccessToken_SetsAccessType(t *testing.T) {
	token, err := GenerateAccessToken("test-secret", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ValidateToken("test-secret", token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.TokenType != "access" {
		t.Errorf("expected token type %q, got %q", "access", claims.TokenType)
	}
	if claims.Subject != ownerID {
		t.Errorf("expected subject %q, got %q", ownerID, claims.Subject)
	}
}

func TestGenerateRefreshToken_SetsRefreshType(t *testing.T) {
	token, err := GenerateRefreshToken("test-secret", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ValidateToken("test-secret", token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.TokenType != "refresh" {
		t.Errorf("expected token type %q, got %q", "refresh", claims.TokenType)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, _ := GenerateAccessToken("secret-a", time.Now())

	if _, err := ValidateToken("secret-b", token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	token, _ := GenerateAccessToken("test-secret", time.Now().Add(-time.Hour))

	if _, err := ValidateToken("test-secret", token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   ownerID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := ValidateToken("test-secret", token); err == nil {
		t.Fatal("expected error for unsigned token")
	}
}

func TestValidateToken_RejectsForeignIssuer(t *testing.T) {
	claims := &Claims{
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   ownerID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))

	if _, err := ValidateToken("test-secret", token); err == nil {
		t.Fatal("expected error for foreign issuer")
	}
}

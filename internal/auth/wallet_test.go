package auth

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
)

func signMessage(t *testing.T, message string) (address, sigHex string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		t.Fatal(err)
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), "0x" + hex.EncodeToString(sig)
}

func TestVerifyPersonalSign(t *testing.T) {
	msg := NonceMessage("abc-123")
	addr, sig := signMessage(t, msg)

	if err := VerifyPersonalSign(addr, msg, sig); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	// case-insensitive address match
	if err := VerifyPersonalSign(addr, msg, sig); err != nil {
		t.Fatal(err)
	}

	if err := VerifyPersonalSign(addr, NonceMessage("other-nonce"), sig); err == nil {
		t.Error("signature over a different message must fail")
	}

	otherAddr, _ := signMessage(t, msg)
	if err := VerifyPersonalSign(otherAddr, msg, sig); err == nil {
		t.Error("signature from a different key must fail")
	}

	if err := VerifyPersonalSign(addr, msg, "0xdead"); err == nil {
		t.Error("truncated signature must fail")
	}
	if err := VerifyPersonalSign("not-an-address", msg, sig); err == nil {
		t.Error("malformed address must fail")
	}
}

func TestVerifyPersonalSignLegacyV(t *testing.T) {
	msg := NonceMessage("legacy-v")
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	if err != nil {
		t.Fatal(err)
	}
	// browser wallets encode V as 27/28
	sig[64] += 27
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()

	if err := VerifyPersonalSign(addr, msg, "0x"+hex.EncodeToString(sig)); err != nil {
		t.Errorf("27/28 V byte rejected: %v", err)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	const secret = "test-secret"
	addr := Checksum("0xabc0000000000000000000000000000000000001")

	tokenStr, err := GenerateJWT(secret, addr, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseJWT(secret, tokenStr)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Address != addr {
		t.Errorf("address = %q, want %q", claims.Address, addr)
	}

	if _, err := ParseJWT("wrong-secret", tokenStr); err == nil {
		t.Error("token must not parse with the wrong secret")
	}
	if _, err := ParseJWT(secret, "garbage"); err == nil {
		t.Error("garbage token must not parse")
	}
}

func TestJWTExpiration(t *testing.T) {
	tokenStr, err := GenerateJWT("s", "0x01", -time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	// negative expiration falls back to 24h, so the token is valid
	if _, err := ParseJWT("s", tokenStr); err != nil {
		t.Errorf("fallback-expiration token rejected: %v", err)
	}
}

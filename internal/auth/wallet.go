package auth

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// NonceMessage is the exact text the wallet signs during login. The nonce is
// single-use and server-issued, which is the replay protection.
func NonceMessage(nonce string) string {
	return "ChainRaise login\n\nnonce: " + nonce
}

// VerifyPersonalSign checks an EIP-191 personal_sign signature over message
// and confirms it recovers to the claimed address.
func VerifyPersonalSign(address, message, sigHex string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid address %q", address)
	}

	sig := common.FromHex(sigHex)
	if len(sig) != 65 {
		return fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	// wallets return V as 27/28, go-ethereum expects 0/1
	sigCopy := make([]byte, 65)
	copy(sigCopy, sig)
	if sigCopy[64] >= 27 {
		sigCopy[64] -= 27
	}

	digest := accounts.TextHash([]byte(message))
	pub, err := crypto.SigToPub(digest, sigCopy)
	if err != nil {
		return fmt.Errorf("signature recovery failed: %w", err)
	}

	recovered := crypto.PubkeyToAddress(*pub)
	if !strings.EqualFold(recovered.Hex(), address) {
		return fmt.Errorf("signature recovers to %s, not %s", recovered.Hex(), address)
	}
	return nil
}

// Checksum normalizes an address to its EIP-55 form for claims and logs.
func Checksum(address string) string {
	return common.HexToAddress(address).Hex()
}

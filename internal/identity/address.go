package identity

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix is the human-readable part of account addresses.
const AddressPrefix = "g"

const addressLen = 20

// ValidateAddress checks that addr is a bech32 account address with the
// chain prefix and a 20-byte payload.
func ValidateAddress(addr string) error {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return fmt.Errorf("address %q: %w", addr, err)
	}
	if hrp != AddressPrefix {
		return fmt.Errorf("address %q: prefix %q, want %q", addr, hrp, AddressPrefix)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return fmt.Errorf("address %q: %w", addr, err)
	}
	if len(raw) != addressLen {
		return fmt.Errorf("address %q: payload is %d bytes, want %d", addr, len(raw), addressLen)
	}
	return nil
}

// EncodeAddress formats a 20-byte payload as an account address.
func EncodeAddress(raw []byte) (string, error) {
	if len(raw) != addressLen {
		return "", fmt.Errorf("address payload is %d bytes, want %d", len(raw), addressLen)
	}
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(AddressPrefix, conv)
}

// DerivePkgAddr returns the address a realm acts as when it moves assets,
// i.e. the spender that allowances are granted to.
func DerivePkgAddr(pkgPath string) (string, error) {
	sum := sha256.Sum256([]byte("pkgPath:" + pkgPath))
	return EncodeAddress(sum[:addressLen])
}

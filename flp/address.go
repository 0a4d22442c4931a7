package flp

import (
	"fmt"
	"regexp"
)

// WalletAddress is a 43 character base64url ledger address.
type WalletAddress string

var walletAddressPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)

// ParseWalletAddress validates s as a wallet address.
func ParseWalletAddress(s string) (WalletAddress, error) {
	if !walletAddressPattern.MatchString(s) {
		return "", fmt.Errorf("%w: malformed wallet address %q", ErrValidation, s)
	}
	return WalletAddress(s), nil
}

// String returns the address as a string
func (w WalletAddress) String() string {
	return string(w)
}

var eoaPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidateEOA checks that s looks like an externally owned account address.
func ValidateEOA(s string) error {
	if !eoaPattern.MatchString(s) {
		return fmt.Errorf("%w: malformed eoa address %q", ErrValidation, s)
	}
	return nil
}

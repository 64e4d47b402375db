// Package totp derives time-based one-time codes from stored 2FA seeds.
package totp

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

const period = 30 // seconds per code window

// Code generates the six-digit code for the given base32 seed at the current
// moment. Callers generate fresh immediately before use; codes are never
// cached.
func Code(secret string) (string, error) {
	secret = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
	if secret == "" {
		return "", fmt.Errorf("empty 2FA secret")
	}

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP code: %w", err)
	}
	return code, nil
}

// Remaining returns the seconds left before the current code rotates.
func Remaining() int {
	return period - int(time.Now().Unix()%period)
}

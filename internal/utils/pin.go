package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadPIN = errors.New("PIN must be exactly 4 digits")

// ValidatePIN enforces the 4-digit parental PIN format.
func ValidatePIN(pin string) error {
	if len(pin) != 4 {
		return ErrBadPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrBadPIN
		}
	}
	return nil
}

func HashPIN(pin string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPIN(hash, pin string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
}

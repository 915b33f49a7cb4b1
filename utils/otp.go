// utils/otp.go
package utils

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

// BookingOTPLength is the number of digits in a service start code
const BookingOTPLength = 5

var otpFormat = regexp.MustCompile(`^[0-9]{4,6}$`)

// GenerateNumericOTP returns a zero padded random code of the given length
func GenerateNumericOTP(digits int) (string, error) {
	buf := make([]byte, digits)
	ten := big.NewInt(10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

// ValidOTPFormat reports whether code looks like a service start code
func ValidOTPFormat(code string) bool {
	return otpFormat.MatchString(code)
}

package auth

import "golang.org/x/crypto/bcrypt"

// PasswordVerifier checks a login password against the stored hash.
// Hashing itself lives in the user store, which owns the cost parameter;
// this seam only answers "does this password match".
type PasswordVerifier interface {
	// Compare returns nil when the plaintext matches the hash and an
	// error otherwise.
	Compare(hashedPassword, password string) error
}

// BcryptVerifier is the bcrypt-backed PasswordVerifier used in production.
type BcryptVerifier struct{}

// NewBcryptVerifier creates a BcryptVerifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Compare implements PasswordVerifier.
func (v *BcryptVerifier) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

package auth

import "golang.org/x/crypto/bcrypt"

// passwordWorkFactor is the bcrypt cost; spec §4.H requires work-factor ≥ 12.
const passwordWorkFactor = 12

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordWorkFactor)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

package password

import "golang.org/x/crypto/bcrypt"

// MaxLength is the longest input bcrypt accepts.
const MaxLength = 72

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// Match reports whether plain matches hash. The comparison runs in constant time.
func Match(hash, plain string) bool {
	return Compare(hash, plain) == nil
}

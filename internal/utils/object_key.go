package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

// RandomHex returns 2*n random hex characters.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// AvatarObjectKey derives a randomized storage key "<userID>-<random>.<ext>"
// that keeps the uploaded file's extension.
func AvatarObjectKey(userID, filename string) (string, error) {
	suffix, err := RandomHex(8)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		return fmt.Sprintf("%s-%s", userID, suffix), nil
	}
	return fmt.Sprintf("%s-%s.%s", userID, suffix, ext), nil
}

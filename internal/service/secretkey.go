package service

import (
	"crypto/rand"
	"math/big"
)

// secretKeyCharset is lowercase alphanumeric with visually ambiguous
// characters (0/o, 1/l/i) removed so keys survive being read aloud or
// copied by hand.
const secretKeyCharset = "abcdefghjkmnpqrstuvwxyz23456789"

const secretKeyLength = 16

// generateSecretKey produces the per-ticket secret paired with the ticket
// number on the public lookup path. The keyspace (31^16) makes collisions
// practically negligible.
func generateSecretKey() (string, error) {
	max := big.NewInt(int64(len(secretKeyCharset)))
	key := make([]byte, secretKeyLength)
	for i := range key {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		key[i] = secretKeyCharset[n.Int64()]
	}
	return string(key), nil
}

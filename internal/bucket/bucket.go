// Package bucket derives the remote store namespace identifier from a
// user passphrase. The derivation is deterministic, so every device that
// knows the passphrase lands in the same bucket, and one-way, so the
// passphrase cannot be recovered from a bucket id seen on the wire.
package bucket

import (
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// Fixed application salt: the id must be reproducible across devices,
// so there is nowhere to store a random per-user salt before sync exists.
var salt = []byte("kite.bucket.v1")

const (
	timeCost   = 1
	memoryCost = 64 * 1024
	threads    = 4
	idLen      = 32
)

// DeriveID returns the bucket id for a passphrase as a hex string.
func DeriveID(passphrase string) string {
	key := argon2.IDKey([]byte(passphrase), salt, timeCost, memoryCost, threads, idLen)
	return hex.EncodeToString(key)
}

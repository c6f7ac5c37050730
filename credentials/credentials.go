// Package credentials derives the client-side SCRAM-SHA-256 proof
// wireclient presents to a backend during its handshake RPC.
package credentials

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength     = 16
	iterationCount = 4096
	keyLength      = 32
)

// Credentials is the client-side credential presentation
// wireclient.Dialer forwards to the backend at handshake time. It
// satisfies pool.Credentials (an opaque `any`) purely by being handed
// through untouched — the pool itself never interprets it (spec §3,
// §6.1).
//
// The construction mirrors pkg/auth/auth.go's
// AuthManager.CreateUser/Authenticate (PBKDF2 -> HMAC "Client Key" ->
// SHA-256 stored key), applied from the client's side of the exchange
// instead of the server's. auth.go's server keeps a per-user random
// salt generated at CreateUser time; a dialer has no prior round-trip
// to learn that salt before presenting a proof, so it derives one
// deterministically from the username instead — the same
// simplification auth.go's own Authenticate comment already concedes
// ("simplified version for basic auth; full SCRAM requires
// challenge-response").
type Credentials struct {
	Username string
	Password string
}

// ClientProofHex derives the SCRAM client proof and renders it as hex,
// since gRPC metadata values must be ASCII.
func (c Credentials) ClientProofHex() string {
	return hex.EncodeToString(c.clientProof())
}

func (c Credentials) clientProof() []byte {
	salt := deterministicSalt(c.Username)
	saltedPassword := pbkdf2.Key([]byte(c.Password), salt, iterationCount, keyLength, sha256.New)
	clientKey := hmacSHA256(saltedPassword, []byte("Client Key"))
	return sha256Hash(clientKey)
}

func deterministicSalt(username string) []byte {
	sum := sha256.Sum256([]byte(username))
	return sum[:saltLength]
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hash(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

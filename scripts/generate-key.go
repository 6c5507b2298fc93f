// Package main is a development utility for generating the secrets a local
// FamilyVault server needs: a JWT signing secret and a 32-byte encryption key
// for refresh tokens at rest. It prints ready-to-export environment variables
// so developers can bring up a working server without inventing key material
// by hand. Do not reuse generated keys in production — provision those from a
// secrets manager.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
)

func randomString(numBytes int) string {
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		log.Fatal(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func main() {
	jwtSecret := randomString(48)

	// The token cipher requires exactly 32 bytes of key material; 24 random
	// bytes base64-encode to a 32-character string.
	encryptionKey := randomString(24)

	fmt.Println("==========================================================")
	fmt.Println("FamilyVault Development Secrets")
	fmt.Println("==========================================================")
	fmt.Printf("\nexport FV_JWT_SECRET=%s\n", jwtSecret)
	fmt.Printf("export FV_ENCRYPTION_KEY=%s\n", encryptionKey)
	fmt.Println("\n==========================================================")
	fmt.Println("Add these to your shell profile or .env before running")
	fmt.Println("`go run ./cmd/server serve`.")
	fmt.Println("==========================================================")
}

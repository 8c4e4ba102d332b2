package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
)

func main() {
	size := flag.Int("bytes", 32, "Number of random bytes in the secret")
	flag.Parse()

	if *size < 16 {
		log.Fatal("Refusing to generate a secret shorter than 16 bytes")
	}

	secret := make([]byte, *size)
	if _, err := rand.Read(secret); err != nil {
		log.Fatal("Failed to generate secret:", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(secret)

	fmt.Println("=== SEAT TOKEN SECRET (Keep this secret!) ===")
	fmt.Println("Set as auth.secret in config.yaml or as the ATCHESS3D_AUTH_SECRET environment variable:")
	fmt.Println()
	fmt.Println(encoded)
	fmt.Println()
	fmt.Println("=== IMPORTANT SECURITY NOTES ===")
	fmt.Println("1. NEVER commit the secret to version control")
	fmt.Println("2. Changing the secret invalidates every seat token already issued")
	fmt.Println("3. Use environment variables or secure key management in production")
}

// Command apitoken mints an operator token for the /api and /ws routes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"streak-bot/internal/auth"
)

func main() {
	subject := flag.String("sub", "operator", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime (0 = no expiry)")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("❌ JWT_SECRET is not set")
	}

	token, err := auth.NewTokenService(secret).IssueToken(*subject, *ttl)
	if err != nil {
		log.Fatalf("❌ Failed to issue token: %v", err)
	}
	fmt.Println(token)
}

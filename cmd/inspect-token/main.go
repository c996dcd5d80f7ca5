package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cabconnect/internal/shared/auth"
	"cabconnect/internal/shared/config"
	"cabconnect/internal/shared/logger"
	"cabconnect/internal/shared/storage"
)

func main() {
	token := flag.String("token", "", "token to inspect (default: the stored session token)")
	flag.Parse()

	if *token == "" {
		tok, err := storedToken()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		*token = tok
	}
	if *token == "" {
		fmt.Fprintln(os.Stderr, "Error: no stored session and no -token given")
		os.Exit(1)
	}

	info, err := auth.Inspect(*token)
	if err != nil {
		fmt.Printf("❌ Token is not readable: %v\n", err)
		os.Exit(1)
	}
	if info.Opaque {
		fmt.Println("Token is opaque (not a JWT); the gateway is the only judge of its validity.")
		return
	}

	// подпись не проверяется: ключа у клиента нет
	fmt.Printf("Claims (unverified):\n")
	fmt.Printf("  User ID:    %s\n", info.UserID)
	fmt.Printf("  Role:       %s\n", info.Role)
	fmt.Printf("  Issuer:     %s\n", info.Issuer)
	if !info.IssuedAt.IsZero() {
		fmt.Printf("  Issued At:  %s\n", info.IssuedAt)
	}
	if !info.ExpiresAt.IsZero() {
		fmt.Printf("  Expires At: %s\n", info.ExpiresAt)
	}
	if info.Expired(time.Now()) {
		fmt.Println("⚠️  Token is EXPIRED: the next restore will discard the session.")
		os.Exit(2)
	}
	fmt.Println("✅ Token is not expired.")
}

func storedToken() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	log := logger.NewLogger("inspect-token")
	db, err := storage.Open(cfg.Storage, log)
	if err != nil {
		return "", err
	}
	defer storage.Close(db, log)

	_, tok, err := storage.NewSessionSlots(db).Load(context.Background())
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	return tok, nil
}

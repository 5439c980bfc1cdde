package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"asset-dashboard/internal/auth"
	"asset-dashboard/internal/config"
)

func main() {
	var (
		email      = flag.String("email", "", "Admin email (overrides ADMIN_EMAIL env var)")
		expiryMins = flag.Int("expiry", 60, "Token expiry in minutes")
		secret     = flag.String("secret", "", "JWT secret (overrides JWT_SECRET env var)")
		issuer     = flag.String("issuer", "", "JWT issuer (overrides JWT_ISS env var)")
		audience   = flag.String("audience", "", "JWT audience (overrides JWT_AUD env var)")
		hash       = flag.String("hash", "", "Print the bcrypt hash of this password for ADMIN_PASSWORD_HASH and exit")
	)
	flag.Parse()

	if *hash != "" {
		h, err := auth.HashPassword(*hash)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		fmt.Println(h)
		return
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Override with command line flags if provided
	if *email != "" {
		cfg.AdminEmail = *email
	}
	if *secret != "" {
		cfg.JWTSecret = *secret
	}
	if *issuer != "" {
		cfg.JWTIssuer = *issuer
	}
	if *audience != "" {
		cfg.JWTAudience = *audience
	}

	// Create JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, time.Duration(*expiryMins)*time.Minute)
	if err := jwtManager.ValidateConfig(); err != nil {
		log.Fatalf("JWT configuration invalid: %v", err)
	}

	// Generate token
	token, claims, err := jwtManager.GenerateToken("admin", cfg.AdminEmail)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	// Print token info
	fmt.Printf("JWT Token generated successfully!\n\n")
	fmt.Printf("Email: %s\n", claims.Email)
	fmt.Printf("Token ID: %s\n", claims.ID)
	fmt.Printf("Expires: %s\n", claims.ExpiresAt.Time.Format(time.RFC3339))
	fmt.Printf("Issuer: %s\n", cfg.JWTIssuer)
	fmt.Printf("Audience: %s\n", cfg.JWTAudience)
	fmt.Printf("\nToken:\n%s\n\n", token)

	// Print usage example
	fmt.Printf("Usage example:\n")
	fmt.Printf("curl -o assets.xlsx -H \"Authorization: Bearer %s\" http://localhost:8080/export.xlsx\n", token)
}

// Command chattoken mints an identity token accepted by the roomhub server,
// for local testing without the real authentication provider.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Tyrowin/roomhub/internal/auth"
)

func main() {
	_ = godotenv.Load()

	username := flag.String("user", "", "username to embed in the token")
	secret := flag.String("secret", os.Getenv("AUTH_SECRET"), "signing secret (defaults to AUTH_SECRET)")
	issuer := flag.String("issuer", envOr("AUTH_ISSUER", "roomhub"), "token issuer")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "chattoken: a signing secret is required (-secret or AUTH_SECRET)")
		os.Exit(2)
	}

	authn := auth.NewTokenAuthenticator(auth.TokenConfig{
		SecretKey:     *secret,
		Issuer:        *issuer,
		TokenDuration: *ttl,
	})

	token, err := authn.Issue(*username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chattoken: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

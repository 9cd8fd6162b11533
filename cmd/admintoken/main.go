// Command admintoken mints a bearer token for the newsletter admin API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"newsletterdispatch/internal/adapters/auth"
)

func main() {
	subject := flag.String("subject", "", "operator name recorded in the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("ADMIN_TOKEN_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_TOKEN_SECRET is required")
		os.Exit(1)
	}
	if *subject == "" {
		fmt.Fprintln(os.Stderr, "-subject is required")
		os.Exit(2)
	}

	token, err := auth.NewJWTIssuer(secret).Issue(*subject, []string{auth.AdminRole}, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}

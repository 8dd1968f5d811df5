// issue-token prints a bearer token for the API. Tokens are signed with
// API_SECRET and expire after TOKEN_HOUR_LIFESPAN hours (default 24).
//
// Usage:
//
//	API_SECRET=... go run ./cmd/issue-token --username cashier --id 3 --role staff
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/retail_ledger/utils"
)

func main() {
	username := flag.String("username", "", "Required: name carried in the token")
	userID := flag.Int("id", 0, "User id carried in the token")
	role := flag.String("role", "staff", "Role carried in the token")
	flag.Parse()

	if strings.TrimSpace(*username) == "" {
		fmt.Fprintln(os.Stderr, "--username is required")
		os.Exit(1)
	}
	if !utils.AuthEnabled() {
		fmt.Fprintln(os.Stderr, "API_SECRET is not set; the API accepts unauthenticated writes")
		os.Exit(1)
	}

	token, err := utils.JwtGenerate(*userID, strings.TrimSpace(*username), *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

// Command leakcheck-cli is a one-shot interactive harness for checking a
// single credential against the breach oracle, outside of the HTTP server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/lkeld/leakcheck-core/internal/checker"
	"github.com/lkeld/leakcheck-core/internal/config"
	"github.com/lkeld/leakcheck-core/internal/oauthtoken"
	"github.com/lkeld/leakcheck-core/internal/oracle"
)

func main() {
	username := flag.String("username", "", "username or email to check")
	password := flag.String("password", "", "password to check (prompted if omitted)")
	flag.Parse()

	cfg := config.Load()
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" || cfg.GoogleRefreshToken == "" {
		fmt.Fprintln(os.Stderr, "GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, and GOOGLE_REFRESH_TOKEN must be set")
		os.Exit(1)
	}

	if strings.TrimSpace(*username) == "" {
		fmt.Fprint(os.Stderr, "username: ")
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		*username = strings.TrimSpace(line)
	}
	if strings.TrimSpace(*password) == "" {
		fmt.Fprint(os.Stderr, "password: ")
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		*password = strings.TrimSpace(line)
	}

	tokens := oauthtoken.NewManager(oauthtoken.Config{
		ClientID:      cfg.GoogleClientID,
		ClientSecret:  cfg.GoogleClientSecret,
		RefreshToken:  cfg.GoogleRefreshToken,
		TokenURL:      cfg.GoogleTokenURL,
		Scope:         cfg.GoogleAPIScope,
		CacheDuration: cfg.TokenCacheDuration,
	})
	oracleClient := oracle.New(cfg.GoogleAPIURL, tokens)

	svc, err := checker.New(oracleClient)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to construct checker: %v\n", err)
		os.Exit(1)
	}

	leaked, err := svc.CheckSingleCredential(context.Background(), *username, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "check failed: %v\n", err)
		os.Exit(1)
	}

	if leaked {
		fmt.Println("LEAKED: this credential appears in a known data breach")
		os.Exit(2)
	}
	fmt.Println("OK: this credential was not found in the breach database")
}

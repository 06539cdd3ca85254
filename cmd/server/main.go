package main

import (
	"bufio"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lkeld/leakcheck-core/internal/api"
	"github.com/lkeld/leakcheck-core/internal/checker"
	"github.com/lkeld/leakcheck-core/internal/config"
	"github.com/lkeld/leakcheck-core/internal/oauthtoken"
	"github.com/lkeld/leakcheck-core/internal/oracle"
)

func main() {
	loadEnvFiles()

	cfg := config.Load()

	if cfg.GoogleClientID == "" {
		log.Fatal("GOOGLE_CLIENT_ID is required")
	}
	if cfg.GoogleClientSecret == "" {
		log.Fatal("GOOGLE_CLIENT_SECRET is required")
	}
	if cfg.GoogleRefreshToken == "" {
		log.Fatal("GOOGLE_REFRESH_TOKEN is required")
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

	checkerSvc, err := checker.New(oracleClient)
	if err != nil {
		log.Fatalf("Failed to create checker: %v", err)
	}

	handlers := api.NewHandlers(cfg, checkerSvc, tokens)
	router := api.NewRouter(handlers)

	addr := cfg.ServerHost + ":" + cfg.ServerPort
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

func loadEnvFile(filename string) {
	file, err := os.Open(filename)
	if err != nil {
		return // File doesn't exist, skip
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func loadEnvFiles() {
	cwd, err := os.Getwd()
	if err != nil {
		loadEnvFile(".env")
		return
	}

	root := findRepoRoot(cwd)
	paths := []string{filepath.Join(cwd, ".env")}
	if root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}

	for _, path := range paths {
		loadEnvFile(path)
	}
}

func findRepoRoot(start string) string {
	dir := start
	for i := 0; i < 6; i++ {
		if hasFile(dir, "go.mod") {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func hasFile(base, name string) bool {
	info, err := os.Stat(filepath.Join(base, name))
	return err == nil && !info.IsDir()
}

// Command hash_token bcrypt-hashes an admin token for the config file's
// auth.admin_token_hash field.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/auth"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	token := flag.String("token", "", "Admin token to hash")
	tokenStdin := flag.Bool("token-stdin", false, "Read the token from stdin")
	flag.Parse()

	if *tokenStdin {
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			log.Fatalf("reading token from stdin: %v", err)
		}
		*token = strings.TrimSpace(input)
	}

	if *token == "" {
		log.Fatal("token is required")
	}
	if len(*token) < 16 {
		log.Fatal("token must be at least 16 characters")
	}

	cost := bcrypt.DefaultCost
	if cfg, err := config.Load(*configPath); err == nil && cfg.Auth.BcryptCost > 0 {
		cost = cfg.Auth.BcryptCost
	}

	hash, err := auth.HashToken(*token, cost)
	if err != nil {
		log.Fatalf("hashing token: %v", err)
	}

	fmt.Println("Add to config.yaml under auth:")
	fmt.Printf("  admin_token_hash: %q\n", hash)
}

package main

import (
	"fmt"
	"os"

	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/policy"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/keygen/main.go <api-key>")
		fmt.Println("Generates a SHA-256 hash of the provided API key for use in config.yaml")
		os.Exit(1)
	}

	apiKey := os.Args[1]
	keyHash := policy.HashKey(apiKey)

	fmt.Printf("API Key: %s\n", apiKey)
	fmt.Printf("SHA-256 Hash: %s\n", keyHash)
	fmt.Println("\nAdd this to your config.yaml:")
	fmt.Printf("policies:\n")
	fmt.Printf("  - key_id: \"my-key\"\n")
	fmt.Printf("    key_hash: \"%s\"\n", keyHash)
	fmt.Printf("    model: \"llama2\"\n")
	fmt.Printf("    rate_budget:\n")
	fmt.Printf("      limit: 60\n")
	fmt.Printf("      window_seconds: 60\n")
}

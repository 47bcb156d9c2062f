package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lawnchairsociety/villagegen/internal/config"
	"github.com/lawnchairsociety/villagegen/test"
)

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Playback server base URL")
	configFile := flag.String("config", "village.yaml", "Village config the server was started with")
	verbose := flag.Bool("v", false, "Verbose output - show detailed actions for each test")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Set verbose mode
	test.Verbose = *verbose

	fmt.Printf("Running integration tests against %s\n", *serverURL)
	fmt.Println("Make sure villaged is running!")
	if *verbose {
		fmt.Println("Verbose mode enabled - showing detailed test actions")
	}
	fmt.Println()

	results := test.NewSuite(*serverURL, cfg).RunAllTests()
	test.PrintResults(results)

	// Exit with error code if any tests failed
	for _, result := range results {
		if !result.Passed {
			os.Exit(1)
		}
	}
}

package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"gmd/internal/di"
	"gmd/internal/structures"
)

func main() {
	// Optional .env next to the binary; real env vars win.
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "mirror logs to stderr")
	flag.Parse()

	flags := &structures.CliFlags{
		ConfigPath: *configPath,
		DebugMode:  *debug,
	}

	if _, err := di.InitApp(flags); err != nil {
		log.Fatalf("gmd: %v", err)
	}
}

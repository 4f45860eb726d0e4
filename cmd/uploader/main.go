package main

import (
	"os"

	"github.com/joho/godotenv"

	utils "direct2url/internal"
)

func main() {
	// .env is optional for the CLI
	_ = godotenv.Load()

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		utils.Shutdown("uploader failed", err)
	}
}

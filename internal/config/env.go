package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/bloghub/internal/logfields"
)

var envFiles = []string{".env", ".env.local"}

// LoadEnvFiles loads .env and .env.local from the working directory.
// Variables already set in the process environment are not overwritten.
func LoadEnvFiles() {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load env file", logfields.Path(name), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment file", logfields.Path(name))
	}
}

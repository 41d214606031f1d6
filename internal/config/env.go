package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables holding cloud TTS credentials.
const (
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvElevenLabsKey = "ELEVENLABS_API_KEY"
)

// Credentials carries secrets resolved from the process environment.
type Credentials struct {
	OpenAIKey     string
	ElevenLabsKey string
}

// EnvFilePath returns the dotenv file consulted for credentials. An explicit
// tts.env_file wins; otherwise a .env next to the config file is used.
func EnvFilePath(loaded Loaded) string {
	if path := strings.TrimSpace(loaded.Config.TTS.EnvFile); path != "" {
		return path
	}
	if loaded.Path == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(loaded.Path), ".env")
}

// LoadCredentials loads the dotenv file (if any) without overriding variables
// already set, then reads the credential variables.
func LoadCredentials(loaded Loaded) (Credentials, []Warning) {
	var warnings []Warning

	path := EnvFilePath(loaded)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				warnings = append(warnings, Warning{Message: fmt.Sprintf("load env file %q: %v", path, err)})
			}
		} else if strings.TrimSpace(loaded.Config.TTS.EnvFile) != "" {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("env file %q not found", path)})
		}
	}

	return Credentials{
		OpenAIKey:     strings.TrimSpace(os.Getenv(EnvOpenAIKey)),
		ElevenLabsKey: strings.TrimSpace(os.Getenv(EnvElevenLabsKey)),
	}, warnings
}

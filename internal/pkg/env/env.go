package env

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Env holds the key/value pairs read from the .env file. Process
// environment variables win over the file for any key they set, so
// containerized deployments work without a file at all.
var Env map[string]string

func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if val, ok := Env[key]; ok {
		return val
	}
	return def
}

// GetEnvInt parses an integer setting, falling back to def when the key
// is unset or not a number
func GetEnvInt(key string, def int) int {
	raw := GetEnv(key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

// SetupEnvFile loads the .env file, walking up from the binary's working
// directory so both `go run ./cmd/panicdeck` and a repo-root binary find it
func SetupEnvFile() {
	candidates := []string{
		".env",
		"../.env",
		"../../.env",
	}

	for _, candidate := range candidates {
		loaded, err := godotenv.Read(candidate)
		if err == nil {
			Env = loaded
			return
		}
	}

	panic("env: no .env file found, copy .env.example and fill in the connection settings")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}

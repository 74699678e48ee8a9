package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultEnvFile is the dotenv file read from the working directory.
const DefaultEnvFile = ".env"

// Credential environment variables.
const (
	EnvTodoistToken = "TODOIST_API_TOKEN"
	EnvAirtableKey  = "AIRTABLE_API_KEY"
	EnvAirtableBase = "AIRTABLE_BASE_ID"
	EnvYouTubeKey   = "YOUTUBE_API_KEY"
	EnvSupadataKey  = "SUPADATA_API_KEY"

	// EnvYouTubeClientSecrets points at the OAuth client_secrets.json used by
	// the channel owner commands.
	EnvYouTubeClientSecrets = "YOUTUBE_CLIENT_SECRETS"

	// EnvTokenDir overrides where OAuth tokens are cached.
	EnvTokenDir = "TASKRELAY_TOKEN_DIR"
)

// Credentials lists the API keys and IDs doctor checks.
var Credentials = []string{EnvTodoistToken, EnvAirtableKey, EnvAirtableBase, EnvYouTubeKey, EnvSupadataKey}

// LoadEnvFile reads a dotenv file and exports its values into the process
// environment. Variables that are already set keep their value. A missing
// file is not an error. It returns the names it exported.
func LoadEnvFile(path string) ([]string, error) {
	if path == "" {
		path = DefaultEnvFile
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var exported []string
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return exported, fmt.Errorf("set %s: %w", name, err)
		}
		exported = append(exported, name)
	}
	return exported, nil
}

// MissingError reports a required credential that is not set.
type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s not set. Add it to .env or export it.", e.Name)
}

// Require returns the value of a required environment variable.
func Require(name string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v, nil
	}
	return "", &MissingError{Name: name}
}

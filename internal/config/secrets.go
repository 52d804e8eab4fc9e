package config

import (
	"fmt"
	"os"
	"strings"
)

// Secret sources reported by LookupSecret.
const (
	SourceNone = "none"
	SourceEnv  = "env"
	SourceFile = "file"
)

// LookupSecret reads a secret using the *_FILE convention. envName+"_FILE"
// names a file and takes precedence over envName itself. source tells which
// one was used so callers can log it without logging the value.
func LookupSecret(envName string) (value, source string, err error) {
	fileEnv := envName + "_FILE"
	if path := os.Getenv(fileEnv); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", SourceFile, fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, path, err)
		}
		return strings.TrimSpace(string(content)), SourceFile, nil
	}

	if v, ok := os.LookupEnv(envName); ok {
		return v, SourceEnv, nil
	}
	return "", SourceNone, nil
}

// ResolveSecret is LookupSecret without the source.
func ResolveSecret(envName string) (string, error) {
	v, _, err := LookupSecret(envName)
	return v, err
}

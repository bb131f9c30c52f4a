package config

import (
	"bufio"
	"errors"
	"os"
	"strings"
)

// LoadDotEnv applies KEY=VALUE lines from the given files to the process
// environment. Missing files are skipped; variables already set in the
// environment win over file values, so deployment env always overrides a
// checked-in .env.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		name := strings.TrimSpace(path)
		if name == "" {
			continue
		}
		if err := applyEnvFile(name); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

func applyEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// tolerate shell-style "export KEY=VALUE" lines
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, rawValue, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, parseEnvValue(rawValue))
	}
	return scanner.Err()
}

var doubleQuoteUnescaper = strings.NewReplacer(
	`\\`, `\`,
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\"`, `"`,
)

func parseEnvValue(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}

	if quote := value[0]; quote == '"' || quote == '\'' {
		if len(value) >= 2 && value[len(value)-1] == quote {
			inner := value[1 : len(value)-1]
			if quote == '"' {
				return doubleQuoteUnescaper.Replace(inner)
			}
			return inner
		}
	}

	// unquoted values may carry a trailing "# comment"
	if index := strings.Index(value, " #"); index >= 0 {
		return strings.TrimSpace(value[:index])
	}
	return value
}

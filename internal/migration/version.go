package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

// ExpectedSchema reports the version and checksum the embedded migrations
// produce. The schema gate compares these against the recorded state.
func ExpectedSchema() (version string, checksum string, err error) {
	latest, sum, err := scanEmbedded()
	if err != nil {
		return "", "", err
	}
	return strconv.FormatUint(uint64(latest), 10), sum, nil
}

// scanEmbedded walks the embedded up-migrations once, yielding the highest
// version number and a checksum over ordered names and contents.
func scanEmbedded() (uint, string, error) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	if err != nil {
		return 0, "", fmt.Errorf("list migrations: %w", err)
	}

	var names []string
	var latest uint
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, _ := strings.Cut(name, "_")
		parsed, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			return 0, "", fmt.Errorf("invalid migration filename %q: %w", name, err)
		}
		if uint(parsed) > latest {
			latest = uint(parsed)
		}
		names = append(names, name)
	}
	if latest == 0 {
		return 0, "", errors.New("no embedded migrations found")
	}

	sort.Strings(names)
	hasher := sha256.New()
	for _, name := range names {
		content, err := embeddedMigrations.ReadFile(migrationsDir + "/" + name)
		if err != nil {
			return 0, "", fmt.Errorf("read migration %s: %w", name, err)
		}
		hasher.Write([]byte(name))
		hasher.Write([]byte{0})
		hasher.Write(content)
		hasher.Write([]byte{0})
	}
	return latest, hex.EncodeToString(hasher.Sum(nil)), nil
}

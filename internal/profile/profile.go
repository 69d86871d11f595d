// Package profile manages named account profiles. Each profile owns one
// token file under the tokens/ directory; a .active_profile marker records
// which profile commands act on by default.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bulktube/bulktube/internal/tokenfile"
)

// DefaultName is the profile used when no marker or --profile flag selects one.
const DefaultName = "default"

// tokensDirName is the directory under the state dir holding token files.
const tokensDirName = "tokens"

// markerName is the single-line file recording the active profile.
const markerName = ".active_profile"

// markerPerms matches ordinary config file permissions; the marker holds no
// secrets, only a profile name.
const markerPerms = 0o644

// Book manages the profiles under one state directory.
type Book struct {
	stateDir string
	logger   *slog.Logger
}

// NewBook creates a profile book rooted at stateDir. The directory is
// created lazily by the first write.
func NewBook(stateDir string, logger *slog.Logger) *Book {
	if logger == nil {
		logger = slog.Default()
	}

	return &Book{stateDir: stateDir, logger: logger}
}

// TokensDir returns the directory holding per-profile token files.
func (b *Book) TokensDir() string {
	return filepath.Join(b.stateDir, tokensDirName)
}

// TokenPath returns the token file path for the named profile.
func (b *Book) TokenPath(name string) string {
	return filepath.Join(b.TokensDir(), name+".json")
}

// Active returns the profile named by the .active_profile marker, or
// DefaultName when no marker exists. A marker naming a profile with no token
// file is still honored: the profile simply is not logged in yet.
func (b *Book) Active() (string, error) {
	data, err := os.ReadFile(filepath.Join(b.stateDir, markerName))
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultName, nil
	}

	if err != nil {
		return "", fmt.Errorf("profile: reading active marker: %w", err)
	}

	name := strings.TrimSpace(string(data))
	if name == "" {
		return DefaultName, nil
	}

	return name, nil
}

// SetActive writes the .active_profile marker. The named profile does not
// need to exist yet; switching before login is allowed.
func (b *Book) SetActive(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	if err := os.MkdirAll(b.stateDir, tokenfile.DirPerms); err != nil {
		return fmt.Errorf("profile: creating state dir: %w", err)
	}

	path := filepath.Join(b.stateDir, markerName)
	if err := os.WriteFile(path, []byte(name+"\n"), markerPerms); err != nil {
		return fmt.Errorf("profile: writing active marker: %w", err)
	}

	b.logger.Info("switched active profile", slog.String("profile", name))

	return nil
}

// List returns the names of all profiles that have a token file, sorted.
func (b *Book) List() ([]string, error) {
	entries, err := os.ReadDir(b.TokensDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("profile: reading tokens dir: %w", err)
	}

	var names []string

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}

		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}

	sort.Strings(names)

	return names, nil
}

// Exists reports whether the named profile has a token file.
func (b *Book) Exists(name string) bool {
	_, err := os.Stat(b.TokenPath(name))
	return err == nil
}

// Delete removes the named profile's token file. Deleting the active profile
// resets the marker to the default. Returns nil when the profile has no
// token file (already logged out).
func (b *Book) Delete(name string) error {
	err := os.Remove(b.TokenPath(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("profile: removing token for %s: %w", name, err)
	}

	active, activeErr := b.Active()
	if activeErr == nil && active == name && name != DefaultName {
		if setErr := b.SetActive(DefaultName); setErr != nil {
			return setErr
		}
	}

	return nil
}

// MigrateLegacyToken moves a pre-profile single token file into the tokens
// directory as the default profile. One-shot: a no-op when the legacy file
// is absent or the default profile already has a token.
func (b *Book) MigrateLegacyToken(legacyPath string) error {
	if legacyPath == "" {
		return nil
	}

	if _, err := os.Stat(legacyPath); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	dest := b.TokenPath(DefaultName)
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	tok, meta, err := tokenfile.Load(legacyPath)
	if err != nil {
		return fmt.Errorf("profile: reading legacy token: %w", err)
	}

	if tok == nil {
		return nil
	}

	if err := tokenfile.Save(dest, tok, meta); err != nil {
		return fmt.Errorf("profile: migrating legacy token: %w", err)
	}

	if err := os.Remove(legacyPath); err != nil {
		b.logger.Warn("could not remove legacy token file",
			slog.String("path", legacyPath),
			slog.String("error", err.Error()),
		)
	}

	b.logger.Info("migrated legacy token file",
		slog.String("from", legacyPath),
		slog.String("to", dest),
	)

	return nil
}

// validateName rejects profile names that would escape the tokens directory
// or collide with the marker file.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("profile: name must not be empty")
	}

	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("profile: invalid name %q", name)
	}

	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("profile: name must not start with a dot: %q", name)
	}

	return nil
}

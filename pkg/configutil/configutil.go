package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/titanous/json5"
)

// LocalPath returns the path of the local override for a config file,
// `config.json5` becomes `config.local.json5`.
func LocalPath(name string) string {
	ext := filepath.Ext(name)
	prefix := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s.local%s", prefix, ext)
}

// ReadConfig reads a json5 configuration file and its local override, the
// local file wins on every field it sets.
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// os.ErrNotExist is returned when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	err := ReadConfigInto(name, &out)
	return out, err
}

// ReadConfigInto is ReadConfig decoding onto out, fields that neither file
// sets keep the value out already holds. Values a file sets explicitly,
// zero values included, always win.
func ReadConfigInto[T any](name string, out *T) error {
	found := false
	for _, path := range []string{name, LocalPath(name)} {
		content, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		found = true
		if len(content) == 0 {
			continue
		}
		err = json5.Unmarshal(content, out)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if path != name {
			slog.Info("merging config with local overrides", "local", path)
		}
	}

	if !found {
		return os.ErrNotExist
	}
	return nil
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const exampleHeader = `# todo configuration file
# Values can be overridden by TODO_* environment variables or CLI flags.
# theme: classic, neon, mono. log_level: debug, info, warn, error.

`

// WriteExample encodes cfg as a commented TOML config file.
func WriteExample(w io.Writer, cfg Config) error {
	var buf bytes.Buffer
	buf.WriteString(exampleHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("toml encode: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ErrExists is returned by InitFile when the target already exists.
var ErrExists = errors.New("config file already exists")

// InitFile writes the defaults to path, creating parent directories. It
// refuses to overwrite unless force is set.
func InitFile(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	var buf bytes.Buffer
	if err := WriteExample(&buf, Defaults()); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

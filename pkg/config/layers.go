package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

const defaultsPath = "defaults/config"

// layer is one parsed config file in the lookup chain.
type layer struct {
	name    string // embedded, global or local, used in error messages
	section *ini.Section
}

// readLayers parses the embedded defaults and the global and local config files, in merge
// order. missing files, empty paths and files holding only comments are skipped.
func readLayers(fsys fs.FS, localPath, globalPath string) ([]layer, error) {
	data, err := fs.ReadFile(fsys, defaultsPath)
	if err != nil {
		return nil, fmt.Errorf("read embedded defaults: %w", err)
	}
	embedded, err := parseLayer("embedded", data)
	if err != nil {
		return nil, err
	}
	res := []layer{embedded}

	for _, f := range []struct{ name, path string }{{"global", globalPath}, {"local", localPath}} {
		if f.path == "" {
			continue
		}
		data, err := os.ReadFile(f.path) //nolint:gosec // path is constructed internally
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s config %s: %w", f.name, f.path, err)
		}
		if strings.TrimSpace(stripComments(string(data))) == "" {
			continue
		}
		l, err := parseLayer(f.name, data)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, nil
}

func parseLayer(name string, data []byte) (layer, error) {
	// '#' inside a value is a color, not an inline comment
	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return layer{}, fmt.Errorf("parse %s config: %w", name, err)
	}
	return layer{name: name, section: f.Section("")}, nil
}

// installDefaults creates dir (user only) and writes the embedded defaults as its config file.
// an existing config file is left alone.
func installDefaults(fsys fs.FS, dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	path := filepath.Join(dir, "config")
	switch _, err := os.Stat(path); {
	case err == nil:
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("check config file: %w", err)
	}

	data, err := fs.ReadFile(fsys, defaultsPath)
	if err != nil {
		return fmt.Errorf("read embedded config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// stripComments drops comment lines, accepting LF and CRLF endings.
func stripComments(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := make([]string, 0, strings.Count(content, "\n")+1)
	for line := range strings.SplitSeq(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

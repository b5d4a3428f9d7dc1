package config

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var errNoClosingFence = errors.New("front matter: missing closing ---")

// parseFrontMatter decodes an optional YAML header delimited by "---" lines
// into meta and returns the remaining markdown body. A document without a
// header is all body.
func parseFrontMatter(data []byte, meta any) (string, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte("---\n")) {
		return string(data), nil
	}

	rest := data[4:]
	var header []byte
	for {
		i := bytes.IndexByte(rest, '\n')
		var line []byte
		if i < 0 {
			line = rest
		} else {
			line = rest[:i]
		}
		if string(bytes.TrimSpace(line)) == "---" {
			header = data[4 : len(data)-len(rest)]
			if i < 0 {
				rest = nil
			} else {
				rest = rest[i+1:]
			}
			break
		}
		if i < 0 {
			return "", errNoClosingFence
		}
		rest = rest[i+1:]
	}

	if err := yaml.Unmarshal(header, meta); err != nil {
		return "", fmt.Errorf("front matter: %w", err)
	}
	return string(bytes.TrimLeft(rest, "\n")), nil
}

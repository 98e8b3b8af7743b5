// Package targetfile reads cache targets from an INI style file, one
// section per target:
//
//	[prod]
//	server = https://cache.example.com/cache/
//	suffix = .json
//	username = admin
package targetfile

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Entry holds the fields of one section.
type Entry struct {
	Server   string
	Suffix   string
	Username string
	Password string
	Cookie   string
	Notes    string
}

// Load parses path and returns its entries by section name. Keys outside
// a section and unknown keys are ignored; a section without server is an
// error.
func Load(path string) (map[string]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries := make(map[string]Entry)
	var current string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = strings.TrimSpace(line[1 : len(line)-1])
			if _, exists := entries[current]; !exists {
				entries[current] = Entry{}
			}
			continue
		}
		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 || current == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])
		e := entries[current]
		switch key {
		case "server", "url":
			e.Server = val
		case "suffix", "path_suffix":
			e.Suffix = val
		case "username", "user":
			e.Username = val
		case "password":
			e.Password = val
		case "cookie":
			e.Cookie = val
		case "notes":
			e.Notes = val
		}
		entries[current] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for name, e := range entries {
		if e.Server == "" {
			return nil, fmt.Errorf("target %s missing server", name)
		}
	}
	return entries, nil
}

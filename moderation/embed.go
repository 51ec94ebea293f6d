package moderation

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed censored/*
var censoredFolder embed.FS

// DefaultWords loads the embedded forbidden-word list shipped with the server.
// One word per line, '#' starts a comment.
func DefaultWords() ([]string, error) {
	entries, err := censoredFolder.ReadDir("censored")
	if err != nil {
		return nil, err
	}

	var words []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		f, err := censoredFolder.Open("censored/" + entry.Name())
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			word := strings.TrimSpace(scanner.Text())
			if word == "" || strings.HasPrefix(word, "#") {
				continue
			}
			words = append(words, word)
		}
		_ = f.Close()
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	return words, nil
}

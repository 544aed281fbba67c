package net

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveStaticDir locates the browser client assets next to the working
// directory or the executable.
func ResolveStaticDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve static assets: %w", err)
	}
	if dir, ok := resolveStaticDirFrom(cwd); ok {
		return dir, nil
	}
	exePath, err := os.Executable()
	if err == nil {
		base := filepath.Dir(exePath)
		if dir, ok := resolveStaticDirFrom(base); ok {
			return dir, nil
		}
	}
	return "", fmt.Errorf("static assets directory not found")
}

func resolveStaticDirFrom(base string) (string, bool) {
	candidates := []string{
		filepath.Join(base, "static"),
		filepath.Join(base, "..", "static"),
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.IsDir() {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				continue
			}
			return abs, true
		}
	}
	return "", false
}

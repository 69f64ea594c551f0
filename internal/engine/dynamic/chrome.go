package dynamic

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
)

// chromeNames are looked up on PATH when no known install location exists.
var chromeNames = []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser", "chrome"}

// installLocations lists where Chrome is usually installed on goos.
func installLocations(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		var paths []string
		for _, env := range []string{"ProgramFiles", "ProgramFiles(x86)", "LocalAppData"} {
			if base := os.Getenv(env); base != "" {
				paths = append(paths, filepath.Join(base, `Google\Chrome\Application\chrome.exe`))
			}
		}
		return paths
	default:
		return []string{"/usr/bin/google-chrome-stable", "/usr/bin/google-chrome", "/usr/bin/chromium", "/snap/bin/chromium"}
	}
}

// FindChrome returns the browser executable for the launcher: the configured
// path, then CHROME_PATH, then a known install location, then PATH. An empty
// result leaves the choice to chromedp.
func FindChrome(configured string) string {
	for _, c := range []struct{ source, path string }{
		{"config", configured},
		{"CHROME_PATH", os.Getenv("CHROME_PATH")},
	} {
		if c.path == "" {
			continue
		}
		if isExecutable(c.path) {
			log.Debug().Str("path", c.path).Str("source", c.source).Msg("Using browser executable")
			return c.path
		}
		log.Warn().Str("path", c.path).Str("source", c.source).Msg("Browser path is not executable, searching")
	}

	for _, path := range installLocations(runtime.GOOS) {
		if isExecutable(path) {
			return path
		}
	}
	for _, name := range chromeNames {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	log.Warn().Str("os", runtime.GOOS).Msg("Chrome not found, falling back to chromedp default")
	return ""
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return runtime.GOOS == "windows" || info.Mode()&0o111 != 0
}

// Package cli provides the command-line interface for the crawlflow application.
package cli

import "github.com/law-makers/crawlflow/internal/app"

// The application is created once per command invocation by the root
// command's pre-run hook and closed by its post-run hook.
var currentApp *app.Application

// SetApp stores the Application used by the running command.
func SetApp(a *app.Application) {
	currentApp = a
}

// GetApp returns the Application of the running command, or nil.
func GetApp() *app.Application {
	return currentApp
}

// Package cli resolves the command-line argument vector into an app.Config.
// It validates only what is locally decidable: the analysis level must be
// one of the two permitted values and the required positionals must be
// present. Path existence is deliberately not checked here; missing files
// surface later, when the engine tries to read them.
package cli

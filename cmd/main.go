// PalmGuard - touchpad auto-disable while typing
package main

import "palmguard/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}

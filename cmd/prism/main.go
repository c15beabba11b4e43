package main

import "prism/internal/logging"

func main() {
	// Settings replace this once loaded; until then PRISM_LOG_* apply.
	logging.InitFromEnv()
	Execute()
}

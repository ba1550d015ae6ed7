package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (invalid config file, env or flag value)
	ExitDataError   = 3 // Data error (DOI not found, no entries produced)
)

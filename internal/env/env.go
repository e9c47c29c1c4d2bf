package env

const AppName = "partlab"

// Set at build time via -ldflags "-X github.com/ostafen/partlab/internal/env.Version=...".
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

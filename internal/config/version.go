package config

// Build metadata injected at build time via ldflags:
//
//	go build -ldflags "-X 'github.com/paneldeck/paneldeck/internal/config.Version=1.2.0' \
//	                   -X 'github.com/paneldeck/paneldeck/internal/config.Commit=abc1234'"
var (
	Version = "dev"
	Commit  = "unknown"
)

// Package version exposes build metadata for the perp-research binaries.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/perp-research/internal/version.Version=0.4.0 \
//	                   -X github.com/rickgao/perp-research/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/perp-research/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns the version line printed by -version.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}

// UserAgent is sent on every outbound REST request.
func UserAgent() string {
	return "perp-research/" + Version
}

package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/inferloop/autoeda/pkg/constants"
)

// Set with -ldflags "-X main.GitCommit=... -X main.BuildDate=..."
var (
	Version   = constants.AppVersion
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// BuildInfo describes the binary and the engines compiled into it
type BuildInfo struct {
	Service       string   `json:"service"`
	Version       string   `json:"version"`
	GitCommit     string   `json:"git_commit"`
	BuildDate     string   `json:"build_date"`
	GoVersion     string   `json:"go_version"`
	Platform      string   `json:"platform"`
	QueryEngine   string   `json:"query_engine"`
	StateBackends []string `json:"state_backends"`
}

func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Service:       constants.AppName,
		Version:       Version,
		GitCommit:     GitCommit,
		BuildDate:     BuildDate,
		GoVersion:     runtime.Version(),
		Platform:      runtime.GOOS + "/" + runtime.GOARCH,
		QueryEngine:   constants.SQLEngineName,
		StateBackends: []string{"file", "redis", "postgres"},
	}
}

// Print writes the build info in the -version layout
func (b BuildInfo) Print(w io.Writer) {
	fmt.Fprintf(w, "%s %s (%s, built %s)\n", b.Service, b.Version, b.GitCommit, b.BuildDate)
	fmt.Fprintf(w, "%s %s\n", b.GoVersion, b.Platform)
	fmt.Fprintf(w, "query engine: %s\n", b.QueryEngine)
	fmt.Fprintf(w, "state backends: %v\n", b.StateBackends)
}

package version

import "fmt"

// Build-time injected information, set via -ldflags.
var (
	Version    string
	CommitHash string
	BuildTime  string
	OS         string
	Arch       string
)

// GetVersion returns the version information in a human consumable way. It is
// used for the version subcommand and the User-Agent header.
func GetVersion() string {
	return makeVersionString(Version, CommitHash, OS, Arch)
}

func makeVersionString(version, commitHash, os, arch string) string {
	if version == "" {
		version = "development"
	}
	versionString := version
	if commitHash != "" {
		versionString = fmt.Sprintf("%s(%s)", versionString, commitHash)
	}
	if os != "" && arch != "" {
		versionString = fmt.Sprintf("%s/%s-%s", versionString, os, arch)
	} else if os != "" {
		versionString = fmt.Sprintf("%s/%s", versionString, os)
	}
	return versionString
}

package release

import "fmt"

// BridgeDotVersion represents the dot version for e2bridge
var BridgeDotVersion = "0.1.0"

// These variables are set at buildtime with
// -ldflags "-X github.com/suborbital/e2bridge/release.CommitHash=... -X github.com/suborbital/e2bridge/release.BuildTime=..."
var CommitHash = ""
var BuildTime = ""

func Version() string {
	if CommitHash != "" && BuildTime != "" {
		return fmt.Sprintf(`%s %s (Built at %s)`, BridgeDotVersion, CommitHash, BuildTime)
	}
	return BridgeDotVersion
}

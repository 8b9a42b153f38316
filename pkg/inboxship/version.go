package inboxship

import "runtime/debug"

// Version is the library version reported in the webhook User-Agent.
// Release builds override it with -ldflags "-X .../pkg/inboxship.Version=v1.2.3".
var Version = "dev"

// UserAgent returns the User-Agent sent with every delivery.
func UserAgent() string {
	return "inboxship/" + resolvedVersion()
}

func resolvedVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

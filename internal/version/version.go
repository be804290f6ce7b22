package version

import "runtime"

// Version is the current version of iml-device.
// Use semantic versioning: MAJOR.MINOR.PATCH
const Version = "0.4.0"

// UserAgent identifies the agent to the manager.
func UserAgent() string {
	return "iml-device/" + Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}

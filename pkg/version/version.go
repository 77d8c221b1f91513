// Package version carries the build version, overridable at link time with
// -ldflags "-X .../pkg/version.Version=v1.2.3".
package version

// Version is the current release tag.
var Version = "v0.3.0"

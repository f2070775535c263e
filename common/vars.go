// Package common holds process-wide settings shared by the commands.
package common

// Version is set at build time with -ldflags "-X github.com/ruteri/certificate-registry/common.Version=..."
var Version = "dev"

// PackageName is the module path, used to tag logs.
const PackageName = "github.com/ruteri/certificate-registry"

// pkg/version/version.go - build information for winsetup binaries.

package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/windowsadmins/winsetup/pkg/version.version=..."
var (
	version   = "dev"
	revision  = "unknown"
	buildDate = "unknown"
	appName   = "winsetup"
)

// Info is a structure with version build information about the current application.
type Info struct {
	AppName   string `json:"app_name" yaml:"app_name"`
	Version   string `json:"version" yaml:"version"`
	Revision  string `json:"revision" yaml:"revision"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	BuildDate string `json:"build_date" yaml:"build_date"`
}

// Version returns a structure with the current version information.
func Version() Info {
	return Info{
		AppName:   appName,
		Version:   version,
		Revision:  revision,
		GoVersion: runtime.Version(),
		BuildDate: buildDate,
	}
}

// String returns "name version".
func (i Info) String() string {
	return fmt.Sprintf("%s %s", i.AppName, i.Version)
}

// Print outputs the application name and version string.
func Print() {
	fmt.Println(Version().String())
}

// PrintFull prints the application name and detailed version information.
func PrintFull() {
	v := Version()
	fmt.Println(v.String())
	fmt.Printf("  revision: \t%s\n", v.Revision)
	fmt.Printf("  build date: \t%s\n", v.BuildDate)
	fmt.Printf("  go version: \t%s\n", v.GoVersion)
}

// pkg/facts/facts.go - machine facts recorded with every provisioning run.

package facts

import (
	"context"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/windowsadmins/winsetup/pkg/logging"
)

// Facts describes the machine being provisioned.
type Facts struct {
	Hostname     string `yaml:"hostname"`
	Username     string `yaml:"username,omitempty"`
	Domain       string `yaml:"domain,omitempty"`
	OSVersion    string `yaml:"os_version,omitempty"`
	Architecture string `yaml:"architecture"`
	MachineType  string `yaml:"machine_type,omitempty"`  // "laptop" or "desktop"
	MachineModel string `yaml:"machine_model,omitempty"` // e.g. "LENOVO ThinkPad X1"
}

// Collect gathers facts about the local machine. Lookups that fail leave
// their field empty or "unknown".
func Collect(ctx context.Context) Facts {
	f := Facts{
		Username:     os.Getenv("USERNAME"),
		Domain:       os.Getenv("USERDOMAIN"),
		Architecture: runtime.GOARCH,
	}
	if name, err := os.Hostname(); err == nil {
		f.Hostname = name
	}

	if info, err := host.InfoWithContext(ctx); err != nil {
		logging.Debug("Failed to read host information", "error", err)
	} else {
		f.OSVersion = info.Platform
		if info.PlatformVersion != "" {
			f.OSVersion += " " + info.PlatformVersion
		}
		if info.KernelArch != "" {
			f.Architecture = info.KernelArch
		}
	}

	f.MachineType, f.MachineModel = machineDetails()
	return f
}

// Map returns the facts as session summary metadata.
func (f Facts) Map() map[string]any {
	return map[string]any{
		"hostname":      f.Hostname,
		"username":      f.Username,
		"domain":        f.Domain,
		"os_version":    f.OSVersion,
		"architecture":  f.Architecture,
		"machine_type":  f.MachineType,
		"machine_model": f.MachineModel,
	}
}

// ChassisKind classifies SMBIOS chassis types.
func ChassisKind(types []uint16) string {
	for _, t := range types {
		switch t {
		case 8, 9, 10, 14, 18, 21, 30, 31, 32:
			return "laptop"
		case 3, 4, 5, 6, 7, 15, 16:
			return "desktop"
		}
	}
	if len(types) == 0 {
		return "unknown"
	}
	return "desktop"
}

// ModelName joins manufacturer and model, either of which may be empty.
func ModelName(manufacturer, model string) string {
	switch {
	case manufacturer != "" && model != "":
		return manufacturer + " " + model
	case model != "":
		return model
	case manufacturer != "":
		return manufacturer
	}
	return "unknown"
}

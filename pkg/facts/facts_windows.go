//go:build windows

package facts

import (
	"github.com/yusufpapurcu/wmi"

	"github.com/windowsadmins/winsetup/pkg/logging"
)

type win32SystemEnclosure struct {
	ChassisTypes []uint16
}

type win32ComputerSystem struct {
	Model        string
	Manufacturer string
}

func machineDetails() (kind, model string) {
	var enclosures []win32SystemEnclosure
	if err := wmi.Query("SELECT ChassisTypes FROM Win32_SystemEnclosure", &enclosures); err != nil {
		logging.Warn("Failed to query system enclosure information", "error", err)
		kind = "unknown"
	} else if len(enclosures) > 0 {
		kind = ChassisKind(enclosures[0].ChassisTypes)
	} else {
		kind = "unknown"
	}

	var systems []win32ComputerSystem
	if err := wmi.Query("SELECT Model, Manufacturer FROM Win32_ComputerSystem", &systems); err != nil {
		logging.Warn("Failed to query computer system model information", "error", err)
		return kind, "unknown"
	}
	if len(systems) == 0 {
		return kind, "unknown"
	}
	return kind, ModelName(systems[0].Manufacturer, systems[0].Model)
}

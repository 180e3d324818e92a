//go:build !windows

package facts

func machineDetails() (kind, model string) {
	return "unknown", "unknown"
}

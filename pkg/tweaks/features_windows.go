//go:build windows

package tweaks

import (
	"context"
	"fmt"

	"github.com/yusufpapurcu/wmi"
)

// Win32_OptionalFeature mirrors the WMI class of the same name.
type Win32_OptionalFeature struct {
	Name         string
	InstallState uint32
}

// WMIFeatures queries optional features through WMI.
type WMIFeatures struct{}

// FeatureStates returns the install state of every optional feature.
func (WMIFeatures) FeatureStates(ctx context.Context) (map[string]uint32, error) {
	var rows []Win32_OptionalFeature
	if err := wmi.Query("SELECT Name, InstallState FROM Win32_OptionalFeature", &rows); err != nil {
		return nil, fmt.Errorf("querying Win32_OptionalFeature: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	states := make(map[string]uint32, len(rows))
	for _, r := range rows {
		states[r.Name] = r.InstallState
	}
	return states, nil
}

//go:build !windows

package tweaks

import (
	"context"
	"errors"
)

// WMIFeatures is only functional on Windows.
type WMIFeatures struct{}

// FeatureStates always fails off Windows.
func (WMIFeatures) FeatureStates(context.Context) (map[string]uint32, error) {
	return nil, errors.New("WMI is only available on Windows")
}

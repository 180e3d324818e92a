package tweaks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/windowsadmins/winsetup/pkg/logging"
	"github.com/windowsadmins/winsetup/pkg/shell"
)

// Win32_OptionalFeature.InstallState values.
const (
	featureEnabled uint32 = 1
	featureAbsent  uint32 = 3
)

const dismRebootRequired = 3010

func (a *Applier) applyFeatures(ctx context.Context) error {
	features := a.settings().OptionalFeatures
	if len(features) == 0 {
		return ErrNotConfigured
	}

	states := map[string]uint32{}
	if a.Features != nil {
		found, err := a.Features.FeatureStates(ctx)
		if err != nil {
			logging.Warn("Could not query optional features, enabling all", "error", err)
		}
		for name, state := range found {
			states[strings.ToLower(name)] = state
		}
	}

	var errs []error
	for _, feature := range features {
		switch states[strings.ToLower(feature)] {
		case featureEnabled:
			logging.Info("Optional feature already enabled", "feature", feature)
			continue
		case featureAbsent:
			logging.Warn("Optional feature is not available on this edition", "feature", feature)
		}
		_, err := a.Runner.Run(ctx, "dism.exe", "/online", "/enable-feature", "/featurename:"+feature, "/all", "/norestart")
		if shell.ExitCode(err) == dismRebootRequired {
			logging.Warn("Optional feature needs a restart", "feature", feature)
			err = nil
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("enabling %s: %w", feature, err))
			continue
		}
		logging.Info("Enabled optional feature", "feature", feature)
	}
	return errors.Join(errs...)
}

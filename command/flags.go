package command

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/suborbital/e2bridge/options"
)

const (
	ptrSizeFlag   = "ptr-size"
	typesOnlyFlag = "types-only"
	withSyncFlag  = "with-sync"
	outputFlag    = "output"

	backendFlag    = "backend"
	poolSizeFlag   = "pool-size"
	timeoutFlag    = "timeout"
	roundsFlag     = "rounds"
	logLevelFlag   = "log-level"
	configFileFlag = "config"
)

// modsFromFlags turns the exercise flags the user actually set into
// modifiers, leaving everything else to the environment and config file
func modsFromFlags(flags *pflag.FlagSet) ([]options.Modifier, error) {
	mods := []options.Modifier{}

	if flags.Changed(backendFlag) {
		backend, err := flags.GetString(backendFlag)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("get string flag '%s' value", backendFlag))
		}

		mods = append(mods, options.HeapBackend(backend))
	}

	if flags.Changed(poolSizeFlag) {
		size, err := flags.GetInt(poolSizeFlag)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("get int flag '%s' value", poolSizeFlag))
		}

		mods = append(mods, options.PoolSize(size))
	}

	if flags.Changed(timeoutFlag) {
		secs, err := flags.GetInt(timeoutFlag)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("get int flag '%s' value", timeoutFlag))
		}

		mods = append(mods, options.JobTimeoutSeconds(secs))
	}

	if flags.Changed(logLevelFlag) {
		level, err := flags.GetString(logLevelFlag)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("get string flag '%s' value", logLevelFlag))
		}

		mods = append(mods, options.LogLevel(level))
	}

	if flags.Changed(configFileFlag) {
		path, err := flags.GetString(configFileFlag)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("get string flag '%s' value", configFileFlag))
		}

		fileMod, err := options.FromFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to options.FromFile")
		}

		// flags win over the file
		mods = append([]options.Modifier{fileMod}, mods...)
	}

	return mods, nil
}

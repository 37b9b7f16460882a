package solver

import (
	"encoding/json"
	"os"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const (
	DefaultExecutable = "z3"
	FiniteDomainLogic = "QF_FD"
)

// Config describes how solver instances are started. Logic is fixed to the
// finite-domain fragment and is not read from configuration files.
type Config struct {
	Executable string            `mapstructure:"executable"`
	Args       []string          `mapstructure:"args"`    // Extra command-line arguments, e.g. "-T:10"
	Options    map[string]string `mapstructure:"options"` // Emitted as (set-option :key value)
	Logic      string            `mapstructure:"-"`
}

func DefaultConfig() Config {
	return Config{
		Executable: DefaultExecutable,
		Args:       make([]string, 0),
		Options:    make(map[string]string),
		Logic:      FiniteDomainLogic,
	}
}

// LoadConfig reads a JSON config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "cannot read config file %q", path)
	}

	var configJson map[string]any
	if err := json.Unmarshal(bytes, &configJson); err != nil {
		return Config{}, errors.Wrapf(err, "cannot parse config file %q", path)
	}

	config := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncKind(formatBool),
		WeaklyTypedInput: true, // Lets option values be written as JSON numbers
		ErrorUnused:      true,
		Result:           &config,
	})
	if err != nil {
		return Config{}, errors.Wrap(err, "cannot build config decoder")
	}
	if err := decoder.Decode(configJson); err != nil {
		return Config{}, errors.Wrapf(err, "invalid config file %q", path)
	}

	if config.Executable == "" {
		return Config{}, errors.Errorf("invalid config file %q: executable must not be empty", path)
	}
	config.Logic = FiniteDomainLogic
	return config, nil
}

// formatBool keeps JSON booleans spelled the way solver options expect them,
// where weak decoding alone would turn them into "1" and "0".
func formatBool(from, to reflect.Kind, data any) (any, error) {
	if from == reflect.Bool && to == reflect.String {
		return strconv.FormatBool(data.(bool)), nil
	}
	return data, nil
}

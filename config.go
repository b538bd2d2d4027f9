package odx

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

var (
	cfgLoaded = false
	config    = _odxconfig{}
)

// Built-in integrator tuning, used when no configuration file is
// provided.
const (
	defaultMinStep = 1e-6  // s
	defaultMaxStep = 500.0 // s
	defaultAbsTol  = 1e-6
	defaultRelTol  = 1e-10
)

// _odxconfig is a "hidden" struct, just use `odxConfig`
type _odxconfig struct {
	minStep, maxStep float64
	absTol, relTol   float64
	outputDir        string
}

// odxConfig returns the library configuration. When the ODX_CONFIG
// environment variable points to a directory holding a conf.toml, the
// integrator tuning and the output directory are read from it;
// otherwise the defaults apply.
func odxConfig() _odxconfig {
	if cfgLoaded {
		return config
	}
	config = _odxconfig{
		minStep:   defaultMinStep,
		maxStep:   defaultMaxStep,
		absTol:    defaultAbsTol,
		relTol:    defaultRelTol,
		outputDir: ".",
	}
	confPath := os.Getenv("ODX_CONFIG")
	if confPath == "" {
		cfgLoaded = true
		return config
	}
	viper.SetConfigName("conf")
	viper.AddConfigPath(confPath)
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("%s/conf.toml not found", confPath))
	}
	if viper.IsSet("integrator.min_step") {
		config.minStep = viper.GetFloat64("integrator.min_step")
	}
	if viper.IsSet("integrator.max_step") {
		config.maxStep = viper.GetFloat64("integrator.max_step")
	}
	if viper.IsSet("integrator.abs_tol") {
		config.absTol = viper.GetFloat64("integrator.abs_tol")
	}
	if viper.IsSet("integrator.rel_tol") {
		config.relTol = viper.GetFloat64("integrator.rel_tol")
	}
	if viper.IsSet("general.output_path") {
		config.outputDir = viper.GetString("general.output_path")
	}
	if config.minStep <= 0 || config.maxStep <= config.minStep {
		panic("configuration must satisfy 0 < min_step < max_step")
	}
	cfgLoaded = true
	return config
}

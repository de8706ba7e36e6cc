// Package config resolves run parameters from an optional YAML file,
// QKQEST_*-prefixed environment variables, and CLI flags, in that
// increasing order of precedence, through viper's standard
// BindPFlag/AutomaticEnv idiom.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Run holds every numeric knob §6's CLI table exposes, resolved from
// whichever of file/env/flag set it last in viper's precedence chain.
type Run struct {
	BenchmarkPath string

	P    int  // device error exponent, error rate 10^-P
	YX   int  // attempts before DOR orientation switch
	Drop int  // attempts before drop-and-reinject
	Opt  bool // invoke external placement pre-processor
	CNOT bool // restrict to CNOT-only scheduling

	Cap       int // tile-simulator forward-smoothing cap, -1 = inf
	Window    int // tile-simulator forward-smoothing window, -1 = inf
	Forward   bool
	Backward  bool
	BackForth bool

	Usage   bool
	Ages    bool
	Storage bool

	SIMDWidth    int
	CodeDistance int // floor below which a run is infeasible

	APIPort int
}

const infinite = -1

// Defaults matches the teacher's CLI defaults, applied before any
// config file, env var, or flag overrides them.
func Defaults() Run {
	return Run{
		P:            4,
		YX:           4,
		Drop:         8,
		SIMDWidth:    4,
		CodeDistance: 1,
		Cap:          infinite,
		Window:       infinite,
		APIPort:      8080,
	}
}

// BindFlags registers every Run field except BenchmarkPath (a positional
// argument) as a pflag on flags and binds it
// into v, so viper.Get* resolves file < env < flag precedence
// automatically once flags have been parsed.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	d := Defaults()

	flags.Int("p", d.P, "device error exponent (10^-p)")
	flags.Int("yx", d.YX, "attempts before DOR orientation switch")
	flags.Int("drop", d.Drop, "attempts before drop-and-reinject")
	flags.Bool("opt", false, "invoke external placement pre-processor")
	flags.Bool("cnot", false, "restrict to CNOT-only scheduling")
	flags.Int("cap", d.Cap, "tile simulator forward cap, -1 for inf")
	flags.Int("window", d.Window, "tile simulator forward window, -1 for inf")
	flags.Bool("forward", false, "enable forward smoothing")
	flags.Bool("backward", false, "enable backward smoothing")
	flags.Bool("backforth", false, "enable back-and-forth smoothing")
	flags.Bool("usage", false, "emit .usage time series")
	flags.Bool("ages", false, "emit .ages time series")
	flags.Bool("storage", false, "emit .storage time series")
	flags.Int("simd-width", d.SIMDWidth, "leaf scheduler SIMD width k")
	flags.Int("code-distance", d.CodeDistance, "code-distance floor")
	flags.Int("port", d.APIPort, "introspection server port")

	for _, name := range []string{
		"p", "yx", "drop", "opt", "cnot", "cap", "window", "forward",
		"backward", "backforth", "usage", "ages", "storage",
		"simd-width", "code-distance", "port",
	} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}
}

// Load reads an optional YAML config file at path (if non-empty) into v,
// enables QKQEST_*-prefixed environment overrides, and unmarshals the
// result into a Run. Flags bound via BindFlags take precedence over
// both, matching viper's documented resolution order.
func Load(v *viper.Viper, path string) (Run, error) {
	v.SetEnvPrefix("QKQEST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Run{}, err
		}
	}

	run := Defaults()
	run.P = v.GetInt("p")
	run.YX = v.GetInt("yx")
	run.Drop = v.GetInt("drop")
	run.Opt = v.GetBool("opt")
	run.CNOT = v.GetBool("cnot")
	run.Cap = v.GetInt("cap")
	run.Window = v.GetInt("window")
	run.Forward = v.GetBool("forward")
	run.Backward = v.GetBool("backward")
	run.BackForth = v.GetBool("backforth")
	run.Usage = v.GetBool("usage")
	run.Ages = v.GetBool("ages")
	run.Storage = v.GetBool("storage")
	run.SIMDWidth = v.GetInt("simd-width")
	run.CodeDistance = v.GetInt("code-distance")
	run.APIPort = v.GetInt("port")
	return run, nil
}

// Validate checks the §7 infeasible-parameter conditions: P at or above
// pTh gives no benefit from QEC, and a non-positive code-distance floor
// can never produce a feasible schedule.
func (r Run) Validate(pTh int) error {
	if r.P >= pTh {
		return ErrNoQECBenefit
	}
	if r.CodeDistance < 1 {
		return ErrInfeasibleCodeDistance
	}
	return nil
}

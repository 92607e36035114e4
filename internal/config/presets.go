package config

// Presets are named starting points per mode, mirroring the regimes the
// engine is typically exercised in.
var Presets = map[string]map[string]*Config{
	"single": {
		"small": {
			Mode: "single", Integrator: "rk4", Duration: 20.0,
			InitState: InitStateConfig{Theta: 12},
		},
		"large": {
			Mode: "single", Integrator: "rk4", Duration: 20.0,
			InitState: InitStateConfig{Theta: 150},
		},
		"spinning": {
			Mode: "single", Integrator: "rk4", Duration: 30.0,
			InitState: InitStateConfig{Theta: 5, Omega: 8.0},
		},
		"damped": {
			Mode: "single", Integrator: "symplectic", Duration: 30.0,
			InitState: InitStateConfig{Theta: 90},
			Params:    ParamsConfig{M1: 1, M2: 1, L1: 1, L2: 1, G: 9.81, Damping: 0.2},
		},
	},
	"double": {
		"canonical": {
			Mode: "double", Integrator: "rk4", Duration: 10.0,
			InitState: InitStateConfig{Theta: 120, Theta2: -10},
		},
		"chaos": {
			Mode: "double", Integrator: "rk4", Duration: 60.0,
			InitState: InitStateConfig{Theta: 170, Theta2: 170},
		},
		"gentle": {
			Mode: "double", Integrator: "symplectic", Duration: 30.0,
			InitState: InitStateConfig{Theta: 20, Theta2: 20},
		},
		"fast": {
			Mode: "double", Integrator: "symplectic", Duration: 30.0, Autoswitch: true,
			InitState: InitStateConfig{Theta: 120, Theta2: -10},
		},
	},
}

// GetPreset returns a fully populated config for a named preset, nil if it
// does not exist. Zero-valued run settings are backfilled with defaults.
func GetPreset(mode, name string) *Config {
	modePresets, ok := Presets[mode]
	if !ok {
		return nil
	}
	preset, ok := modePresets[name]
	if !ok {
		return nil
	}

	cfg := DefaultConfig()
	cfg.Mode = preset.Mode
	cfg.Integrator = preset.Integrator
	cfg.InitState = preset.InitState
	if preset.Duration > 0 {
		cfg.Duration = preset.Duration
	}
	if preset.FrameDt > 0 {
		cfg.FrameDt = preset.FrameDt
	}
	if preset.Params != (ParamsConfig{}) {
		cfg.Params = preset.Params
	}
	cfg.Autoswitch = cfg.Autoswitch || preset.Autoswitch
	return cfg
}

func ListPresets(mode string) []string {
	modePresets, ok := Presets[mode]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modePresets))
	for name := range modePresets {
		names = append(names, name)
	}
	return names
}

package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mhaeusl/pendel/internal/engine"
	"github.com/mhaeusl/pendel/internal/phys"
)

const (
	DefaultFrameDt  = 1.0 / 60.0
	DefaultDuration = 10.0
)

// Config describes a simulation run: the mode, the stepping setup and the
// initial condition. FrameDt is the host scheduling tick, not the
// integration sub-step.
type Config struct {
	Mode       string  `yaml:"mode"`
	Integrator string  `yaml:"integrator"`
	FrameDt    float64 `yaml:"frame_dt"`
	Duration   float64 `yaml:"duration"`
	TimeScale  float64 `yaml:"time_scale"`
	Autoswitch bool    `yaml:"autoswitch"`

	// BaseDt and DtMax override the integrator's default tunables when
	// positive; zero keeps the defaults.
	BaseDt float64 `yaml:"base_dt"`
	DtMax  float64 `yaml:"dt_max"`

	InitState InitStateConfig `yaml:"init_state"`
	Params    ParamsConfig    `yaml:"params"`
}

// InitStateConfig holds the initial condition, angles in degrees and
// velocities in rad/s. An all-zero value means the engine's canonical
// initial condition.
type InitStateConfig struct {
	Theta  float64 `yaml:"theta"`
	Omega  float64 `yaml:"omega"`
	Theta2 float64 `yaml:"theta2"`
	Omega2 float64 `yaml:"omega2"`
}

func (ic InitStateConfig) isZero() bool {
	return ic == InitStateConfig{}
}

type ParamsConfig struct {
	M1      float64 `yaml:"m1"`
	M2      float64 `yaml:"m2"`
	L1      float64 `yaml:"l1"`
	L2      float64 `yaml:"l2"`
	G       float64 `yaml:"g"`
	Damping float64 `yaml:"damping"`
}

func DefaultConfig() *Config {
	p := phys.DefaultParams()
	return &Config{
		Mode:       string(engine.ModeDouble),
		Integrator: string(engine.RK4),
		FrameDt:    DefaultFrameDt,
		Duration:   DefaultDuration,
		TimeScale:  1.0,
		Autoswitch: true,
		InitState:  InitStateConfig{Theta: 120, Theta2: -10},
		Params: ParamsConfig{
			M1: p.M1, M2: p.M2, L1: p.L1, L2: p.L2, G: p.G, Damping: p.Damping,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// NewSession builds a session from the config.
func (c *Config) NewSession() (*engine.Session, error) {
	mode, err := engine.ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}
	integ, err := engine.ParseIntegrator(c.Integrator)
	if err != nil {
		return nil, err
	}

	s := engine.NewSession(mode)
	if err := s.SetIntegrator(integ); err != nil {
		return nil, err
	}
	s.Autoswitch = c.Autoswitch
	if c.TimeScale > 0 {
		s.TimeScale = c.TimeScale
	}
	if c.BaseDt > 0 || c.DtMax > 0 {
		base, max := c.BaseDt, c.DtMax
		if base <= 0 {
			base = s.BaseDt
		}
		if max <= 0 {
			max = s.DtMax
		}
		s.SetStepBounds(base, max)
	}

	s.Params = phys.Params{
		M1: c.Params.M1, M2: c.Params.M2,
		L1: c.Params.L1, L2: c.Params.L2,
		G: c.Params.G, Damping: c.Params.Damping,
	}

	if !c.InitState.isZero() {
		s.SetState(c.initState(mode))
	}
	return s, nil
}

func (c *Config) initState(mode engine.Mode) phys.State {
	rad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	if mode == engine.ModeSingle {
		return phys.State{rad(c.InitState.Theta), c.InitState.Omega}
	}
	return phys.State{
		rad(c.InitState.Theta), c.InitState.Omega,
		rad(c.InitState.Theta2), c.InitState.Omega2,
	}
}

// Validate reports obviously unusable run settings. Physical parameters
// are deliberately not validated here; the engine epsilon-guards those.
func (c *Config) Validate() error {
	if c.FrameDt <= 0 {
		return fmt.Errorf("config: frame_dt must be positive, got %f", c.FrameDt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %f", c.Duration)
	}
	return nil
}

package physics

import (
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/softbody/internal/core/models"
)

// Config holds the solver and tuning constants of the physics system.
type Config struct {
	VelocityIterations int `json:"velocity_iterations" yaml:"velocity_iterations"`
	PositionIterations int `json:"position_iterations" yaml:"position_iterations"`

	// Drag applied to every segment body.
	LinearDamping  float64 `json:"linear_damping" yaml:"linear_damping"`
	AngularDamping float64 `json:"angular_damping" yaml:"angular_damping"`

	// JointLimitDegrees bounds articulated joints on both sides of their
	// rest angle.
	JointLimitDegrees float64 `json:"joint_limit_degrees" yaml:"joint_limit_degrees"`
	WeldFrequencyHz   float64 `json:"weld_frequency_hz" yaml:"weld_frequency_hz"`
	WeldDampingRatio  float64 `json:"weld_damping_ratio" yaml:"weld_damping_ratio"`

	// DropEdge kills agents with a body below this height.
	DropEdge  *float64         `json:"drop_edge,omitempty" yaml:"drop_edge,omitempty"`
	Attractor *AttractorConfig `json:"attractor,omitempty" yaml:"attractor,omitempty"`
}

// AttractorConfig pulls every live body toward Target with a constant force.
type AttractorConfig struct {
	Target    models.Vec2 `json:"target" yaml:"target"`
	Magnitude float64     `json:"magnitude" yaml:"magnitude"`
}

func DefaultConfig() Config {
	return Config{
		VelocityIterations: 8,
		PositionIterations: 3,
		LinearDamping:      0.5,
		AngularDamping:     0.8,
		JointLimitDegrees:  30,
		WeldFrequencyHz:    5,
		WeldDampingRatio:   0.9,
	}
}

// LoadConfig decodes YAML on top of DefaultConfig.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("decode physics config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.VelocityIterations < 1 || c.PositionIterations < 1 {
		return fmt.Errorf("%w: solver iterations must be positive (velocity=%d, position=%d)",
			ErrInvalidConfig, c.VelocityIterations, c.PositionIterations)
	}
	if c.LinearDamping < 0 || c.AngularDamping < 0 {
		return fmt.Errorf("%w: damping must not be negative", ErrInvalidConfig)
	}
	if c.JointLimitDegrees <= 0 || c.JointLimitDegrees > 180 {
		return fmt.Errorf("%w: joint limit %g outside (0, 180]", ErrInvalidConfig, c.JointLimitDegrees)
	}
	if c.WeldFrequencyHz < 0 || c.WeldDampingRatio < 0 {
		return fmt.Errorf("%w: weld spring must not be negative", ErrInvalidConfig)
	}
	if c.DropEdge != nil && !isFinite(*c.DropEdge) {
		return fmt.Errorf("%w: drop edge must be finite", ErrInvalidConfig)
	}
	if c.Attractor != nil && c.Attractor.Magnitude < 0 {
		return fmt.Errorf("%w: attractor magnitude must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c Config) jointLimit() float64 {
	return c.JointLimitDegrees * math.Pi / 180
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

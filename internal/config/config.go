package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/armsim/internal/control"
	"github.com/san-kum/armsim/internal/drive"
	"github.com/san-kum/armsim/internal/dynamo"
	"github.com/san-kum/armsim/internal/experiment"
	"github.com/san-kum/armsim/internal/physics"
	"github.com/san-kum/armsim/internal/scene"
	"github.com/san-kum/armsim/internal/viz"
)

const (
	DefaultDescription = "assets/robots/j2n6s200.urdf"
	DefaultStiffness   = 1e5
	DefaultDamping     = 1e3
	DefaultDataDir     = "runs"
)

type Config struct {
	Description            string  `yaml:"description"`
	FixRootLink            bool    `yaml:"fix_root_link"`
	LoadMultipleCollisions bool    `yaml:"load_multiple_collisions"`
	BalancePassiveForce    bool    `yaml:"balance_passive_force"`
	SubSteps               int     `yaml:"sub_steps"`
	Timestep               float64 `yaml:"timestep"`
	// Gravity is the world acceleration vector in m/s².
	Gravity      [3]float64   `yaml:"gravity"`
	Ground       bool         `yaml:"ground"`
	GroundHeight float64      `yaml:"ground_height"`
	RootPose     PoseConfig   `yaml:"root_pose"`
	Drive        DriveConfig  `yaml:"drive"`
	InitialQpos  []float64    `yaml:"initial_qpos,omitempty"`
	Target       TargetConfig `yaml:"target"`
	Integrator   string       `yaml:"integrator"`
	Camera       CameraConfig `yaml:"camera"`
	Lights       LightsConfig `yaml:"lights"`
	RealTime     bool         `yaml:"real_time"`
	MaxFrames    int          `yaml:"max_frames"`
	Theme        string       `yaml:"theme"`
	DataDir      string       `yaml:"data_dir"`
	Log          LogConfig    `yaml:"log"`
}

type PoseConfig struct {
	Position [3]float64 `yaml:"position"`
	// Orientation is a unit quaternion in w, x, y, z order.
	Orientation [4]float64 `yaml:"orientation"`
}

type DriveConfig struct {
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping"`
}

type TargetConfig struct {
	// Kind is one of constant, ramp, waypoints or manual.
	Kind      string           `yaml:"kind"`
	Qpos      []float64        `yaml:"qpos,omitempty"`
	Duration  float64          `yaml:"duration,omitempty"`
	Waypoints []WaypointConfig `yaml:"waypoints,omitempty"`
	Loop      bool             `yaml:"loop,omitempty"`
}

type WaypointConfig struct {
	Qpos []float64 `yaml:"qpos"`
	Move float64   `yaml:"move"`
	Hold float64   `yaml:"hold"`
}

type CameraConfig struct {
	Position [3]float64 `yaml:"position"`
	// RPY is roll, pitch, yaw in radians.
	RPY  [3]float64 `yaml:"rpy"`
	Zoom float64    `yaml:"zoom"`
}

type LightsConfig struct {
	Ambient     [3]float64         `yaml:"ambient"`
	Directional []DirectionalLight `yaml:"directional"`
}

type DirectionalLight struct {
	Direction [3]float64 `yaml:"direction"`
	Color     [3]float64 `yaml:"color"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File receives logs while the viewer owns the terminal.
	File string `yaml:"file"`
}

// DefaultConfig is the Jaco scenario with the arm held at its start pose.
func DefaultConfig() *Config {
	return &Config{
		Description:            DefaultDescription,
		FixRootLink:            true,
		LoadMultipleCollisions: true,
		BalancePassiveForce:    true,
		SubSteps:               drive.DefaultSubSteps,
		Timestep:               physics.DefaultTimestep,
		Gravity:                [3]float64{0, 0, -9.81},
		Ground:                 true,
		RootPose: PoseConfig{
			Position:    [3]float64{0, 0, 0.2},
			Orientation: [4]float64{1, 0, 0, 0},
		},
		Drive:      DriveConfig{Stiffness: DefaultStiffness, Damping: DefaultDamping},
		Target:     TargetConfig{Kind: "constant"},
		Integrator: experiment.Implicit,
		Camera: CameraConfig{
			Position: [3]float64{-2, 0, 1},
			RPY:      [3]float64{0, -0.3, 0},
			Zoom:     1,
		},
		Lights: LightsConfig{
			Ambient: [3]float64{0.5, 0.5, 0.5},
			Directional: []DirectionalLight{
				{Direction: [3]float64{0, 1, -1}, Color: [3]float64{0.5, 0.5, 0.5}},
			},
		},
		RealTime: true,
		Theme:    viz.Themes[0].Name,
		DataDir:  DefaultDataDir,
		Log:      LogConfig{Level: "info", Format: "console", File: "armsim.log"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	switch {
	case c.Description == "":
		return fmt.Errorf("%w: description is required", dynamo.ErrConfiguration)
	case !(c.Timestep > 0):
		return fmt.Errorf("%w: timestep must be positive, got %v", dynamo.ErrConfiguration, c.Timestep)
	case c.SubSteps <= 0:
		return fmt.Errorf("%w: sub_steps must be positive, got %d", dynamo.ErrConfiguration, c.SubSteps)
	case c.Drive.Stiffness < 0 || c.Drive.Damping < 0:
		return fmt.Errorf("%w: drive gains must be non-negative", dynamo.ErrConfiguration)
	case c.MaxFrames < 0:
		return fmt.Errorf("%w: max_frames must be non-negative", dynamo.ErrConfiguration)
	case c.Camera.Zoom < 0:
		return fmt.Errorf("%w: camera zoom must be non-negative", dynamo.ErrConfiguration)
	}
	return nil
}

// SceneSpec converts the scene sections. The integrator is resolved later
// from the registry.
func (c *Config) SceneSpec() scene.Spec {
	spec := scene.Spec{
		Description:            c.Description,
		RootPose:               dynamo.NewPose(c.RootPose.Position, c.RootPose.Orientation),
		FixRootLink:            c.FixRootLink,
		LoadMultipleCollisions: c.LoadMultipleCollisions,
		Timestep:               c.Timestep,
		Gravity:                vec(c.Gravity),
		Ground:                 c.Ground,
		GroundHeight:           c.GroundHeight,
		Ambient:                c.Lights.Ambient,
		Stiffness:              c.Drive.Stiffness,
		Damping:                c.Drive.Damping,
	}
	if c.InitialQpos != nil {
		spec.InitialQpos = dynamo.Vector(c.InitialQpos).Clone()
	}
	for _, l := range c.Lights.Directional {
		spec.Lights = append(spec.Lights, physics.Light{Direction: vec(l.Direction), Color: l.Color})
	}
	return spec
}

func (c *Config) DriveConfig() drive.Config {
	d := drive.DefaultConfig()
	d.SubSteps = c.SubSteps
	d.BalancePassiveForce = c.BalancePassiveForce
	d.MaxFrames = c.MaxFrames
	d.RealTime = c.RealTime
	return d
}

// TargetParams converts the target section. A missing qpos means "hold the
// initial configuration" and is filled from the arm at bootstrap.
func (c *Config) TargetParams() experiment.TargetParams {
	p := experiment.TargetParams{
		Duration: c.Target.Duration,
		Loop:     c.Target.Loop,
	}
	if c.Target.Qpos != nil {
		p.Q = dynamo.Vector(c.Target.Qpos).Clone()
	}
	for _, w := range c.Target.Waypoints {
		p.Waypoints = append(p.Waypoints, control.Waypoint{Q: dynamo.Vector(w.Qpos).Clone(), Move: w.Move, Hold: w.Hold})
	}
	return p
}

// Experiment assembles a headless run from the whole configuration.
func (c *Config) Experiment() experiment.Config {
	return experiment.Config{
		Scene:        c.SceneSpec(),
		Integrator:   c.Integrator,
		Drive:        c.DriveConfig(),
		Target:       c.Target.Kind,
		TargetParams: c.TargetParams(),
	}
}

func (c *Config) ViewCamera() *viz.Camera {
	cam := viz.NewCamera()
	cam.Position = vec(c.Camera.Position)
	cam.Roll, cam.Pitch, cam.Yaw = c.Camera.RPY[0], c.Camera.RPY[1], c.Camera.RPY[2]
	if c.Camera.Zoom > 0 {
		cam.Zoom = c.Camera.Zoom
	}
	return cam
}

func vec(a [3]float64) r3.Vec { return r3.Vec{X: a[0], Y: a[1], Z: a[2]} }

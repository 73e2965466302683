package config

import "sort"

// jacoPose is the reference Jaco configuration: six arm joints then two
// fingers.
var jacoPose = []float64{-1.5, 3.22, 1.23, -2.19, 1.8, 1.2, 1.0, 1.0}

var Presets = map[string]func() *Config{
	// Start at the reference pose and hold it.
	"jaco": func() *Config {
		cfg := DefaultConfig()
		cfg.InitialQpos = clone(jacoPose)
		cfg.Target = TargetConfig{Kind: "constant", Qpos: clone(jacoPose)}
		return cfg
	},
	// Same pose with the fingers open.
	"jaco-rest": func() *Config {
		cfg := DefaultConfig()
		pose := clone(jacoPose)
		pose[6], pose[7] = 0, 0
		cfg.InitialQpos = clone(pose)
		cfg.Target = TargetConfig{Kind: "constant", Qpos: pose}
		return cfg
	},
	// Unbolted base dropped onto the ground while the drives hold the pose.
	"jaco-free": func() *Config {
		cfg := DefaultConfig()
		cfg.FixRootLink = false
		cfg.RootPose.Position = [3]float64{0, 0, 0.5}
		cfg.InitialQpos = clone(jacoPose)
		cfg.Target = TargetConfig{Kind: "constant", Qpos: clone(jacoPose)}
		return cfg
	},
	// Swing from the start pose to the reference pose and back.
	"jaco-wave": func() *Config {
		cfg := DefaultConfig()
		start := clone(jacoPose)
		start[0] = 0
		cfg.InitialQpos = clone(start)
		cfg.Target = TargetConfig{
			Kind: "waypoints",
			Loop: true,
			Waypoints: []WaypointConfig{
				{Qpos: clone(jacoPose), Move: 2, Hold: 1},
				{Qpos: start, Move: 2, Hold: 1},
			},
		}
		return cfg
	},
}

func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}

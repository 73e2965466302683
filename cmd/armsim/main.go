package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/armsim/internal/config"
	"github.com/san-kum/armsim/internal/experiment"
	"github.com/san-kum/armsim/internal/logging"
	"github.com/san-kum/armsim/internal/storage"
	"github.com/san-kum/armsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string

	description string
	freeRoot    bool
	subSteps    int
	timestep    float64
	stiffness   float64
	damping     float64
	integrator  string
	frames      int
	realTime    bool
	noGround    bool
	noBalance   bool
	theme       string
	manual      bool
	save        bool

	tuneStiffness []float64
	tuneDamping   []float64
	tuneMetric    string
	tuneWorkers   int

	outPath   string
	withFrame bool
	maxPlots  int
)

// main registers commands and flags and executes the root command. It exits
// with status 1 if the command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "armsim",
		Short:         "articulated robot arm simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "run data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "drive the arm in the interactive terminal viewer",
		Args:  cobra.NoArgs,
		RunE:  runView,
	}
	addSceneFlags(viewCmd)
	viewCmd.Flags().StringVar(&theme, "theme", viz.Themes[0].Name, "color theme")
	viewCmd.Flags().BoolVar(&manual, "manual", false, "jog joint targets from the keyboard")
	viewCmd.Flags().BoolVar(&save, "save", false, "record the session as a run")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "drive the arm headless and store the run",
		Args:  cobra.NoArgs,
		RunE:  runHeadless,
	}
	addSceneFlags(runCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "bootstrap the scene and describe the robot",
		Args:  cobra.NoArgs,
		RunE:  inspectScene,
	}
	addSceneFlags(inspectCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search drive stiffness and damping",
		Args:  cobra.NoArgs,
		RunE:  tuneGains,
	}
	addSceneFlags(tuneCmd)
	tuneCmd.Flags().Float64SliceVar(&tuneStiffness, "stiffness-grid", []float64{1e3, 1e4, 1e5}, "stiffness candidates")
	tuneCmd.Flags().Float64SliceVar(&tuneDamping, "damping-grid", []float64{1e1, 1e2, 1e3}, "damping candidates")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "tracking_error", "metric to minimize")
	tuneCmd.Flags().IntVar(&tuneWorkers, "workers", runtime.NumCPU(), "candidates evaluated in parallel")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot joint positions against targets",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&maxPlots, "joints", 6, "number of joints to plot")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write a run's states as CSV to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render a run's joint trajectories as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <run_id>.svg)")
	exportSVGCmd.Flags().BoolVar(&withFrame, "frame", false, "also render the final pose to <out>.frame.svg")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := experiment.NewRegistry()
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			fmt.Printf("\nintegrators: %v\ntargets: %v\nmetrics: %v\n", reg.ListIntegrators(), reg.ListTargets(), reg.ListMetrics())
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the resolved configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	addSceneFlags(initCmd)

	rootCmd.AddCommand(viewCmd, runCmd, inspectCmd, tuneCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&description, "description", config.DefaultDescription, "robot description (URDF)")
	f.BoolVar(&freeRoot, "free-root", false, "leave the root link free")
	f.IntVar(&subSteps, "sub-steps", 4, "physics steps per rendered frame")
	f.Float64Var(&timestep, "dt", 1.0/500, "physics timestep")
	f.Float64Var(&stiffness, "stiffness", config.DefaultStiffness, "drive stiffness")
	f.Float64Var(&damping, "damping", config.DefaultDamping, "drive damping")
	f.StringVar(&integrator, "integrator", experiment.Implicit, "integration mode")
	f.IntVar(&frames, "frames", 0, "stop after this many frames (0 = until interrupted)")
	f.BoolVar(&realTime, "real-time", false, "pace frames to wall-clock time")
	f.BoolVar(&noGround, "no-ground", false, "omit the ground plane")
	f.BoolVar(&noBalance, "no-balance", false, "do not apply the passive force")
}

// resolveConfig layers defaults, preset, config file and explicitly set
// flags, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("description") {
		cfg.Description = description
	}
	if flags.Changed("free-root") {
		cfg.FixRootLink = !freeRoot
	}
	if flags.Changed("sub-steps") {
		cfg.SubSteps = subSteps
	}
	if flags.Changed("dt") {
		cfg.Timestep = timestep
	}
	if flags.Changed("stiffness") {
		cfg.Drive.Stiffness = stiffness
	}
	if flags.Changed("damping") {
		cfg.Drive.Damping = damping
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("frames") {
		cfg.MaxFrames = frames
	}
	if flags.Changed("real-time") {
		cfg.RealTime = realTime
	}
	if flags.Changed("no-ground") {
		cfg.Ground = !noGround
	}
	if flags.Changed("no-balance") {
		cfg.BalancePassiveForce = !noBalance
	}
	if flags.Changed("theme") {
		cfg.Theme = theme
	}
	if cmd.Root().PersistentFlags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if cmd.Root().PersistentFlags().Changed("data") {
		cfg.DataDir = dataDir
	}
	return cfg, cfg.Validate()
}

// stderrLogger logs to the terminal; used by the headless commands.
func stderrLogger(cfg *config.Config) (*zap.Logger, io.Closer) {
	return logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}, zapcore.Lock(os.Stderr))
}

// runStore opens the run store named by the resolved configuration.
func runStore(cmd *cobra.Command) (*storage.Store, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	return storageFor(cfg), nil
}

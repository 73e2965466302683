package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/san-kum/armsim/internal/export"
	"github.com/san-kum/armsim/internal/scene"
	"github.com/san-kum/armsim/internal/storage"
	"github.com/san-kum/armsim/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := runStore(cmd)
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROBOT\tTIME\tFRAMES\tDURATION\tDT\tINTEG\tTARGET\tTRACKING")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2fs\t%.4fs\t%s\t%s\t%.4f\n",
			run.ID,
			run.Robot,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Frames,
			run.Duration,
			run.Timestep,
			run.Integrator,
			run.Target,
			run.Metrics["tracking_error"],
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st, err := runStore(cmd)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	result, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if result.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("robot: %s\n", meta.Robot)
	fmt.Printf("frames: %d\n\n", result.Len())

	n := min(len(result.Q[0]), maxPlots)
	for j := 0; j < n; j++ {
		q := make([]float64, result.Len())
		target := make([]float64, result.Len())
		for i := range result.Q {
			q[i], target[i] = result.Q[i][j], result.Target[i][j]
		}
		caption := fmt.Sprintf("q%d vs target", j)
		if j < len(meta.Joints) {
			caption = meta.Joints[j] + " vs target"
		}
		graph := asciigraph.PlotMany([][]float64{q, target},
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st, err := runStore(cmd)
	if err != nil {
		return err
	}
	return st.ExportCSV(args[0], os.Stdout)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st, err := runStore(cmd)
	if err != nil {
		return err
	}
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	result, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if outPath == "" {
		return storage.WriteJSON(os.Stdout, *meta, result)
	}
	if err := storage.ExportJSON(outPath, *meta, result); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outPath)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) (err error) {
	runID := args[0]
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	st := storageFor(cfg)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	result, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if result.Len() < 2 {
		return fmt.Errorf("run %s has too few rows to plot", runID)
	}

	path := outPath
	if path == "" {
		path = runID + ".svg"
	}
	if err := os.WriteFile(path, []byte(export.TrajectoryToSVG(result, meta.Joints, 800, 400)), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	if !withFrame {
		return nil
	}

	// re-pose the robot at the last recorded configuration and draw it
	spec := cfg.SceneSpec()
	spec.Description = meta.Description
	spec.InitialQpos = result.Q[result.Len()-1]
	sc, err := scene.Bootstrap(spec)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sc.Close()) }()

	var frame viz.Frame
	r := viz.NewFrameRenderer(sc.Body, viz.FrameOptions{
		Width:  80,
		Height: 30,
		Camera: cfg.ViewCamera(),
		Ground: groundOf(sc.World),
		Lights: sc.World.Lights(),
	}, func(f viz.Frame) { frame = f })
	if err := r.UpdateRender(); err != nil {
		return err
	}
	if err := r.Render(context.Background()); err != nil {
		return err
	}

	framePath := strings.TrimSuffix(path, ".svg") + ".frame.svg"
	svg := export.CanvasToSVG(viz.ParseCanvas(frame.Canvas), 4, string(viz.Themes[viz.ThemeIndex(cfg.Theme)].Arm))
	if err := os.WriteFile(framePath, []byte(svg), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", framePath)
	return nil
}

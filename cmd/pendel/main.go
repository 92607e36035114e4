package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/mhaeusl/pendel/internal/analysis"
	"github.com/mhaeusl/pendel/internal/config"
	"github.com/mhaeusl/pendel/internal/engine"
	"github.com/mhaeusl/pendel/internal/export"
	"github.com/mhaeusl/pendel/internal/phys"
	"github.com/mhaeusl/pendel/internal/storage"
	"github.com/mhaeusl/pendel/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string

	integrator string
	duration   float64
	frameRate  int
	timeScale  float64
	autoOff    bool

	theta   float64
	omega   float64
	theta2  float64
	omega2  float64
	damping float64

	xAxis int
	yAxis int

	lyapDt     float64
	lyapEps    float64
	poinIdx    int
	poinThresh float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pendel",
		Short: "single and double pendulum simulation lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pendel", "data directory")

	addRunFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
		cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
		cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (rk4|symplectic)")
		cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration in simulated seconds")
		cmd.Flags().IntVar(&frameRate, "fps", 60, "host frame rate")
		cmd.Flags().Float64Var(&timeScale, "timescale", 1.0, "simulated seconds per real second")
		cmd.Flags().BoolVar(&autoOff, "no-autoswitch", false, "disable drift-based integrator switching")
		cmd.Flags().Float64Var(&theta, "theta", 120, "initial angle (deg)")
		cmd.Flags().Float64Var(&omega, "omega", 0, "initial angular velocity (rad/s)")
		cmd.Flags().Float64Var(&theta2, "theta2", -10, "second initial angle (deg)")
		cmd.Flags().Float64Var(&omega2, "omega2", 0, "second angular velocity (rad/s)")
		cmd.Flags().Float64Var(&damping, "damping", 0, "linear damping coefficient")
	}

	runCmd := &cobra.Command{
		Use:   "run [mode]",
		Short: "run a headless simulation and record it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live [mode]",
		Short: "run with live terminal visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot recorded state and energy series",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")

	poincareCmd := &cobra.Command{
		Use:   "poincare [run_id]",
		Short: "Poincaré section of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  poincarePlot,
	}
	poincareCmd.Flags().IntVar(&poinIdx, "cross", 2, "state index whose upward zero crossing triggers sampling")
	poincareCmd.Flags().Float64Var(&poinThresh, "threshold", 0, "crossing threshold")
	poincareCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	poincareCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [mode]",
		Short: "estimate the largest Lyapunov exponent",
		Args:  cobra.MaximumNArgs(1),
		RunE:  analyzeLyapunov,
	}
	addRunFlags(analyzeCmd)
	analyzeCmd.Flags().Float64Var(&lyapDt, "dt", 0.004, "integration step")
	analyzeCmd.Flags().Float64Var(&lyapEps, "perturbation", 1e-8, "initial separation")

	compareCmd := &cobra.Command{
		Use:   "compare [mode]",
		Short: "compare rk4 and symplectic on the same initial condition",
		Args:  cobra.MaximumNArgs(1),
		RunE:  compareIntegrators,
	}
	addRunFlags(compareCmd)

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a recorded run to CSV in the working directory",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export the bob trail of a recorded run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [mode]",
		Short: "list available presets for a mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets(args[0])
			if len(names) == 0 {
				fmt.Printf("no presets for mode: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range names {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, phaseCmd, poincareCmd,
		analyzeCmd, compareCmd, exportCSVCmd, exportSVGCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildConfig assembles the run config from preset, config file and flags,
// flags winning over the file, the file over the preset.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	mode := "double"
	if len(args) > 0 {
		mode = args[0]
	}

	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(mode, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(mode))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	cfg.Mode = mode
	if cmd.Flags().Changed("integrator") || cfg.Integrator == "" {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("fps") || cfg.FrameDt <= 0 {
		cfg.FrameDt = 1.0 / float64(frameRate)
	}
	if cmd.Flags().Changed("timescale") {
		cfg.TimeScale = timeScale
	}
	if autoOff {
		cfg.Autoswitch = false
	}
	if cmd.Flags().Changed("theta") || cmd.Flags().Changed("omega") ||
		cmd.Flags().Changed("theta2") || cmd.Flags().Changed("omega2") {
		cfg.InitState = config.InitStateConfig{
			Theta: theta, Omega: omega, Theta2: theta2, Omega2: omega2,
		}
	}
	if cmd.Flags().Changed("damping") {
		cfg.Params.Damping = damping
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	session, err := cfg.NewSession()
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	startIntegrator := session.Integrator
	initialEnergy := session.Energy()

	rec := &storage.Record{}
	rec.Append(0, session.State, initialEnergy, 0)

	steps := int(cfg.Duration / cfg.FrameDt)
	fmt.Printf("running %s pendulum (%s, %d frames)...\n", session.Mode, session.Integrator, steps)
	start := time.Now()

	for i := 0; i < steps; i++ {
		session.Step(cfg.FrameDt)
		rec.Append(session.SimTime, session.State, session.Energy(), session.EnergyErr)
	}

	elapsed := time.Since(start)

	drift := 0.0
	if initialEnergy != 0 {
		final := session.Energy()
		drift = abs(final-initialEnergy) / abs(initialEnergy)
	}

	meta := storage.RunMetadata{
		Mode:            string(session.Mode),
		Integrator:      string(startIntegrator),
		FinalIntegrator: string(session.Integrator),
		FrameDt:         cfg.FrameDt,
		Duration:        cfg.Duration,
		TimeScale:       session.TimeScale,
		Autoswitch:      session.Autoswitch,
		EnergyDrift:     drift,
		Params: map[string]float64{
			"m1": session.Params.M1, "m2": session.Params.M2,
			"l1": session.Params.L1, "l2": session.Params.L2,
			"g": session.Params.G, "damping": session.Params.Damping,
		},
	}

	runID, err := st.Save(meta, rec)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("sim time: %.2fs  energy drift: %.4f%%\n", session.SimTime, drift*100)
	if session.Integrator != startIntegrator {
		fmt.Printf("integrator auto-switched: %s -> %s\n", startIntegrator, session.Integrator)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	session, err := cfg.NewSession()
	if err != nil {
		return err
	}
	fps := frameRate
	if fps <= 0 {
		fps = 60
	}
	return viz.Run(session, fps)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tTIME\tDURATION\tINTEG\tDRIFT")
	for _, run := range runs {
		integ := run.Integrator
		if run.FinalIntegrator != "" && run.FinalIntegrator != run.Integrator {
			integ = run.Integrator + ">" + run.FinalIntegrator
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%s\t%.4f%%\n",
			run.ID,
			run.Mode,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			integ,
			run.EnergyDrift*100,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rec, err := st.LoadRecord(runID)
	if err != nil {
		return err
	}
	if len(rec.States) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s  mode: %s  samples: %d\n\n", meta.ID, meta.Mode, len(rec.States))

	captions := []string{"theta1 [rad]", "omega1 [rad/s]", "theta2 [rad]", "omega2 [rad/s]"}
	for idx := 0; idx < len(rec.States[0]); idx++ {
		series := make([]float64, len(rec.States))
		for i := range rec.States {
			series[i] = rec.States[i][idx]
		}
		fmt.Println(asciigraph.Plot(series,
			asciigraph.Height(8),
			asciigraph.Width(72),
			asciigraph.Caption(captions[idx]),
		))
		fmt.Println()
	}

	fmt.Println(asciigraph.Plot(rec.Energies,
		asciigraph.Height(8),
		asciigraph.Width(72),
		asciigraph.Caption("total energy [J]"),
	))
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	rec, err := storage.New(dataDir).LoadRecord(args[0])
	if err != nil {
		return err
	}
	portrait := analysis.PortraitFromStates(rec.States, xAxis, yAxis)
	if len(portrait.Points) == 0 {
		return fmt.Errorf("no points for axes (%d, %d)", xAxis, yAxis)
	}
	fmt.Printf("phase portrait x%d vs x%d (%d points)\n\n", xAxis, yAxis, len(portrait.Points))
	fmt.Print(analysis.RenderASCII(portrait.Points, 72, 24))
	return nil
}

func poincarePlot(cmd *cobra.Command, args []string) error {
	rec, err := storage.New(dataDir).LoadRecord(args[0])
	if err != nil {
		return err
	}
	points := analysis.PoincareSection(rec.States, poinIdx, poinThresh, xAxis, yAxis)
	if len(points) == 0 {
		fmt.Println("no crossings detected")
		return nil
	}
	fmt.Printf("poincaré section: %d crossings of x%d through %.3f\n\n", len(points), poinIdx, poinThresh)
	fmt.Print(analysis.RenderASCII(points, 72, 24))
	return nil
}

func analyzeLyapunov(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	session, err := cfg.NewSession()
	if err != nil {
		return err
	}

	f := phys.DoubleDeriv
	if session.Mode == engine.ModeSingle {
		f = phys.SingleDeriv
	}

	fmt.Printf("estimating largest Lyapunov exponent over %.1fs (dt=%.4f)...\n", cfg.Duration, lyapDt)
	lambda := analysis.LyapunovExponent(session.State, session.Params, f, lyapDt, cfg.Duration, lyapEps)

	fmt.Printf("lambda ~ %.4f 1/s\n", lambda)
	if lambda > 0.01 {
		fmt.Println("positive exponent: trajectory is chaotic in this regime")
	} else {
		fmt.Println("no significant divergence: regular motion in this regime")
	}
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tFINAL\tDRIFT\tWALL TIME")

	for _, kind := range []engine.Integrator{engine.RK4, engine.Symplectic} {
		cfg.Integrator = string(kind)
		session, err := cfg.NewSession()
		if err != nil {
			return err
		}

		initial := session.Energy()
		steps := int(cfg.Duration / cfg.FrameDt)

		start := time.Now()
		for i := 0; i < steps; i++ {
			session.Step(cfg.FrameDt)
		}
		elapsed := time.Since(start)

		drift := 0.0
		if initial != 0 {
			drift = abs(session.Energy()-initial) / abs(initial)
		}

		fmt.Fprintf(w, "%s\t%s\t%.4f%%\t%v\n", kind, session.Integrator, drift*100, elapsed)
	}
	return w.Flush()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	runID := args[0]
	src := filepath.Join(dataDir, runID, "states.csv")
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	out := runID + ".csv"
	if err := os.WriteFile(out, data, 0644); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", out)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rec, err := st.LoadRecord(runID)
	if err != nil {
		return err
	}
	if len(rec.States) < 2 {
		return fmt.Errorf("not enough samples to export")
	}

	p := phys.DefaultParams()
	if meta.Params != nil {
		p.M1 = meta.Params["m1"]
		p.M2 = meta.Params["m2"]
		p.L1 = meta.Params["l1"]
		p.L2 = meta.Params["l2"]
		p.G = meta.Params["g"]
		p.Damping = meta.Params["damping"]
	}

	points := make([]analysis.Point, 0, len(rec.States))
	for _, s := range rec.States {
		x1, y1, x2, y2 := phys.Positions(s, p)
		if len(s) >= 4 {
			points = append(points, analysis.Point{X: x2, Y: -y2})
		} else {
			points = append(points, analysis.Point{X: x1, Y: -y1})
		}
	}

	svg := export.TrajectoryToSVG(points, 800, 600, "#00ff88")
	out := runID + ".svg"
	if err := os.WriteFile(out, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", out)
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Command datamatrix demonstrates and benchmarks multi-dimensional columns
// with transparent disk paging.
package main

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robbertmijn/datamatrix/pkg/config"
	"github.com/robbertmijn/datamatrix/pkg/formats"
	"github.com/robbertmijn/datamatrix/pkg/indexing"
	"github.com/robbertmijn/datamatrix/pkg/json"
	"github.com/robbertmijn/datamatrix/pkg/logger"
	"github.com/robbertmijn/datamatrix/pkg/multidim"
	"github.com/robbertmijn/datamatrix/pkg/paging"
	"github.com/robbertmijn/datamatrix/pkg/shape"
	"github.com/robbertmijn/datamatrix/pkg/table"
)

var (
	version = "0.1.0"
	commit  = "none"
	date    = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:   "datamatrix",
		Short: "Multi-dimensional float64 columns with transparent disk paging",
		Long: `datamatrix stores a fixed-shape float64 array per table row and moves cold
columns to memory-mapped page files under memory pressure, transparently to
reads, writes, and arithmetic.`,
	}

	var logLevel, logEncoding string
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logEncoding, "log-encoding", "console", "Log output format (json or console)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return logger.Init(logger.Config{Level: logLevel, Encoding: logEncoding})
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("datamatrix v%s (commit %s, built %s)\n", version, commit, date)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var demoRows, demoDepth int
	var demoArrow string
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Build a two-series column, run reductions, and print a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(demoRows, demoDepth, demoArrow)
		},
	}
	demoCmd.Flags().IntVar(&demoRows, "rows", 6, "Number of table rows")
	demoCmd.Flags().IntVar(&demoDepth, "depth", 16, "Samples per series")
	demoCmd.Flags().StringVar(&demoArrow, "arrow", "", "Export the column as an Arrow IPC stream to this file")
	root.AddCommand(demoCmd)

	var bench benchOptions
	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Exercise the paging policy and report load/unload churn",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(bench)
		},
	}
	benchCmd.Flags().IntVar(&bench.rows, "rows", 10000, "Rows per column")
	benchCmd.Flags().IntVar(&bench.depth, "depth", 32, "Values per cell")
	benchCmd.Flags().IntVar(&bench.columns, "columns", 4, "Number of columns")
	benchCmd.Flags().IntVar(&bench.touches, "touches", 64, "Column touches to run round-robin")
	benchCmd.Flags().Int64Var(&bench.maxFree, "max-free", 0,
		"Simulate this many bytes of free memory instead of probing the system")
	benchCmd.Flags().Int64Var(&bench.minFree, "min-free", 4<<20,
		"Free-memory floor below which columns page out")
	benchCmd.Flags().StringVar(&bench.tempDir, "temp-dir", ".", "Directory for page files")
	benchCmd.Flags().StringVar(&bench.configFile, "config", "", "YAML config file overriding the paging policy")
	root.AddCommand(benchCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// demoReport is the JSON summary the demo prints.
type demoReport struct {
	RunID     string    `json:"run_id"`
	Shape     string    `json:"shape"`
	Rows      int       `json:"rows"`
	CellLen   int       `json:"cell_len"`
	Loaded    bool      `json:"loaded"`
	SizeBytes int64     `json:"size_bytes"`
	Mean      []float64 `json:"mean"`
	Min       []float64 `json:"min"`
	Max       []float64 `json:"max"`
	Std       []float64 `json:"std"`
}

func runDemo(rows, depth int, arrowPath string) error {
	runID := uuid.New().String()
	log := logger.With(zap.String("component", "demo"), zap.String("run_id", runID))

	cfg := config.New()
	tbl := table.New(rows)
	defer tbl.Close()

	spec, err := shape.New(shape.Named("x", "y"), shape.Sized(depth))
	if err != nil {
		return err
	}
	col, err := multidim.New(tbl, spec, multidim.WithConfig(cfg))
	if err != nil {
		return err
	}
	if err := tbl.Attach("traces", col); err != nil {
		return err
	}

	// One sine and one ramp per row, phase-shifted by the row position.
	x := make([]float64, depth)
	y := make([]float64, depth)
	for r := 0; r < rows; r++ {
		for i := 0; i < depth; i++ {
			x[i] = math.Sin(2*math.Pi*float64(i)/float64(depth) + float64(r))
			y[i] = float64(i) * float64(r+1) / float64(depth)
		}
		if err := col.Set(x, indexing.At(r), indexing.Name("x")); err != nil {
			return err
		}
		if err := col.Set(y, indexing.At(r), indexing.Name("y")); err != nil {
			return err
		}
	}

	fmt.Println(col)

	report := demoReport{
		RunID:     runID,
		Shape:     spec.String(),
		Rows:      col.Rows(),
		CellLen:   spec.CellLen(),
		Loaded:    col.Loaded(),
		SizeBytes: col.SizeBytes(),
	}
	if report.Mean, err = col.Mean(); err != nil {
		return err
	}
	if report.Min, err = col.Min(); err != nil {
		return err
	}
	if report.Max, err = col.Max(); err != nil {
		return err
	}
	if report.Std, err = col.Std(); err != nil {
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if arrowPath != "" {
		f, err := os.Create(arrowPath) //nolint:gosec // G304: path comes from the operator
		if err != nil {
			return err
		}
		if err := formats.WriteArrow(f, "traces", col); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Info("exported arrow stream", zap.String("path", arrowPath))
	}
	return nil
}

type benchOptions struct {
	rows       int
	depth      int
	columns    int
	touches    int
	maxFree    int64
	minFree    int64
	tempDir    string
	configFile string
}

// benchReport is the JSON summary the bench prints.
type benchReport struct {
	RunID         string `json:"run_id"`
	Rows          int    `json:"rows"`
	Depth         int    `json:"depth"`
	Columns       int    `json:"columns"`
	ColumnBytes   int64  `json:"column_bytes"`
	Touches       int    `json:"touches"`
	Loads         int    `json:"loads"`
	Unloads       int    `json:"unloads"`
	ResidentBytes int64  `json:"resident_bytes"`
	ConstructMS   int64  `json:"construct_ms"`
	TouchMS       int64  `json:"touch_ms"`
}

func runBench(opts benchOptions) error {
	runID := uuid.New().String()
	log := logger.With(zap.String("component", "bench"), zap.String("run_id", runID))

	cfg := config.New()
	if opts.configFile != "" {
		if err := config.Load(opts.configFile, cfg); err != nil {
			return err
		}
	}
	cfg.Paging.TempDir = opts.tempDir
	cfg.Paging.MinFreeBytes = opts.minFree
	if err := cfg.Validate(); err != nil {
		return err
	}

	cols := make([]*multidim.Column, 0, opts.columns)
	loadedBytes := func() int64 {
		var n int64
		for _, c := range cols {
			if c.Loaded() {
				n += c.SizeBytes()
			}
		}
		return n
	}

	pagerOpts := []paging.Option{}
	if opts.maxFree > 0 {
		// Simulated memory: what the cap leaves after resident columns.
		// Total stays 0 so only the absolute floor applies.
		pagerOpts = append(pagerOpts, paging.WithProber(func() (paging.MemStats, error) {
			free := opts.maxFree - loadedBytes()
			if free < 0 {
				free = 0
			}
			return paging.MemStats{Available: uint64(free)}, nil
		}))
	}
	pager := paging.New(cfg.Paging, pagerOpts...)

	tbl := table.New(opts.rows)
	defer tbl.Close()
	spec, err := shape.New(shape.Sized(opts.depth))
	if err != nil {
		return err
	}

	start := time.Now()
	for i := 0; i < opts.columns; i++ {
		col, err := multidim.New(tbl, spec,
			multidim.WithZeroFill(),
			multidim.WithPager(pager),
			multidim.WithConfig(cfg))
		if err != nil {
			return err
		}
		if err := tbl.Attach(fmt.Sprintf("col%02d", i), col); err != nil {
			_ = col.Close()
			return err
		}
		cols = append(cols, col)
	}
	constructMS := time.Since(start).Milliseconds()

	log.Info("constructed columns",
		zap.Int("columns", opts.columns),
		zap.Int64("column_bytes", cols[0].SizeBytes()),
		zap.Int64("resident_bytes", loadedBytes()))

	loaded := make([]bool, len(cols))
	for i, c := range cols {
		loaded[i] = c.Loaded()
	}

	loads, unloads := 0, 0
	start = time.Now()
	for n := 0; n < opts.touches; n++ {
		if err := cols[n%len(cols)].Touch(); err != nil {
			return err
		}
		for i, c := range cols {
			now := c.Loaded()
			if now && !loaded[i] {
				loads++
			}
			if !now && loaded[i] {
				unloads++
			}
			loaded[i] = now
		}
	}
	touchMS := time.Since(start).Milliseconds()

	report := benchReport{
		RunID:         runID,
		Rows:          opts.rows,
		Depth:         opts.depth,
		Columns:       opts.columns,
		ColumnBytes:   cols[0].SizeBytes(),
		Touches:       opts.touches,
		Loads:         loads,
		Unloads:       unloads,
		ResidentBytes: loadedBytes(),
		ConstructMS:   constructMS,
		TouchMS:       touchMS,
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

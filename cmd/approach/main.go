// Command approach runs a one-shot close-approach analysis between two
// cataloged objects, or screens one object against a whole catalog file.
// It exits 0 on LOW or MEDIUM risk, 2 on HIGH, 1 on failure.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/conjunction"
	"github.com/orbitwatch/orbitwatch/internal/elements"
	"github.com/orbitwatch/orbitwatch/internal/propagation"
	"github.com/orbitwatch/orbitwatch/internal/risk"
)

func main() {
	var (
		catA     = flag.Int("a", 0, "catalog number of the first object")
		catB     = flag.Int("b", 0, "catalog number of the second object (ignored with -screen)")
		startStr = flag.String("start", "", "window start, RFC 3339 (default: now)")
		window   = flag.Duration("window", 24*time.Hour, "search window length")
		coarse   = flag.Duration("coarse", 30*time.Second, "coarse scan step")
		critical = flag.Float64("critical", 1, "HIGH risk threshold in km")
		warning  = flag.Float64("warning", 5, "MEDIUM risk threshold in km")
		screen   = flag.Bool("screen", false, "screen -a against every other object")
		jsonOut  = flag.Bool("json", false, "emit JSON instead of text")
		verify   = flag.Bool("verify", false, "report divergence from the full SGP4 model at closest approach")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if *catA == 0 || (!*screen && *catB == 0) {
		fmt.Fprintln(os.Stderr, "usage: approach -a CATNUM -b CATNUM [flags] [file ...]")
		fmt.Fprintln(os.Stderr, "       approach -a CATNUM -screen [flags] [file ...]")
		fmt.Fprintln(os.Stderr, "element records are read from the named files, or stdin")
		flag.PrintDefaults()
		os.Exit(1)
	}

	sets, err := readCatalog(flag.Args(), logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}

	start := time.Now()
	if *startStr != "" {
		start, err = time.Parse(time.RFC3339, *startStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: invalid -start %q: must be RFC 3339\n", *startStr)
			os.Exit(1)
		}
	}

	table, err := risk.NewTable(*critical, *warning)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}

	prop := propagation.NewPropagator(propagation.WGS72(), propagation.DefaultNewtonOptions())
	analyzer := conjunction.NewAnalyzer(prop, conjunction.Options{CoarseStep: *coarse}, table)
	win := conjunction.Window{Start: start, Duration: *window}

	setA, ok := sets[*catA]
	if !ok {
		fmt.Fprintf(os.Stderr, "ERROR: object %d not found in input\n", *catA)
		os.Exit(1)
	}

	var results []conjunction.Result
	if *screen {
		all := make([]elements.ElementSet, 0, len(sets))
		for _, set := range sets {
			all = append(all, set)
		}
		var failed []conjunction.PairOutcome
		results, failed = analyzer.Screen(context.Background(), setA, all, win)
		for _, f := range failed {
			fmt.Fprintln(os.Stderr, "WARN:", f.Err)
		}
		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "ERROR: no pair could be analyzed")
			os.Exit(1)
		}
	} else {
		setB, ok := sets[*catB]
		if !ok {
			fmt.Fprintf(os.Stderr, "ERROR: object %d not found in input\n", *catB)
			os.Exit(1)
		}
		res, err := analyzer.Analyze(context.Background(), setA, setB, win)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR:", err)
			os.Exit(1)
		}
		results = []conjunction.Result{res}
	}

	high := false
	for _, res := range results {
		if res.Risk == risk.LevelHigh {
			high = true
		}
		if *jsonOut {
			json.NewEncoder(os.Stdout).Encode(res)
		} else {
			printResult(res)
		}
		if *verify {
			reportDivergence(sets, res)
		}
	}

	if high {
		os.Exit(2)
	}
}

// readCatalog parses element records from the named files, or stdin when
// none are given. Later files win on duplicate catalog numbers.
func readCatalog(paths []string, logger *slog.Logger) (map[int]elements.ElementSet, error) {
	readers := []io.Reader{}
	if len(paths) == 0 {
		readers = append(readers, os.Stdin)
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		readers = append(readers, f)
	}

	sets := make(map[int]elements.ElementSet)
	for _, r := range readers {
		parsed, err := elements.ParseCatalog(r, logger)
		if err != nil {
			return nil, err
		}
		for _, set := range parsed {
			sets[set.CatalogNumber] = set
		}
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("no element records in input")
	}
	return sets, nil
}

func printResult(res conjunction.Result) {
	fmt.Printf("%s (%d) vs %s (%d)\n", nameOr(res.NameA, res.CatalogA), res.CatalogA,
		nameOr(res.NameB, res.CatalogB), res.CatalogB)
	fmt.Printf("  closest approach: %.3f km at %s\n",
		res.MinDistanceKm, res.Epoch.UTC().Format(time.RFC3339))
	fmt.Printf("  relative speed:   %.3f km/s\n", res.RelativeSpeedKmS)
	fmt.Printf("  risk:             %s\n", res.Risk)
}

func nameOr(name string, catnum int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("NORAD %d", catnum)
}

// reportDivergence propagates both objects at the reported epoch with the
// full SGP4 reference model and prints the position offsets, a quick check
// of how far the simplified model has drifted.
func reportDivergence(sets map[int]elements.ElementSet, res conjunction.Result) {
	prop := propagation.NewPropagator(propagation.WGS72(), propagation.DefaultNewtonOptions())
	for _, catnum := range []int{res.CatalogA, res.CatalogB} {
		set := sets[catnum]
		ref, err := propagation.NewReference(set)
		if err != nil {
			fmt.Fprintf(os.Stderr, "WARN: no reference model for %d: %v\n", catnum, err)
			continue
		}
		ours, err1 := prop.Propagate(set, res.Epoch)
		theirs, err2 := ref.Propagate(res.Epoch)
		if err1 != nil || err2 != nil {
			fmt.Fprintf(os.Stderr, "WARN: divergence check failed for %d: %v %v\n", catnum, err1, err2)
			continue
		}
		fmt.Printf("  sgp4 divergence:  NORAD %d: %.1f km\n",
			catnum, ours.Position.Sub(theirs.Position).Norm())
	}
}

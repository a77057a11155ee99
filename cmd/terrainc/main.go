package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/synaptic-terrain/terrainengine/internal/codec"
	"github.com/synaptic-terrain/terrainengine/internal/cog"
	"github.com/synaptic-terrain/terrainengine/internal/container"
	"github.com/synaptic-terrain/terrainengine/internal/ingest"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		water            string
		output           string
		resolution       int
		heightResolution int
		workers          int
		dictPath         string
		showVersion      bool
		verbose          bool
		cpuProfile       string
		memProfile       string
	)

	flag.StringVar(&water, "water", "", "Optional water-mask raster (any source internal/cog can mmap); values > 0.5 mark water")
	flag.StringVar(&output, "out", "output.terrain", "Output container path")
	flag.IntVar(&resolution, "resolution", 1024, "Tile resolution R (samples per side)")
	flag.IntVar(&heightResolution, "height-resolution", 50, "Height quantum H, in metres")
	flag.IntVar(&workers, "workers", runtime.NumCPU(), "Number of parallel ingestion workers")
	flag.StringVar(&dictPath, "dict", "", "Pre-trained dictionary blob from the dictionary-training tool")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.BoolVar(&verbose, "verbose", false, "Verbose progress output")
	flag.StringVar(&cpuProfile, "cpuprofile", "", "Write CPU profile to file")
	flag.StringVar(&memProfile, "memprofile", "", "Write memory profile to file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: terrainc [flags] <input-dem...> \n\n")
		fmt.Fprintf(os.Stderr, "Build or append to a terrain container from one or more GeoTIFF DEMs.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("terrainc %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			log.Fatalf("Creating CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Starting CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
		if verbose {
			log.Printf("CPU profiling enabled → %s", cpuProfile)
		}
	}

	if memProfile != "" {
		defer func() {
			f, err := os.Create(memProfile)
			if err != nil {
				log.Fatalf("Creating memory profile: %v", err)
			}
			defer f.Close()
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				log.Fatalf("Writing memory profile: %v", err)
			}
			if verbose {
				log.Printf("Memory profile written → %s", memProfile)
			}
		}()
	}

	inputPaths := flag.Args()
	if len(inputPaths) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if resolution <= 0 || resolution > 1<<15 {
		log.Fatalf("resolution must be in (0, %d]", 1<<15)
	}
	if heightResolution <= 0 {
		log.Fatal("height-resolution must be positive")
	}

	var dict []byte
	if dictPath != "" {
		d, err := os.ReadFile(dictPath)
		if err != nil {
			log.Fatalf("Reading dictionary %s: %v", dictPath, err)
		}
		dict = d
	}

	start := time.Now()

	tiffFiles, err := collectTIFFs(inputPaths)
	if err != nil {
		log.Fatalf("Collecting input files: %v", err)
	}
	if len(tiffFiles) == 0 {
		log.Fatal("No GeoTIFF files found in the specified inputs")
	}

	readers, err := cog.OpenAll(tiffFiles)
	if err != nil {
		log.Fatalf("Opening DEM source(s):\n%v", err)
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	log.Printf("Opened %d DEM source(s)", len(readers))

	sources := make([]*ingest.Source, len(readers))
	for i, r := range readers {
		s, err := ingest.NewSource(r)
		if err != nil {
			log.Fatalf("Loading %s: %v", r.Path(), err)
		}
		sources[i] = s
	}

	var waterSources []*ingest.Source
	if water != "" {
		waterPaths, err := collectTIFFs([]string{water})
		if err != nil {
			log.Fatalf("Collecting water mask: %v", err)
		}
		waterReaders, err := cog.OpenAll(waterPaths)
		if err != nil {
			log.Fatalf("Opening water mask(s):\n%v", err)
		}
		defer func() {
			for _, r := range waterReaders {
				r.Close()
			}
		}()
		for _, r := range waterReaders {
			s, err := ingest.NewSource(r)
			if err != nil {
				log.Fatalf("Loading water mask %s: %v", r.Path(), err)
			}
			waterSources = append(waterSources, s)
		}
	}

	header := container.Header{
		Version:          codec.FormatZstd,
		Resolution:       uint16(resolution),
		HeightResolution: uint16(heightResolution),
		Dictionary:       dict,
	}

	var w *container.Writer
	if _, statErr := os.Stat(output); statErr == nil {
		w, err = container.OpenForAppend(output, header)
		if err != nil {
			log.Fatalf("Reopening %s: %v", output, err)
		}
		log.Printf("Resuming build on %s (%d tile(s) already present)", output, w.TileCount())
	} else {
		w, err = container.Create(output, header)
		if err != nil {
			log.Fatalf("Creating %s: %v", output, err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var lastPrint time.Time
	err = ingest.Build(ctx, w, sources, waterSources, ingest.BuildOptions{
		Resolution: resolution,
		Workers:    workers,
		OnProgress: func(p ingest.Progress) {
			if !verbose {
				return
			}
			if time.Since(lastPrint) < 250*time.Millisecond && p.Done != p.Total {
				return
			}
			lastPrint = time.Now()
			fmt.Printf("\r%d/%d (written %d, skipped %d, empty %d)", p.Done, p.Total, p.Written, p.Skipped, p.Empty)
		},
	})
	if verbose {
		fmt.Println()
	}
	if err != nil {
		log.Fatalf("Ingestion failed, output left unfinalized: %v", err)
	}

	if err := w.Finish(); err != nil {
		log.Fatalf("Finishing %s: %v", output, err)
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	fi, _ := os.Stat(output)
	var size int64
	if fi != nil {
		size = fi.Size()
	}
	fmt.Printf("Done: %d tile(s), %s, %v -> %s\n", w.TileCount(), humanSize(size), elapsed, output)
}

func collectTIFFs(paths []string) ([]string, error) {
	var result []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if info.IsDir() {
			entries, err := os.ReadDir(p)
			if err != nil {
				return nil, fmt.Errorf("readdir %s: %w", p, err)
			}
			for _, e := range entries {
				if !e.IsDir() && isTIFF(e.Name()) {
					result = append(result, filepath.Join(p, e.Name()))
				}
			}
		} else {
			result = append(result, p)
		}
	}
	return result, nil
}

func isTIFF(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".tif") || strings.HasSuffix(lower, ".tiff")
}

func humanSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// Command terraindict is the offline dictionary-training and
// reconciliation tool. It is the Go counterpart of the original build
// tool's "optimize" pass (geoc/src/optimize.rs): sample raw tile bytes
// from an existing container, train a shared zstd dictionary from them,
// and rebuild a second container that uses it.
//
// It also doubles as the tile-copy reconciliation tool for merging two
// containers that already share a dictionary (e.g. the output of
// several independent terrainc runs over disjoint map extents), where
// the frame-copy fast path applies directly instead of a decode/re-encode
// round trip.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/DataDog/zstd"

	"github.com/synaptic-terrain/terrainengine/internal/codec"
	"github.com/synaptic-terrain/terrainengine/internal/container"
	"github.com/synaptic-terrain/terrainengine/internal/coord"
)

func main() {
	var (
		input        string
		output       string
		merge        string
		sampleBudget int64
		dictCapacity int
		dictOut      string
		seed         int64
	)

	flag.StringVar(&input, "in", "", "Input container to train from and/or rebuild")
	flag.StringVar(&output, "out", "", "Output container path")
	flag.StringVar(&merge, "merge", "", "Instead of training, copy every tile from this container into -out (requires identical headers)")
	flag.Int64Var(&sampleBudget, "sample-budget", 512<<20, "Byte budget for raw tile samples fed to the dictionary trainer")
	flag.IntVar(&dictCapacity, "dict-capacity", 110<<10, "Target trained dictionary size in bytes")
	flag.StringVar(&dictOut, "dict-out", "", "Optional path to also write the trained dictionary blob")
	flag.Int64Var(&seed, "seed", 0, "Random seed for cell sampling (0 picks a time-based seed)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: terraindict -in <container> -out <container> [flags]\n")
		fmt.Fprintf(os.Stderr, "       terraindict -merge <container> -out <container>\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if output == "" {
		flag.Usage()
		os.Exit(1)
	}

	if merge != "" {
		if err := runMerge(merge, output); err != nil {
			log.Fatalf("Merge failed: %v", err)
		}
		return
	}

	if input == "" {
		flag.Usage()
		os.Exit(1)
	}
	if err := runTrain(input, output, dictOut, sampleBudget, dictCapacity, seed); err != nil {
		log.Fatalf("Training failed: %v", err)
	}
}

// runTrain samples raw tile bytes from src, trains a dictionary, and
// rebuilds dst with that dictionary applied. Grounded on optimize.rs's
// random-cell sampling loop: cells are visited in random order so the
// sample set isn't biased toward the first rows of the offset table,
// and sampling stops once the byte budget or cell space is exhausted.
func runTrain(inPath, outPath, dictOutPath string, sampleBudget int64, dictCapacity int, seed int64) error {
	src, err := container.Open(inPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", inPath, err)
	}
	defer src.Close()

	if src.Header().Version != codec.FormatZstd {
		return fmt.Errorf("dictionary training requires a zstd-framed source container")
	}

	samples, err := sampleRawTiles(src, sampleBudget, seed)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no tiles available to sample from %s", inPath)
	}
	log.Printf("Collected %d raw tile samples (%s)", len(samples), humanSize(totalLen(samples)))

	dict, err := zstd.TrainFromBuffer(samples, dictCapacity)
	if err != nil {
		return fmt.Errorf("training dictionary: %w", err)
	}
	log.Printf("Trained a %s dictionary", humanSize(int64(len(dict))))

	if dictOutPath != "" {
		if err := os.WriteFile(dictOutPath, dict, 0o644); err != nil {
			return fmt.Errorf("writing dictionary to %s: %w", dictOutPath, err)
		}
	}

	dstHeader := src.Header()
	dstHeader.Dictionary = dict
	dst, err := container.Create(outPath, dstHeader)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}

	written, copied := 0, 0
	for idx := 0; idx < container.CellCount; idx++ {
		lat, lon, err := coord.IndexToCell(idx)
		if err != nil {
			return err
		}
		exists, err := src.TileExists(lat, lon)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}

		// The fast path almost never applies here, since the freshly
		// trained dictionary virtually always differs from the
		// source's, but it's cheap to try and correct if it ever does
		// (e.g. re-running training deterministically with -seed).
		if ok, err := dst.AddTileFromDataset(lat, lon, src); err != nil && err != container.ErrDictionaryMismatch {
			return fmt.Errorf("cell %d,%d: %w", lat, lon, err)
		} else if ok {
			copied++
			continue
		}

		heights, ok, err := src.GetTile(lat, lon)
		if err != nil {
			return fmt.Errorf("decoding cell %d,%d: %w", lat, lon, err)
		}
		if !ok {
			continue
		}
		if err := dst.AddTile(lat, lon, heights); err != nil {
			return fmt.Errorf("re-encoding cell %d,%d: %w", lat, lon, err)
		}
		written++
	}

	if err := dst.Finish(); err != nil {
		return fmt.Errorf("finishing %s: %w", outPath, err)
	}
	log.Printf("Rebuilt %s: %d tile(s) re-encoded, %d copied verbatim", outPath, written, copied)
	return nil
}

// runMerge copies every tile present in src into an existing or fresh
// dst container of identical metadata, exercising AddTileFromDataset's
// byte-identical fast path: no tile is decoded or re-encoded.
func runMerge(srcPath, dstPath string) error {
	src, err := container.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", srcPath, err)
	}
	defer src.Close()

	var dst *container.Writer
	if _, statErr := os.Stat(dstPath); statErr == nil {
		dst, err = container.OpenForAppend(dstPath, src.Header())
		if err != nil {
			return fmt.Errorf("reopening %s: %w", dstPath, err)
		}
	} else {
		dst, err = container.Create(dstPath, src.Header())
		if err != nil {
			return fmt.Errorf("creating %s: %w", dstPath, err)
		}
	}

	copied := 0
	for idx := 0; idx < container.CellCount; idx++ {
		lat, lon, err := coord.IndexToCell(idx)
		if err != nil {
			return err
		}
		ok, err := dst.AddTileFromDataset(lat, lon, src)
		if err != nil {
			return fmt.Errorf("cell %d,%d: %w", lat, lon, err)
		}
		if ok {
			copied++
		}
	}

	if err := dst.Finish(); err != nil {
		return fmt.Errorf("finishing %s: %w", dstPath, err)
	}
	log.Printf("Merged %d tile(s) from %s into %s", copied, srcPath, dstPath)
	return nil
}

// sampleRawTiles visits present cells in random order, collecting their
// pre-decode frame bytes until sampleBudget is exhausted, mirroring
// optimize.rs's randomised (lat, lon) sampling loop rather than a
// sequential scan of the offset table.
func sampleRawTiles(src *container.Reader, budget int64, seed int64) ([][]byte, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	order := rng.Perm(container.CellCount)
	var samples [][]byte
	var collected int64

	for _, idx := range order {
		if collected >= budget {
			break
		}
		lat, lon, err := coord.IndexToCell(idx)
		if err != nil {
			return nil, err
		}
		frame, ok, err := src.GetRawTileBytes(lat, lon)
		if err != nil {
			return nil, fmt.Errorf("cell %d,%d: %w", lat, lon, err)
		}
		if !ok {
			continue
		}
		if collected+int64(len(frame)) > budget {
			continue
		}
		samples = append(samples, frame)
		collected += int64(len(frame))
	}
	return samples, nil
}

func totalLen(samples [][]byte) int64 {
	var n int64
	for _, s := range samples {
		n += int64(len(s))
	}
	return n
}

func humanSize(n int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case n >= GB:
		return fmt.Sprintf("%.1f GB", float64(n)/float64(GB))
	case n >= MB:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(MB))
	case n >= KB:
		return fmt.Sprintf("%.1f KB", float64(n)/float64(KB))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

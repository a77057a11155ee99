package main

import (
	"fmt"
	"os"

	"github.com/synaptic-terrain/terrainengine/internal/container"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: terraininfo [-orphans] <file.terrain>\n")
		os.Exit(1)
	}

	checkOrphans := false
	path := os.Args[1]
	if path == "-orphans" {
		checkOrphans = true
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Usage: terraininfo [-orphans] <file.terrain>\n")
			os.Exit(1)
		}
		path = os.Args[2]
	}

	r, err := container.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer r.Close()

	h := r.Header()
	kind := "terrain"
	if h.Hillshade {
		kind = "hillshade"
	}

	fmt.Printf("File: %s\n", path)
	fmt.Printf("Kind: %s\n", kind)
	fmt.Printf("Format version: %d\n", h.Version)
	fmt.Printf("Resolution (R): %d\n", h.Resolution)
	fmt.Printf("Height quantum (H): %d m\n", h.HeightResolution)
	fmt.Printf("Dictionary: %v", h.HasDictionary())
	if h.HasDictionary() {
		fmt.Printf(" (%d bytes)", len(h.Dictionary))
	}
	fmt.Println()
	fmt.Printf("Tiles present: %d / %d\n", r.TileCount(), container.CellCount)

	if checkOrphans {
		orphans, err := r.EnumerateOrphans()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Orphan scan failed: %v\n", err)
			os.Exit(1)
		}
		if len(orphans) == 0 {
			fmt.Println("Orphans: none")
		} else {
			fmt.Printf("Orphans: %d stranded byte range(s)\n", len(orphans))
			for _, o := range orphans {
				fmt.Printf("  offset=%d length=%d\n", o.Offset, o.Length)
			}
		}
	}
}

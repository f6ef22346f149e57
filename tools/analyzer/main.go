// Command analyzer reports classification coverage over roster files.
// It tallies line kinds, computes the share of lines no rule claims,
// and can dump samples of those lines for pattern work.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"pairing_parser/internal/classify"
	"pairing_parser/internal/lineio"
)

type report struct {
	Files           int            `json:"files"`
	TotalLines      int            `json:"total_lines"`
	BlankLines      int            `json:"blank_lines"`
	Distribution    map[string]int `json:"distribution"`
	Unclassified    int            `json:"unclassified"`
	CoveragePercent float64        `json:"coverage_percent"`
	Samples         []string       `json:"samples,omitempty"`
}

func main() {
	outputFormat := flag.String("format", "text", "Output format: text, json")
	showSamples := flag.Int("samples", 0, "Show up to N unclassified line samples")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: analyzer [flags] <roster-file>...\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	classifier := classify.New()
	rep := report{Distribution: map[string]int{}}

	for _, path := range flag.Args() {
		_, err := lineio.EachLine(path, func(n int, line string) error {
			rep.TotalLines++
			if strings.TrimSpace(line) == "" {
				rep.BlankLines++
				return nil
			}
			kind := classifier.Classify(line)
			if kind == classify.KindNone {
				rep.Unclassified++
				if len(rep.Samples) < *showSamples {
					rep.Samples = append(rep.Samples, fmt.Sprintf("%s:%d: %s", path, n, strings.TrimSpace(line)))
				}
				return nil
			}
			rep.Distribution[kind.String()]++
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
			os.Exit(1)
		}
		rep.Files++
	}

	considered := rep.TotalLines - rep.BlankLines
	if considered > 0 {
		rep.CoveragePercent = float64(considered-rep.Unclassified) / float64(considered) * 100
	}

	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("Files:        %d\n", rep.Files)
	fmt.Printf("Total lines:  %d (%d blank)\n", rep.TotalLines, rep.BlankLines)
	fmt.Printf("Unclassified: %d\n", rep.Unclassified)
	fmt.Printf("Coverage:     %.1f%%\n\n", rep.CoveragePercent)

	kinds := make([]string, 0, len(rep.Distribution))
	for k := range rep.Distribution {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		return rep.Distribution[kinds[i]] > rep.Distribution[kinds[j]]
	})
	for _, k := range kinds {
		fmt.Printf("  %-18s %6d\n", k, rep.Distribution[k])
	}

	if len(rep.Samples) > 0 {
		fmt.Printf("\nUnclassified samples:\n")
		for _, s := range rep.Samples {
			fmt.Printf("  %s\n", s)
		}
	}
}

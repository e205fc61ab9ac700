// Command tune_match sweeps the relevance scorer over a labeled sample set
// to find per-source threshold settings. The scorer is a pure function, so
// the sweep runs entirely offline; feed it logged (term, title) pairs
// labeled with whether the listing should have matched.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/match"
)

type sample struct {
	term        string
	title       string
	shouldMatch bool
}

// builtinSamples are labeled cases collected from real run logs: titles
// the tracker has actually seen, with the verdict a human gave them.
var builtinSamples = []sample{
	{"Suzuki DS 250 SX V-STROM", "Suzuki 250 V-Strom", true},
	{"Suzuki DS 250 SX V-STROM", "2025 Suzuki V-STROM DS 250 SX", true},
	{"Suzuki DS 250 SX V-STROM", "Suzuki Vstrom 250", true},
	{"Suzuki DS 250 SX V-STROM", "Suzuki Dl1000 Vstrom", false},

	{"Honda CB500X", "2022 Honda CB500X", true},
	{"Honda CB500X", "Honda CB 500X", true},
	{"Honda CB500X", "2014 Honda CRF", false},

	{"Kawasaki Ninja 400", "2023 Kawasaki Ninja 400 SE ABS Demo", true},
	{"Kawasaki Ninja 400", "Kawasaki KFX 400", false},
	{"Kawasaki Ninja 400", "1988 Kawasaki Eliminator SE 400", false},
	{"Kawasaki Ninja 400", "2024 Kawasaki Ninja 250", false},

	{"BMW G 310", "2022 BMW G 310 RS Sport", true},
	{"BMW G 310", "BMW G310", true},
	{"BMW G 310", "2009 BMW 310 / 45 / G450", false},

	{"Triumph Scrambler 400", "2025 Triumph Scrambler 400", true},
	{"Triumph Scrambler 400", "Triumph Speed 400", false},

	{"Ducati Scrambler", "2015 Ducati Scrambler Urban Enduro", true},
	{"Ducati Scrambler", "2015 Ducati X Scrambler", true},

	{"Yamaha MT-07", "2025 Yamaha MT-07", true},
	{"Yamaha MT-07", "Yamaha MT07", true},
	{"Yamaha MT-07", "Yamaha MT-09", false},
}

type metrics struct {
	threshold float64
	tp        int
	fp        int
	fn        int
	tn        int
}

func (m metrics) precision() float64 {
	if m.tp+m.fp == 0 {
		return 0
	}
	return float64(m.tp) / float64(m.tp+m.fp)
}

func (m metrics) recall() float64 {
	if m.tp+m.fn == 0 {
		return 0
	}
	return float64(m.tp) / float64(m.tp+m.fn)
}

func (m metrics) f1() float64 {
	p, r := m.precision(), m.recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func main() {
	samplesPath := flag.String("samples", "", "CSV of labeled samples: term,title,match (default: built-in set)")
	minThreshold := flag.Float64("min", 0.30, "Sweep start")
	maxThreshold := flag.Float64("max", 0.70, "Sweep end")
	step := flag.Float64("step", 0.0125, "Sweep step")
	jaccardWeight := flag.Float64("jaccard-weight", match.DefaultJaccardWeight, "Token-overlap signal weight")
	sequenceWeight := flag.Float64("sequence-weight", match.DefaultSequenceWeight, "Character-similarity signal weight")
	flag.Parse()

	samples := builtinSamples
	if *samplesPath != "" {
		loaded, err := loadSamples(*samplesPath)
		if err != nil {
			log.Fatalf("loading samples: %v", err)
		}
		samples = loaded
	}
	if len(samples) == 0 {
		log.Fatal("no samples to evaluate")
	}

	scorer := match.NewScorer(*jaccardWeight, *sequenceWeight)

	scores := make([]float64, len(samples))
	for i, s := range samples {
		scores[i] = scorer.Score(s.title, s.term)
	}

	var sweep []metrics
	for threshold := *minThreshold; threshold <= *maxThreshold+1e-9; threshold += *step {
		m := metrics{threshold: threshold}
		for i, s := range samples {
			matched := scores[i] >= threshold
			switch {
			case matched && s.shouldMatch:
				m.tp++
			case matched && !s.shouldMatch:
				m.fp++
			case !matched && s.shouldMatch:
				m.fn++
			default:
				m.tn++
			}
		}
		sweep = append(sweep, m)
	}

	fmt.Printf("Sweeping %d samples, weights jaccard=%.2f sequence=%.2f\n\n",
		len(samples), *jaccardWeight, *sequenceWeight)

	rows := [][]string{{"Threshold", "TP", "FP", "FN", "TN", "Precision", "Recall", "F1"}}
	best := sweep[0]
	for _, m := range sweep {
		rows = append(rows, []string{
			fmt.Sprintf("%.4f", m.threshold),
			strconv.Itoa(m.tp),
			strconv.Itoa(m.fp),
			strconv.Itoa(m.fn),
			strconv.Itoa(m.tn),
			fmt.Sprintf("%.3f", m.precision()),
			fmt.Sprintf("%.3f", m.recall()),
			fmt.Sprintf("%.3f", m.f1()),
		})
		if m.f1() > best.f1() {
			best = m
		}
	}
	printTable(rows)

	fmt.Printf("\nBest F1 %.3f at threshold %.4f (precision %.3f, recall %.3f)\n",
		best.f1(), best.threshold, best.precision(), best.recall())

	// Misclassifications at the best threshold, for eyeballing new guards.
	fmt.Println("\nMisclassified at best threshold:")
	clean := true
	for i, s := range samples {
		matched := scores[i] >= best.threshold
		if matched == s.shouldMatch {
			continue
		}
		clean = false
		verdict := "false positive"
		if s.shouldMatch {
			verdict = "false negative"
		}
		fmt.Printf("  [%s] %q vs %q (score %.3f)\n", verdict, s.term, s.title, scores[i])
	}
	if clean {
		fmt.Println("  none")
	}
}

// loadSamples reads term,title,match rows. The match column accepts the
// usual boolean spellings (true/false, 1/0, yes/no).
func loadSamples(path string) ([]sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 3

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var samples []sample
	for i, record := range records {
		if i == 0 && strings.EqualFold(record[0], "term") {
			continue
		}
		label, err := parseBool(record[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		samples = append(samples, sample{
			term:        strings.TrimSpace(record[0]),
			title:       strings.TrimSpace(record[1]),
			shouldMatch: label,
		})
	}
	return samples, nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "y":
		return true, nil
	case "false", "0", "no", "n":
		return false, nil
	default:
		return false, fmt.Errorf("unrecognized label %q", value)
	}
}

func printTable(rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	for i, row := range rows {
		var b strings.Builder
		for col, cell := range row {
			b.WriteString("  ")
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[col]-runewidth.StringWidth(cell)))
		}
		fmt.Println(b.String())
		if i == 0 {
			sep := make([]string, len(row))
			for col := range row {
				sep[col] = strings.Repeat("-", widths[col])
			}
			fmt.Println("  " + strings.Join(sep, "  "))
		}
	}
}

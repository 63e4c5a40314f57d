// Command circuitlens is the CLI for the circuitlens analysis engine.
// It analyzes quantum circuit source files, detects their dialect, and
// serves the REST/WebSocket API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/circuitlens/circuitlens/core/engine"
	"github.com/circuitlens/circuitlens/internal/api"
	"github.com/circuitlens/circuitlens/internal/detect"
	"github.com/circuitlens/circuitlens/internal/export"
	"github.com/circuitlens/circuitlens/internal/logging"
	"github.com/circuitlens/circuitlens/internal/store"
)

const version = "0.1.0"

// CLI defines the command-line interface for circuitlens.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log output format"`

	Analyze   AnalyzeCmd   `cmd:"" help:"Analyze a circuit source file"`
	Detect    DetectCmd    `cmd:"" help:"Detect the dialect of a circuit source file"`
	Languages LanguagesCmd `cmd:"" help:"List supported circuit dialects"`
	Serve     ServeCmd     `cmd:"" help:"Start the REST API server"`
	History   HistoryCmd   `cmd:"" help:"List stored analyses"`
	Export    ExportCmd    `cmd:"" help:"Export stored analyses to a bundle file"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

func initLogging() {
	level := logging.LevelInfo
	switch CLI.LogLevel {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	format := logging.FormatText
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logging.InitLogger(level, format)
}

// readSource reads circuit source from a file, or stdin when path is "-".
func readSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(data), nil
}

// AnalyzeCmd analyzes a circuit source file and prints the report.
type AnalyzeCmd struct {
	Path     string `arg:"" help:"Path to circuit source file (use - for stdin)"`
	Language string `short:"l" help:"Source dialect (auto-detected when omitted)"`
	JSON     bool   `help:"Emit the full report as JSON"`
	NoStats  bool   `name:"no-stats" help:"Skip circuit statistics"`
	NoMatch  bool   `name:"no-match" help:"Skip algorithm classification"`
}

func (c *AnalyzeCmd) Run() error {
	code, err := readSource(c.Path)
	if err != nil {
		return err
	}

	language := c.Language
	if language == "" {
		result := detect.Detect(code)
		if !result.Supported {
			return fmt.Errorf("could not detect dialect, pass --language")
		}
		language = result.Language
	}

	eng := engine.New(engine.Config{})
	report, err := eng.Analyze(context.Background(), engine.Request{
		Code:     code,
		Language: language,
		Options: engine.Options{
			IncludeComplexity: !c.NoStats,
			IncludePatterns:   !c.NoMatch,
		},
	})
	if err != nil {
		return err
	}

	if c.JSON {
		return printJSON(report)
	}
	printReport(report)
	return nil
}

func printReport(r *engine.Report) {
	fmt.Printf("Language:       %s\n", r.Language)
	fmt.Printf("Source Hash:    %s\n", shortHash(r.SourceHash))
	if r.Matches != nil {
		fmt.Printf("Classification: %s (%.0f%%)\n", r.Classification, r.Confidence*100)
	}

	if m := r.Complexity; m != nil {
		fmt.Println()
		fmt.Println("Circuit Statistics")
		fmt.Println("------------------")
		fmt.Printf("  Qubits:        %d\n", m.QubitCount)
		fmt.Printf("  Classical:     %d\n", m.ClassicalBitCount)
		fmt.Printf("  Gates:         %d\n", m.GateCount)
		fmt.Printf("  Measurements:  %d\n", m.MeasurementCount)
		fmt.Printf("  Depth:         %d\n", m.CircuitDepth)
		fmt.Printf("  Width:         %d\n", m.CircuitWidth)
		fmt.Printf("  Cyclomatic:    %d\n", m.CyclomaticComplexity)
		estimate := m.BigOEstimate
		if m.Approximate {
			estimate += " (approximate)"
		}
		fmt.Printf("  Scaling:       %s\n", estimate)

		if len(m.GateHistogram) > 0 {
			names := make([]string, 0, len(m.GateHistogram))
			for name := range m.GateHistogram {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Println()
			fmt.Println("Gate Histogram")
			fmt.Println("--------------")
			for _, name := range names {
				fmt.Printf("  %-10s %d\n", name, m.GateHistogram[name])
			}
		}
	}

	if len(r.Matches) > 0 {
		fmt.Println()
		fmt.Println("Algorithm Signatures")
		fmt.Println("--------------------")
		for _, match := range r.Matches {
			fmt.Printf("  %-16s %.0f%%\n", match.Label, match.Confidence*100)
		}
	}

	if len(r.Recommendations) > 0 {
		fmt.Println()
		fmt.Println("Recommendations")
		fmt.Println("---------------")
		for _, rec := range r.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
}

func shortHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16] + "..."
	}
	return hash
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize report: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// DetectCmd detects the dialect of a circuit source file.
type DetectCmd struct {
	Path string `arg:"" help:"Path to circuit source file (use - for stdin)"`
	JSON bool   `help:"Emit the result as JSON"`
}

func (c *DetectCmd) Run() error {
	code, err := readSource(c.Path)
	if err != nil {
		return err
	}

	result := detect.Detect(code)
	if c.JSON {
		return printJSON(result)
	}

	fmt.Printf("Language:   %s\n", result.Language)
	fmt.Printf("Confidence: %.0f%%\n", result.Confidence*100)
	fmt.Printf("Supported:  %v\n", result.Supported)
	if result.Details != "" {
		fmt.Printf("Details:    %s\n", result.Details)
	}
	return nil
}

// LanguagesCmd lists supported circuit dialects.
type LanguagesCmd struct {
	JSON bool `help:"Emit the list as JSON"`
}

func (c *LanguagesCmd) Run() error {
	languages := engine.New(engine.Config{}).Languages()
	if c.JSON {
		return printJSON(languages)
	}
	fmt.Println(strings.Join(languages, "\n"))
	return nil
}

// ServeCmd starts the REST API server.
type ServeCmd struct {
	Addr string `default:":8080" help:"Listen address"`
	DB   string `help:"History database path (history disabled when omitted)" type:"path"`
}

func (c *ServeCmd) Run() error {
	var st *store.Store
	if c.DB != "" {
		var err error
		st, err = store.Open(c.DB)
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer st.Close()
	}

	server := api.New(engine.New(engine.Config{}), st)
	return server.Start(api.Config{Addr: c.Addr})
}

// HistoryCmd lists stored analyses.
type HistoryCmd struct {
	DB    string `required:"" help:"History database path" type:"existingfile"`
	Limit int    `default:"20" help:"Maximum records to list"`
	JSON  bool   `help:"Emit records as JSON"`
}

func (c *HistoryCmd) Run() error {
	st, err := store.Open(c.DB)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer st.Close()

	records, err := st.Recent(context.Background(), c.Limit)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	if c.JSON {
		return printJSON(records)
	}

	if len(records) == 0 {
		fmt.Println("No analyses recorded.")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  %-9s %-15s %.0f%%  %s\n",
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.Language, rec.Classification, rec.Confidence*100, rec.ID)
	}
	return nil
}

// ExportCmd exports stored analyses to a bundle file.
type ExportCmd struct {
	DB    string `required:"" help:"History database path" type:"existingfile"`
	Out   string `required:"" help:"Output bundle path (tar.xz)" type:"path"`
	Limit int    `default:"1000" help:"Maximum records to export"`
}

func (c *ExportCmd) Run() error {
	st, err := store.Open(c.DB)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer st.Close()

	n, err := export.Write(context.Background(), st, c.Out, c.Limit)
	if err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}

	fmt.Printf("Exported %d analyses to %s\n", n, c.Out)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("circuitlens %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("circuitlens"),
		kong.Description("circuitlens - quantum circuit analysis engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	initLogging()
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}

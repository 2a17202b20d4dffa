// Command pft interprets spirometry records from the command line: a
// single record, a batch file, or an accuracy validation run against an
// expert-labeled dataset.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/pft-interpreter-server/internal/batch"
	"github.com/pft-interpreter-server/internal/config"
	"github.com/pft-interpreter-server/internal/report"
	"github.com/pft-interpreter-server/internal/service"
	"github.com/pft-interpreter-server/internal/validation"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return nil
	}

	configManager, err := config.NewManager()
	if err != nil {
		return err
	}
	if err := configManager.Validate(); err != nil {
		return err
	}

	cfg := configManager.GetConfig()
	logger := configManager.NewLogger()

	table, err := configManager.LoadReferenceTable()
	if err != nil {
		return err
	}
	model, err := service.NewReferenceEquationModel(logger, table, cfg.Cache.PredictionCacheSize)
	if err != nil {
		return err
	}
	interpreter := service.NewInterpreter(logger, model)
	generator := report.NewGenerator(model)

	switch args[0] {
	case "interpret":
		fs := flag.NewFlagSet("interpret", flag.ExitOnError)
		input := fs.String("input", "", "JSON file with one patient record")
		format := fs.String("format", "text", "output format: text or json")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *input == "" {
			return fmt.Errorf("interpret: -input is required")
		}
		return interpretSingle(interpreter, generator, *input, *format)

	case "batch":
		fs := flag.NewFlagSet("batch", flag.ExitOnError)
		input := fs.String("input", "", "JSON array or JSONL file of patient records")
		output := fs.String("output", cfg.Storage.OutputDir, "directory for generated reports")
		format := fs.String("format", "json", "report format: json or text")
		workers := fs.Int("workers", 4, "concurrent interpretation workers")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *input == "" {
			return fmt.Errorf("batch: -input is required")
		}

		processor := batch.NewProcessor(logger, interpreter, generator, *workers)
		summary, err := processor.ProcessFile(*input, *output, batch.Format(*format))
		if err != nil {
			return err
		}
		return printJSON(summary)

	case "validate":
		fs := flag.NewFlagSet("validate", flag.ExitOnError)
		input := fs.String("input", "", "JSON array of expert-labeled patient records")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *input == "" {
			return fmt.Errorf("validate: -input is required")
		}
		return validateDataset(logger, interpreter, *input)

	case "help", "--help", "-h":
		usage()
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func interpretSingle(interpreter *service.Interpreter, generator *report.Generator, input, format string) error {
	records, err := batch.ReadRecords(input)
	if err != nil {
		return err
	}
	if len(records) != 1 {
		return fmt.Errorf("interpret expects exactly one record, got %d (use batch)", len(records))
	}
	record := records[0]

	if problems := service.ValidateRecord(record); len(problems) > 0 {
		fmt.Fprintln(os.Stderr, "Implausible PFT data:")
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "  - %s\n", p)
		}
		return fmt.Errorf("validation failed")
	}

	result, err := interpreter.Interpret(record)
	if err != nil {
		return err
	}

	rep := generator.Generate(record, result)
	if format == "json" {
		return printJSON(rep)
	}
	fmt.Print(rep.Summary())
	return nil
}

func validateDataset(logger *logrus.Logger, interpreter *service.Interpreter, input string) error {
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	var records []*validation.LabeledRecord
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return fmt.Errorf("parsing dataset: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("dataset %s contains no records", input)
	}

	comparator := validation.NewComparator(logger, interpreter)
	acc := comparator.Validate(records)

	fmt.Println("==================================================")
	fmt.Println("      PFT SYSTEM VALIDATION REPORT")
	fmt.Println("==================================================")
	fmt.Printf("Total Records Processed: %d (labeled: %d)\n\n", acc.Total, acc.Labeled)
	fmt.Printf("Pattern Identification Accuracy:  %.2f%% (%d/%d)\n", acc.PatternAccuracy()*100, acc.PatternCorrect, acc.Labeled)
	fmt.Printf("Severity Classification Accuracy: %.2f%% (%d/%d)\n", acc.SeverityAccuracy()*100, acc.SeverityCorrect, acc.Labeled)
	fmt.Printf("Overall Agreement:                %.2f%% (%d/%d)\n\n", acc.OverallAccuracy()*100, acc.BothCorrect, acc.Labeled)

	fmt.Printf("Found %d records with disagreements.\n", len(acc.Mismatches))
	for i, m := range acc.Mismatches {
		if i >= 5 {
			break
		}
		fmt.Printf("\n%d. Record: %s\n", i+1, m.Record)
		fmt.Printf("   - System: %s\n", m.System)
		fmt.Printf("   - Expert: %s\n", m.Expert)
	}
	fmt.Println("==================================================")
	return nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func usage() {
	fmt.Print(`PFT Interpretation Tool

Usage:
  pft <command> [options]

Commands:
  interpret  Interpret a single patient record file
  batch      Interpret every record in a JSON/JSONL file
  validate   Score engine accuracy against expert-labeled records
  help       Show this help

Run "pft <command> -h" for command options.
`)
}

// Package batch processes files of patient records: JSON arrays or JSONL
// streams in, one report file per record out. Records are independent, so
// interpretation fans out across workers with no coordination between
// records.
package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pft-interpreter-server/internal/domain"
	"github.com/pft-interpreter-server/internal/report"
	"github.com/pft-interpreter-server/internal/service"
)

// Format selects the per-record output representation.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Summary is the outcome of one batch run.
type Summary struct {
	Processed      int                   `json:"processed"`
	Errors         int                   `json:"errors"`
	Distribution   *report.PatternCounts `json:"distribution"`
	FilesGenerated []string              `json:"files_generated"`
}

// Processor drives batch interpretation.
type Processor struct {
	logger      *logrus.Logger
	interpreter *service.Interpreter
	generator   *report.Generator
	workers     int
}

// NewProcessor creates a batch processor. workers <= 0 selects a single
// worker.
func NewProcessor(logger *logrus.Logger, interpreter *service.Interpreter, generator *report.Generator, workers int) *Processor {
	if workers <= 0 {
		workers = 1
	}
	return &Processor{
		logger:      logger,
		interpreter: interpreter,
		generator:   generator,
		workers:     workers,
	}
}

// ProcessFile reads every record from inputPath, interprets each
// independently and writes one report per record into outputDir. A record
// that fails validation or interpretation is counted and logged without
// stopping the rest of the batch.
func (p *Processor) ProcessFile(inputPath, outputDir string, format Format) (*Summary, error) {
	records, err := ReadRecords(inputPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"input":   inputPath,
		"records": len(records),
		"workers": p.workers,
	}).Info("Starting batch processing")

	type outcome struct {
		index  int
		file   string
		result *domain.InterpretationResult
		err    error
	}

	jobs := make(chan int)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				file, result, err := p.processRecord(records[idx], idx, outputDir, format)
				outcomes <- outcome{index: idx, file: file, result: result, err: err}
			}
		}()
	}

	go func() {
		for idx := range records {
			jobs <- idx
		}
		close(jobs)
		wg.Wait()
		close(outcomes)
	}()

	summary := &Summary{Distribution: report.NewPatternCounts()}
	for out := range outcomes {
		if out.err != nil {
			summary.Errors++
			p.logger.WithError(out.err).WithField("record", out.index+1).Error("Failed to process record")
			continue
		}
		summary.Processed++
		summary.Distribution.Add(out.result)
		summary.FilesGenerated = append(summary.FilesGenerated, out.file)
	}

	p.logger.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"errors":    summary.Errors,
	}).Info("Completed batch processing")

	return summary, nil
}

func (p *Processor) processRecord(record *domain.PatientRecord, idx int, outputDir string, format Format) (string, *domain.InterpretationResult, error) {
	if problems := service.ValidateRecord(record); len(problems) > 0 {
		return "", nil, fmt.Errorf("invalid record: %s", strings.Join(problems, "; "))
	}

	result, err := p.interpreter.Interpret(record)
	if err != nil {
		return "", nil, err
	}

	rep := p.generator.Generate(record, result)

	name := fmt.Sprintf("pft_report_%04d", idx+1)
	if record.FileName != "" {
		name = strings.TrimSuffix(filepath.Base(record.FileName), filepath.Ext(record.FileName))
	}

	var outPath string
	if format == FormatText {
		outPath = filepath.Join(outputDir, name+"_report.txt")
		err = os.WriteFile(outPath, []byte(rep.Summary()), 0644)
	} else {
		outPath = filepath.Join(outputDir, name+"_report.json")
		var data []byte
		data, err = json.MarshalIndent(rep, "", "  ")
		if err == nil {
			err = os.WriteFile(outPath, data, 0644)
		}
	}
	if err != nil {
		return "", nil, fmt.Errorf("writing report: %w", err)
	}

	return outPath, result, nil
}

// ReadRecords loads patient records from a JSON array, a single JSON
// object, or a JSONL file (selected by extension).
func ReadRecords(path string) ([]*domain.PatientRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".jsonl") {
		var records []*domain.PatientRecord
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			record := &domain.PatientRecord{}
			if err := json.Unmarshal([]byte(text), record); err != nil {
				return nil, fmt.Errorf("parsing line %d: %w", line, err)
			}
			records = append(records, record)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		return records, nil
	}

	var records []*domain.PatientRecord
	dec := json.NewDecoder(f)
	if err := dec.Decode(&records); err == nil {
		return records, nil
	}

	// Not an array; retry as a single object.
	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("rewinding input: %w", err)
	}
	record := &domain.PatientRecord{}
	if err := json.NewDecoder(f).Decode(record); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	return []*domain.PatientRecord{record}, nil
}

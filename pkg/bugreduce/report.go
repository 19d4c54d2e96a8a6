// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package bugreduce

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bugreducer/bugreducer/pkg/config"
	"github.com/bugreducer/bugreducer/pkg/minimize"
	"github.com/bugreducer/bugreducer/pkg/stat"
	"github.com/google/uuid"
)

type Kind string

const (
	KindFunctions Kind = "functions"
	KindPasses    Kind = "passes"
)

// Report is the outcome of one reduction run.
type Report struct {
	RunID          string    `json:"run_id"`
	Time           time.Time `json:"time"`
	Kind           Kind      `json:"kind"`
	Mode           string    `json:"mode"`
	Input          string    `json:"input"`
	Classification string    `json:"classification"`
	// NotReproduced is set if the unreduced input does not show the bug,
	// no reduction is attempted then.
	NotReproduced bool     `json:"not_reproduced,omitempty"`
	Original      []string `json:"original"`
	Final         []string `json:"final"`
	Reduced       bool     `json:"reduced"`
	// StepLimit is set if the reduction was stopped by max_steps, Final is still reproducing.
	StepLimit bool      `json:"step_limit,omitempty"`
	Steps     int       `json:"steps"`
	FinalFile string    `json:"final_file"`
	Repro     []string  `json:"repro"`
	Stats     []stat.UI `json:"stats,omitempty"`
}

func newReport(kind Kind, cfg *Config, mode minimize.Mode) *Report {
	return &Report{
		RunID: uuid.New().String(),
		Time:  time.Now(),
		Kind:  kind,
		Mode:  mode.String(),
		Input: cfg.Input,
	}
}

func (rep *Report) String() string {
	buf := new(strings.Builder)
	if rep.NotReproduced {
		fmt.Fprintf(buf, "the bug does not reproduce on the unreduced input (%v)\n", rep.Classification)
		fmt.Fprintf(buf, "*** Repro command line: %v\n", strings.Join(rep.Repro, " "))
		return buf.String()
	}
	if !rep.Reduced {
		fmt.Fprintf(buf, "no further reduction possible, all %v %v are needed\n", len(rep.Final), rep.Kind)
	}
	if rep.StepLimit {
		fmt.Fprintf(buf, "the step limit was reached, the result is not minimal\n")
	}
	fmt.Fprintf(buf, "*** Final File: %v\n", rep.FinalFile)
	fmt.Fprintf(buf, "*** Final %v: %v\n", rep.finalTitle(), strings.Join(rep.Final, " "))
	fmt.Fprintf(buf, "*** Repro command line: %v\n", strings.Join(rep.Repro, " "))
	fmt.Fprintf(buf, "(%v -> %v %v in %v steps)\n", len(rep.Original), len(rep.Final), rep.Kind, rep.Steps)
	return buf.String()
}

func (rep *Report) finalTitle() string {
	if rep.Kind == KindPasses {
		return "Passes"
	}
	return "Functions"
}

// Save writes the report as JSON into dir and returns the file name.
func (rep *Report) Save(dir string) (string, error) {
	rep.Stats = stat.Collect()
	file := filepath.Join(dir, fmt.Sprintf("report-%v.json", rep.RunID))
	if err := config.SaveFile(file, rep); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return file, nil
}

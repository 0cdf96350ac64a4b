// Package agent drives the evidence extraction loop: snapshot, decision, tool call, ledger.
package agent

import (
	"errors"

	"github.com/ppiankov/casecheck/internal/agent/tools"
	"github.com/ppiankov/casecheck/internal/model"
)

// ErrEmptyCorpus is returned when a snapshot has no documents to show
var ErrEmptyCorpus = errors.New("corpus has no documents")

// Run is the private state of one extraction run
type Run struct {
	ID       string
	Corpus   *model.Corpus
	Env      *tools.Env
	Registry *tools.Registry
	Step     int
	MaxSteps int
}

// State is the driver state
type State int

const (
	StateRunning State = iota
	StateStopped
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Result is the outcome of one run
type Result struct {
	RunID      string
	Collection model.EvidenceCollection
	Steps      int
	State      State
	StopReason string
}

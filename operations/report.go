package operations

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Report records one execution of an operation or sequence: what it was given, what it returned
// and whether it failed. Reports are written as JSON with --report.
type Report[IN, OUT any] struct {
	ID        string       `json:"id"`
	Def       Definition   `json:"definition"`
	Output    OUT          `json:"output"`
	Input     IN           `json:"input"`
	Timestamp *time.Time   `json:"timestamp"`
	Err       *ReportError `json:"error"`
	// ChildOperationReports are the IDs of the reports of the operations run by a sequence.
	ChildOperationReports []string `json:"childOperationReports"`
}

// SequenceReport is a report for a sequence.
// It contains a report for the sequence itself and also a list of reports
// for all the operations executed as part of the sequence.
type SequenceReport[IN, OUT any] struct {
	Report[IN, OUT]

	// ExecutionReports is a list of reports of all the operations executed as part of this
	// sequence, followed by the report of the sequence itself.
	ExecutionReports []Report[any, any]
}

// NewReport creates a new report.
// ChildOperationReports is applicable only for Sequence.
func NewReport[IN, OUT any](
	def Definition, input IN, output OUT, err error, childReportsID ...string,
) Report[IN, OUT] {
	now := time.Now()
	r := Report[IN, OUT]{
		ID:                    uuid.New().String(),
		Def:                   def,
		Output:                output,
		Input:                 input,
		Timestamp:             &now,
		ChildOperationReports: childReportsID,
	}
	if err != nil {
		r.Err = &ReportError{Message: err.Error()}
	}

	return r
}

// ReportError is the message of the error an operation failed with. Errors do not marshal to
// JSON, their message does.
type ReportError struct {
	Message string `json:"message"`
}

func (e ReportError) Error() string {
	return e.Message
}

// ErrReportNotFound is returned when a report ID is unknown to a Reporter.
var ErrReportNotFound = errors.New("report not found")

// Reporter stores the reports of executed operations and sequences.
type Reporter interface {
	GetReport(id string) (Report[any, any], error)
	GetReports() ([]Report[any, any], error)
	AddReport(report Report[any, any]) error
	GetExecutionReports(reportID string) ([]Report[any, any], error)
}

// MemoryReporter keeps the reports of a run in memory, in the order they were added. It is safe
// for concurrent use.
type MemoryReporter struct {
	mu      sync.RWMutex
	reports []Report[any, any]
	index   map[string]int
}

func NewMemoryReporter() *MemoryReporter {
	return &MemoryReporter{index: make(map[string]int)}
}

func (r *MemoryReporter) AddReport(report Report[any, any]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index == nil {
		r.index = make(map[string]int)
	}
	r.index[report.ID] = len(r.reports)
	r.reports = append(r.reports, report)

	return nil
}

// GetReports returns a copy of all reports in the order they were added.
func (r *MemoryReporter) GetReports() ([]Report[any, any], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.reports), nil
}

func (r *MemoryReporter) GetReport(id string) (Report[any, any], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lookup(id)
}

// GetExecutionReports returns the reports of the operations run by the sequence with the given
// report ID, children before their parent, ending with the report of the sequence itself.
func (r *MemoryReporter) GetExecutionReports(seqID string) ([]Report[any, any], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var reports []Report[any, any]
	if err := r.collect(seqID, &reports); err != nil {
		return nil, err
	}

	return reports, nil
}

func (r *MemoryReporter) lookup(id string) (Report[any, any], error) {
	i, ok := r.index[id]
	if !ok {
		return Report[any, any]{}, fmt.Errorf("report %s: %w", id, ErrReportNotFound)
	}

	return r.reports[i], nil
}

func (r *MemoryReporter) collect(id string, into *[]Report[any, any]) error {
	report, err := r.lookup(id)
	if err != nil {
		return err
	}
	for _, child := range report.ChildOperationReports {
		if err := r.collect(child, into); err != nil {
			return err
		}
	}
	*into = append(*into, report)

	return nil
}

// RecentReporter forwards reports to a parent Reporter and remembers the ones added through it.
// ExecuteSequence uses it to find the operations run by a sequence.
type RecentReporter struct {
	Reporter

	mu     sync.Mutex
	recent []Report[any, any]
}

func NewRecentMemoryReporter(parent Reporter) *RecentReporter {
	return &RecentReporter{Reporter: parent}
}

func (r *RecentReporter) AddReport(report Report[any, any]) error {
	if err := r.Reporter.AddReport(report); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.recent = append(r.recent, report)

	return nil
}

// GetRecentReports returns the reports added through r.
func (r *RecentReporter) GetRecentReports() []Report[any, any] {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.recent)
}

// WriteReports writes all reports of the reporter to w as an indented JSON array.
func WriteReports(w io.Writer, reporter Reporter) error {
	reports, err := reporter.GetReports()
	if err != nil {
		return fmt.Errorf("failed to get reports: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("failed to encode reports: %w", err)
	}

	return nil
}

func genericReport[IN, OUT any](r Report[IN, OUT]) Report[any, any] {
	return Report[any, any]{
		ID:                    r.ID,
		Def:                   r.Def,
		Output:                r.Output,
		Input:                 r.Input,
		Timestamp:             r.Timestamp,
		Err:                   r.Err,
		ChildOperationReports: r.ChildOperationReports,
	}
}

package operations

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leftasexercise/ethdeploy/pkg/logger"
)

var ErrNotSerializable = errors.New("data cannot be written to a report without data loss, " +
	"avoid types that can't be serialized")

// ExecuteOperation executes an operation with the given input and dependencies and records a
// report of the execution, whether it failed or not. The error of the operation is returned as is
// so that callers can inspect it with errors.As.
//
// Input & Output:
// The input and output must be JSON serializable. If the input is not serializable, the operation
// is not executed.
func ExecuteOperation[IN, OUT, DEP any](
	b Bundle,
	operation *Operation[IN, OUT, DEP],
	deps DEP,
	input IN,
) (Report[IN, OUT], error) {
	if !IsSerializable(b.Logger, input) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s input: %w", operation.def.ID, ErrNotSerializable)
	}

	output, opErr := operation.execute(b, deps, input)
	if opErr == nil && !IsSerializable(b.Logger, output) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s output: %w", operation.def.ID, ErrNotSerializable)
	}

	report := NewReport(operation.def, input, output, opErr)
	if err := b.reporter.AddReport(genericReport(report)); err != nil {
		return Report[IN, OUT]{}, err
	}

	if opErr != nil {
		b.Logger.Errorw("Operation failed", "id", operation.def.ID, "report", report.ID, "error", opErr)
		return report, opErr
	}

	return report, nil
}

// ExecuteSequence executes a Sequence and returns a SequenceReport.
// The SequenceReport contains a report for the Sequence and also the execution reports of all the
// operations that were executed as part of this sequence.
func ExecuteSequence[IN, OUT, DEP any](
	b Bundle, sequence *Sequence[IN, OUT, DEP], deps DEP, input IN,
) (SequenceReport[IN, OUT], error) {
	if !IsSerializable(b.Logger, input) {
		return SequenceReport[IN, OUT]{}, fmt.Errorf("sequence %s input: %w", sequence.def.ID, ErrNotSerializable)
	}

	b.Logger.Infow("Executing sequence", "id", sequence.def.ID,
		"version", sequence.def.Version, "description", sequence.def.Description)
	recentReporter := NewRecentMemoryReporter(b.reporter)
	newBundle := Bundle{
		Logger:     b.Logger,
		GetContext: b.GetContext,
		reporter:   recentReporter,
	}
	ret, seqErr := sequence.handler(newBundle, deps, input)
	if errors.Is(seqErr, ErrNotSerializable) {
		return SequenceReport[IN, OUT]{}, seqErr
	}

	if seqErr == nil && !IsSerializable(b.Logger, ret) {
		return SequenceReport[IN, OUT]{}, fmt.Errorf("sequence %s output: %w", sequence.def.ID, ErrNotSerializable)
	}

	recentReports := recentReporter.GetRecentReports()
	childReports := make([]string, 0, len(recentReports))
	for _, rep := range recentReports {
		childReports = append(childReports, rep.ID)
	}

	report := NewReport(sequence.def, input, ret, seqErr, childReports...)
	if err := b.reporter.AddReport(genericReport(report)); err != nil {
		return SequenceReport[IN, OUT]{}, err
	}

	executionReports, err := b.reporter.GetExecutionReports(report.ID)
	if err != nil {
		return SequenceReport[IN, OUT]{}, err
	}

	return SequenceReport[IN, OUT]{report, executionReports}, seqErr
}

// IsSerializable reports whether v can be written to a report as JSON.
func IsSerializable(lggr logger.Logger, v any) bool {
	if _, err := json.Marshal(v); err != nil {
		lggr.Errorw("Value is not serializable", "type", fmt.Sprintf("%T", v), "error", err)
		return false
	}

	return true
}

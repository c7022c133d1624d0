package hooks

import "fmt"

// Status is the outcome of an afterChange hook.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result is the non-fatal outcome of an afterChange hook. Failed results
// carry the error for logging and metrics; they never abort the write.
type Result struct {
	Hook   string
	Status Status
	Detail string
	Err    error
}

// OK reports a completed side effect.
func OK(detail string) Result { return Result{Status: StatusOK, Detail: detail} }

// Skipped reports a side effect that did not apply.
func Skipped(detail string) Result { return Result{Status: StatusSkipped, Detail: detail} }

// Failed reports a side effect that could not be completed.
func Failed(err error, detail string) Result {
	return Result{Status: StatusFailed, Detail: detail, Err: err}
}

// Failures returns the failed results.
func Failures(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

func errPanic(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}

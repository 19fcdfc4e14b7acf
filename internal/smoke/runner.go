package smoke

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cadastro/internal/logging"
)

// Driver performs the four step kinds against one page. Implementations must
// fail a lookup that resolves to zero or several elements.
type Driver interface {
	Visit(ctx context.Context, url string) error
	Type(ctx context.Context, selector, text string) error
	Check(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
}

// Status is the outcome of one step.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult records one step of a run.
type StepResult struct {
	Step     Step
	Status   Status
	Err      error
	Duration time.Duration
}

// Report is the outcome of a scenario run.
type Report struct {
	Scenario string
	Results  []StepResult
	Started  time.Time
	Elapsed  time.Duration
}

// Passed reports whether every step passed.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if res.Status != StatusPassed {
			return false
		}
	}
	return len(r.Results) > 0
}

// Failed returns the failing step, if any.
func (r *Report) Failed() (StepResult, bool) {
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			return res, true
		}
	}
	return StepResult{}, false
}

// Summary renders one line per step.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%v)\n", r.Scenario, r.Elapsed.Round(time.Millisecond))
	for i, res := range r.Results {
		fmt.Fprintf(&sb, "  %d. [%s] %s", i+1, res.Status, res.Step.Name)
		if res.Err != nil {
			fmt.Fprintf(&sb, ": %v", res.Err)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// StepError identifies the step that ended a run.
type StepError struct {
	Index int
	Step  Step
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index+1, e.Step.Name, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Runner executes scenarios through a Driver.
type Runner struct {
	driver Driver
}

// NewRunner returns a runner bound to d.
func NewRunner(d Driver) *Runner {
	return &Runner{driver: d}
}

// Run executes sc step by step. On the first failure the remaining steps are
// reported as skipped and a *StepError is returned alongside the report.
func (r *Runner) Run(ctx context.Context, sc Scenario) (*Report, error) {
	report := &Report{
		Scenario: sc.Name,
		Results:  make([]StepResult, 0, len(sc.Steps)),
		Started:  time.Now(),
	}
	log := logging.Get(logging.CategorySmoke)

	var failure *StepError
	for i, step := range sc.Steps {
		if failure != nil {
			report.Results = append(report.Results, StepResult{Step: step, Status: StatusSkipped})
			continue
		}

		start := time.Now()
		err := r.exec(ctx, step)
		res := StepResult{Step: step, Status: StatusPassed, Duration: time.Since(start)}
		if err != nil {
			res.Status = StatusFailed
			res.Err = err
			failure = &StepError{Index: i, Step: step, Err: err}
			log.Error("step %d %s failed: %v", i+1, step, err)
		} else {
			log.Debug("step %d %s ok in %v", i+1, step, res.Duration)
		}
		report.Results = append(report.Results, res)
	}
	report.Elapsed = time.Since(report.Started)

	if failure != nil {
		return report, failure
	}
	log.Info("%s passed (%d steps, %v)", sc.Name, len(sc.Steps), report.Elapsed)
	return report, nil
}

func (r *Runner) exec(ctx context.Context, step Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch step.Kind {
	case KindVisit:
		return r.driver.Visit(ctx, step.URL)
	case KindType:
		return r.driver.Type(ctx, step.Selector, step.Text)
	case KindCheck:
		return r.driver.Check(ctx, step.Selector)
	case KindClick:
		return r.driver.Click(ctx, step.Selector)
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

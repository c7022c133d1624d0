package hooks

import (
	"context"
	"errors"

	"github.com/unevent/unevent-api/internal/domain/model"
)

// Operation is the kind of write a hook runs for.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
)

// BeforeValidateFunc derives field values from the pending write data. It
// receives a private copy and returns the (possibly mutated) data. A returned
// error aborts the write.
type BeforeValidateFunc func(ctx context.Context, rc RequestContext, op Operation, data *model.Listing) (*model.Listing, error)

// ChangeEvent describes a persisted write. Previous is nil on create.
type ChangeEvent struct {
	Operation Operation
	Doc       *model.Listing
	Previous  *model.Listing
}

// AfterChangeFunc performs a side effect of a persisted write. It has no
// error return: failures are reported through the Result.
type AfterChangeFunc func(ctx context.Context, rc RequestContext, ev ChangeEvent) Result

// BeforeDeleteFunc may veto a hard delete by returning an error.
type BeforeDeleteFunc func(ctx context.Context, rc RequestContext, id string) error

// BeforeValidateStep is a named beforeValidate hook.
type BeforeValidateStep struct {
	Name string
	Fn   BeforeValidateFunc
}

// AfterChangeStep is a named afterChange hook.
type AfterChangeStep struct {
	Name string
	Fn   AfterChangeFunc
}

// BeforeDeleteStep is a named beforeDelete hook.
type BeforeDeleteStep struct {
	Name string
	Fn   BeforeDeleteFunc
}

// Pipeline is the ordered hook definition per lifecycle phase.
type Pipeline struct {
	BeforeValidate []BeforeValidateStep
	AfterChange    []AfterChangeStep
	BeforeDelete   []BeforeDeleteStep

	// Observe, when set, is called with every afterChange Result.
	Observe func(Result)
}

var errNilData = errors.New("hook returned nil data")

// RunBeforeValidate runs the beforeValidate phase in order on a copy of data.
func (p *Pipeline) RunBeforeValidate(
	ctx context.Context,
	rc RequestContext,
	op Operation,
	data *model.Listing,
) (*model.Listing, error) {
	cur := data.Clone()
	if cur == nil {
		cur = &model.Listing{}
	}
	for _, step := range p.BeforeValidate {
		next, err := step.Fn(ctx, rc, op, cur)
		if err != nil {
			rc.logger().InfoContext(ctx, "write rejected by hook",
				"hook", step.Name,
				"operation", op,
				"listing_id", cur.ID,
				"error", err,
			)
			return nil, err
		}
		if next == nil {
			return nil, errNilData
		}
		cur = next
	}
	return cur, nil
}

// RunAfterChange runs every afterChange hook in order and returns their
// results. It never fails: a panicking hook is recorded as a failed Result.
func (p *Pipeline) RunAfterChange(ctx context.Context, rc RequestContext, ev ChangeEvent) []Result {
	results := make([]Result, 0, len(p.AfterChange))
	for _, step := range p.AfterChange {
		res := runAfterChangeStep(ctx, rc, step, ev)
		res.Hook = step.Name
		results = append(results, res)
		logResult(ctx, rc, ev, res)
		if p.Observe != nil {
			p.Observe(res)
		}
	}
	return results
}

func runAfterChangeStep(ctx context.Context, rc RequestContext, step AfterChangeStep, ev ChangeEvent) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failed(errPanic(r), "hook panicked")
		}
	}()
	return step.Fn(ctx, rc, ev)
}

func logResult(ctx context.Context, rc RequestContext, ev ChangeEvent, res Result) {
	log := rc.logger()
	switch res.Status {
	case StatusFailed:
		log.ErrorContext(ctx, "after-change hook failed",
			"hook", res.Hook,
			"listing_id", ev.Doc.ID,
			"operation", ev.Operation,
			"detail", res.Detail,
			"error", res.Err,
		)
	case StatusSkipped:
		log.DebugContext(ctx, "after-change hook skipped",
			"hook", res.Hook,
			"listing_id", ev.Doc.ID,
			"detail", res.Detail,
		)
	default:
		log.DebugContext(ctx, "after-change hook done",
			"hook", res.Hook,
			"listing_id", ev.Doc.ID,
			"detail", res.Detail,
		)
	}
}

// RunBeforeDelete runs the beforeDelete phase; the first error aborts.
func (p *Pipeline) RunBeforeDelete(ctx context.Context, rc RequestContext, id string) error {
	for _, step := range p.BeforeDelete {
		if err := step.Fn(ctx, rc, id); err != nil {
			rc.logger().InfoContext(ctx, "delete rejected by hook",
				"hook", step.Name,
				"listing_id", id,
				"error", err,
			)
			return err
		}
	}
	return nil
}

// StepNames lists the hook names per phase in execution order.
func (p *Pipeline) StepNames() map[string][]string {
	out := map[string][]string{}
	for _, s := range p.BeforeValidate {
		out["beforeValidate"] = append(out["beforeValidate"], s.Name)
	}
	for _, s := range p.AfterChange {
		out["afterChange"] = append(out["afterChange"], s.Name)
	}
	for _, s := range p.BeforeDelete {
		out["beforeDelete"] = append(out["beforeDelete"], s.Name)
	}
	return out
}

package gather

import (
	"context"

	"github.com/cockroachdb/errors"

	"agroquote/internal/domain"
)

// Export reads back every variant stored for dr and hands each non-empty
// one to the loader as a tab named after the variant.
func (o *Orchestrator) Export(ctx context.Context, dr DateRange) error {
	if o.loader == nil {
		return nil
	}
	var errs error
	for _, v := range domain.Variants() {
		rs, err := o.store.Read(ctx, v, dr.StartDate(), dr.EndDate(), nil)
		if err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "reading %s", v))
			continue
		}
		if rs.Len() == 0 {
			continue
		}
		cells, err := o.loader.Load(ctx, o.exportDest, string(v), domain.Flatten(v, rs.Records))
		if err != nil {
			errs = errors.CombineErrors(errs, errors.Mark(errors.Wrapf(err, "loading %s", v), domain.ErrSinkFailure))
			continue
		}
		o.log.Info("secondary load done", "tab", v, "records", rs.Len(), "cells", cells)
	}
	return errs
}

package model

import "errors"

// BulkResult is the outcome of a mutation applied to many items. One failed
// item never stops the rest.
type BulkResult struct {
	Done   int
	Failed int
	Errs   []error
}

// Record counts the outcome of one item.
func (r *BulkResult) Record(err error) {
	if err != nil {
		r.Failed++
		r.Errs = append(r.Errs, err)
		return
	}
	r.Done++
}

// Err joins the per-item errors, or returns nil when all succeeded.
func (r BulkResult) Err() error {
	return errors.Join(r.Errs...)
}

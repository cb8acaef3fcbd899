// Package billing decides how many worked hours are billed and derives
// project financials from the cached rollups.
package billing

// Input describes a work log being saved together with the totals of the
// item's other work logs.
type Input struct {
	// PriorWorked and PriorBilled sum every other work log of the item,
	// excluding the one being saved.
	PriorWorked float64
	PriorBilled float64

	Worked float64

	// Billed is the explicitly supplied value, or nil to auto-allocate.
	Billed *float64

	Estimate    *float64
	NonBillable bool
}

// Result is the outcome of an allocation.
type Result struct {
	Billed          float64
	ItemTotalWorked float64
	ItemTotalBilled float64
}

// Allocate computes the billed hours for a work log and the item totals
// that follow from it.
//
// Non-billable items bill nothing and their billed total is forced to
// zero. An explicit billed value is used as-is. Otherwise the worked
// hours are billed in full when the item has no estimate, or capped at
// the estimate hours not yet billed by other logs.
func Allocate(in Input) Result {
	res := Result{ItemTotalWorked: in.PriorWorked + in.Worked}

	switch {
	case in.NonBillable:
		res.Billed = 0
		res.ItemTotalBilled = 0
		return res
	case in.Billed != nil:
		res.Billed = *in.Billed
	case in.Estimate == nil || *in.Estimate == 0:
		res.Billed = in.Worked
	default:
		available := *in.Estimate - in.PriorBilled
		if available > 0 {
			res.Billed = min(in.Worked, available)
		}
	}

	res.ItemTotalBilled = in.PriorBilled + res.Billed
	return res
}

// Capacity is the estimate hours still available for billing, never
// negative. Items without an estimate report ok=false.
func Capacity(estimate *float64, priorBilled float64) (hours float64, ok bool) {
	if estimate == nil || *estimate == 0 {
		return 0, false
	}
	return max(*estimate-priorBilled, 0), true
}

package domain

import "sort"

// Resolver maps an employee's document records to the one actionable step.
// Resolve never fails: inconsistent input degrades to a placeholder step.
type Resolver struct {
	policy SequencePolicy
}

func NewResolver(policy SequencePolicy) Resolver {
	return Resolver{policy: policy}
}

func (r Resolver) Policy() SequencePolicy {
	return r.policy
}

func (r Resolver) Resolve(records []DocumentRecord) Step {
	first := placeholderStep(r.policy.First())
	if len(records) == 0 {
		return first
	}

	known := make([]DocumentRecord, 0, len(records))
	for _, rec := range records {
		if r.policy.Contains(rec.Type) {
			known = append(known, rec)
		}
	}
	if len(known) == 0 {
		return first
	}
	sort.SliceStable(known, func(i, j int) bool {
		a, _ := r.policy.OrderOf(known[i].Type)
		b, _ := r.policy.OrderOf(known[j].Type)
		return a < b
	})

	// Duplicates of a type keep the last one in sorted order.
	sorted := known[:0]
	for _, rec := range known {
		if n := len(sorted); n > 0 && sorted[n-1].Type == rec.Type {
			sorted[n-1] = rec
			continue
		}
		sorted = append(sorted, rec)
	}

	approved := 0
	for _, rec := range sorted {
		if rec.Status == StatusApproved {
			approved++
		}
	}
	last := sorted[len(sorted)-1]
	if approved == r.policy.Len() {
		return StepFromRecord(last)
	}

	if last.Status != StatusApproved {
		return StepFromRecord(last)
	}
	if next, ok := r.policy.Next(last.Type); ok {
		return placeholderStep(next)
	}
	return first
}

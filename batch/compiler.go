package batch

import (
	"github.com/sheetmcp/sheetcore/mutation"
)

// Config controls compilation limits.
type Config struct {
	MaxBatchSize int // max mutations folded into one remote call; default 500
}

func (c Config) withDefaults() Config {
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 500
	}
	return c
}

// CompiledCall is one remote call's worth of work: either a group of
// batchable mutations or a single non-batchable one.
type CompiledCall struct {
	Mutations []mutation.Mutation
	FieldMask []string
	Singleton bool
}

// Compile groups ops into the minimum number of CompiledCalls: consecutive
// batchable mutations fold into one call, preserving submission order;
// since mutations are never
// reordered across a non-batchable boundary, a mutation depending on an
// earlier structural change in the same run stays in the same compiled
// call (rule 3); non-batchable kinds become singleton calls in place
// (rule 4); each call's fieldMask is the union of its mutations' masks,
// minimizing response payload (rule 5).
func Compile(ops []mutation.Mutation, cfg Config) []CompiledCall {
	cfg = cfg.withDefaults()
	var calls []CompiledCall
	var current []mutation.Mutation

	flush := func() {
		if len(current) == 0 {
			return
		}
		calls = append(calls, CompiledCall{Mutations: current, FieldMask: mergeFieldMasks(current)})
		current = nil
	}

	for _, op := range ops {
		if !op.IsBatchable() {
			flush()
			calls = append(calls, CompiledCall{
				Mutations: []mutation.Mutation{op},
				FieldMask: mergeFieldMasks([]mutation.Mutation{op}),
				Singleton: true,
			})
			continue
		}

		current = append(current, op)
		if len(current) >= cfg.MaxBatchSize {
			flush()
		}
	}
	flush()

	return calls
}

// mergeFieldMasks unions the per-mutation field masks so the remote call
// requests only the fields any of its mutations' replies need.
func mergeFieldMasks(ops []mutation.Mutation) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, op := range ops {
		for _, f := range op.FieldMask {
			if !seen[f] {
				seen[f] = true
				merged = append(merged, f)
			}
		}
	}
	return merged
}

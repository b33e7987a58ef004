// Package mutation defines the tagged-union Mutation type the batch
// compiler, transaction manager, and impact analyzer all operate on, plus
// the normalized operationKey used for deduplication and batch grouping.
package mutation

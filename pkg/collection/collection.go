// Package collection holds small generic slice helpers used across the
// service layer: mapping order items to product IDs, keying products by ID
// for lookup, summing line totals, and the like.
//
//	ids := collection.Map(items, func(i models.OrderItem) uint { return i.ProductID })
//	byID := collection.KeyBy(products, func(p models.Product) uint { return p.ID })
package collection

import "sort"

// Map applies fn to every element and returns the results.
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i := range s {
		out[i] = fn(s[i])
	}
	return out
}

// Filter keeps the elements for which fn reports true.
func Filter[T any](s []T, fn func(T) bool) []T {
	var out []T
	for _, v := range s {
		if fn(v) {
			out = append(out, v)
		}
	}
	return out
}

// First returns the first element matching fn, or the zero value and false.
func First[T any](s []T, fn func(T) bool) (T, bool) {
	for _, v := range s {
		if fn(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Contains reports whether some element satisfies fn.
func Contains[T any](s []T, fn func(T) bool) bool {
	_, ok := First(s, fn)
	return ok
}

// GroupBy buckets elements by the key fn produces.
func GroupBy[T any](s []T, fn func(T) string) map[string][]T {
	groups := make(map[string][]T)
	for _, v := range s {
		key := fn(v)
		groups[key] = append(groups[key], v)
	}
	return groups
}

// Unique drops duplicates, keeping the first occurrence of each value.
func Unique[T comparable](s []T) []T {
	seen := make(map[T]struct{}, len(s))
	var out []T
	for _, v := range s {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SortBy sorts s in place, ascending by less, and returns it for chaining.
func SortBy[T any](s []T, less func(a, b T) bool) []T {
	sort.Slice(s, func(i, j int) bool { return less(s[i], s[j]) })
	return s
}

// Reduce folds s left to right into a single value starting from initial.
func Reduce[T, R any](s []T, initial R, fn func(carry R, item T) R) R {
	acc := initial
	for _, v := range s {
		acc = fn(acc, v)
	}
	return acc
}

// Sum totals the float64 fn extracts from each element.
func Sum[T any](s []T, fn func(T) float64) float64 {
	var total float64
	for _, v := range s {
		total += fn(v)
	}
	return total
}

// KeyBy indexes s by the key fn produces. Later elements overwrite earlier
// ones that share a key.
func KeyBy[T any, K comparable](s []T, fn func(T) K) map[K]T {
	index := make(map[K]T, len(s))
	for _, v := range s {
		index[fn(v)] = v
	}
	return index
}

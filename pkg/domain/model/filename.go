package model

import (
	"strconv"
	"strings"
)

const paperExt = ".pdf"

// NameResolver assigns unique entry names within one archive. It is not safe
// for concurrent use; each build owns its own resolver.
type NameResolver struct {
	counts map[string]int
	taken  map[string]struct{}
}

// NewNameResolver creates an empty NameResolver
func NewNameResolver() *NameResolver {
	return &NameResolver{
		counts: make(map[string]int),
		taken:  make(map[string]struct{}),
	}
}

// Resolve returns the entry name for fileName and records it as used.
//
// The name gets a ".pdf" suffix unless it already ends with one (case
// insensitive). A repeated name becomes "<first part>_<n>.<second part>",
// split on ".", with n starting at 2. Names containing more than one dot
// therefore drop everything after their second dot on collision.
func (r *NameResolver) Resolve(fileName string) string {
	name := WithPaperExt(fileName)

	n, seen := r.counts[name]
	if !seen {
		r.counts[name] = 1
		if !r.isTaken(name) {
			r.take(name)
			return name
		}
		n = 1
	}

	for {
		n++
		candidate := collisionName(name, n)
		if !r.isTaken(candidate) {
			r.counts[name] = n
			r.take(candidate)
			return candidate
		}
	}
}

func (r *NameResolver) isTaken(name string) bool {
	_, ok := r.taken[name]
	return ok
}

func (r *NameResolver) take(name string) {
	r.taken[name] = struct{}{}
}

// WithPaperExt appends ".pdf" unless name already ends with it
func WithPaperExt(name string) string {
	if strings.HasSuffix(strings.ToLower(name), paperExt) {
		return name
	}
	return name + paperExt
}

func collisionName(name string, n int) string {
	parts := strings.Split(name, ".")
	// name always carries the paper extension, so there are at least two parts
	return parts[0] + "_" + strconv.Itoa(n) + "." + parts[1]
}

package mocks

import (
	"github.com/yegorian/legendary-empire/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing
type MockRandom struct {
	// IntnResults is a queue of results to return from Intn
	IntnResults []int
	intnIndex   int

	// PermResults is a queue of results to return from Perm
	PermResults [][]int
	permIndex   int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn returns the next queued result, or 0 if none remaining
func (r *MockRandom) Intn(n int) int {
	if r.intnIndex >= len(r.IntnResults) {
		return 0
	}
	result := r.IntnResults[r.intnIndex]
	r.intnIndex++
	return result
}

// Perm returns the next queued permutation, or the identity permutation
// if none remaining
func (r *MockRandom) Perm(n int) []int {
	if r.permIndex >= len(r.PermResults) {
		p := make([]int, n)
		for i := range p {
			p[i] = i
		}
		return p
	}
	result := r.PermResults[r.permIndex]
	r.permIndex++
	return result
}

// QueueIntn adds values to the Intn result queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.IntnResults = append(r.IntnResults, values...)
}

// QueuePerm adds a permutation to the Perm result queue
func (r *MockRandom) QueuePerm(p []int) {
	r.PermResults = append(r.PermResults, p)
}

package fixtures

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

const (
	letters      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerLetters = "abcdefghijklmnopqrstuvwxyz"
	digits       = "0123456789"
	addressChars = letters + digits + " "
)

var (
	Months      = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	Genders     = []string{"Male", "Female", "Other"}
	Hobbies     = []string{"Sports", "Reading", "Music"}
	Subjects    = []string{"Maths", "Physics", "Chemistry", "Biology", "English"}
	Departments = []string{"Engineering", "HR", "Sales", "Marketing"}

	// CitiesByState lists the cities the form offers for each state.
	CitiesByState = map[string][]string{
		"NCR":           {"Delhi", "Gurgaon", "Noida"},
		"Uttar Pradesh": {"Agra", "Lucknow", "Merrut"},
		"Haryana":       {"Karnal", "Panipat"},
	}
	states = []string{"NCR", "Uttar Pradesh", "Haryana"}
)

// Generator produces random test data from a fixed seed so a failing run can
// be replayed. It is safe for concurrent use.
type Generator struct {
	mu   sync.Mutex
	rng  *rand.Rand
	seed int64
}

// NewGenerator returns a Generator seeded with seed, or with the clock when seed is zero.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng:  rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1)),
		seed: seed,
	}
}

// Seed returns the seed in use.
func (g *Generator) Seed() int64 { return g.seed }

func (g *Generator) intN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.IntN(n)
}

// between returns a uniform integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.intN(hi-lo+1)
}

// String returns n characters drawn from alphabet.
func (g *Generator) String(n int, alphabet string) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[g.intN(len(alphabet))]
	}
	return string(b)
}

// Digits returns n decimal digits.
func (g *Generator) Digits(n int) string {
	return g.String(n, digits)
}

func (g *Generator) Email() string {
	return g.String(5, lowerLetters) + "@example.com"
}

// DateOfBirth returns a date formatted like "6 Jan 1990". Days stop at 28 so
// every month is valid.
func (g *Generator) DateOfBirth() string {
	return fmt.Sprintf("%d %s %d", g.between(1, 28), g.pick(Months), g.between(1980, 2000))
}

func (g *Generator) pick(from []string) string {
	return from[g.intN(len(from))]
}

// sample returns between 1 and len(from) distinct entries, keeping their order.
func (g *Generator) sample(from []string) []string {
	k := g.between(1, len(from))
	g.mu.Lock()
	idx := g.rng.Perm(len(from))[:k]
	g.mu.Unlock()
	slices.Sort(idx)

	out := make([]string, k)
	for i, j := range idx {
		out[i] = from[j]
	}
	return out
}

// PracticeForm returns a random, internally consistent form submission.
func (g *Generator) PracticeForm() PracticeForm {
	state := g.pick(states)
	return PracticeForm{
		FirstName:   g.String(8, letters),
		LastName:    g.String(10, letters),
		Email:       g.Email(),
		Mobile:      g.Digits(10),
		Address:     g.String(20, addressChars),
		DateOfBirth: g.DateOfBirth(),
		Gender:      g.pick(Genders),
		Hobbies:     g.sample(Hobbies),
		Subjects:    g.sample(Subjects),
		State:       state,
		City:        g.pick(CitiesByState[state]),
	}
}

// WebTableRecord returns a random table row.
func (g *Generator) WebTableRecord() WebTableRecord {
	return WebTableRecord{
		FirstName:  g.String(8, letters),
		LastName:   g.String(10, letters),
		Email:      g.Email(),
		Age:        g.between(18, 65),
		Salary:     g.between(30000, 150000),
		Department: g.pick(Departments),
	}
}

package battle

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand"
)

// Random is the only source of chance a battle consults.
type Random interface {
	Float64() float64
}

// DeterministicSeedValue derives a stable seed for label under rootSeed.
func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

// NewDeterministicRNG returns a generator that replays identically for the
// same rootSeed and label.
func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(DeterministicSeedValue(rootSeed, label)))
}

// NewRandomSeed returns a crypto-random seed.
func NewRandomSeed() (int64, error) {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// NewSessionRNG picks a deterministic generator when rootSeed is set and a
// crypto-seeded one otherwise.
func NewSessionRNG(rootSeed, battleID string) (*rand.Rand, error) {
	if rootSeed != "" {
		return NewDeterministicRNG(rootSeed, battleID), nil
	}
	seed, err := NewRandomSeed()
	if err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(seed)), nil
}

// Sequence replays fixed values, repeating the last one once exhausted. An
// empty sequence always yields 0.
type Sequence struct {
	values []float64
	next   int
	draws  int
}

func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Float64() float64 {
	s.draws++
	if len(s.values) == 0 {
		return 0
	}
	if s.next >= len(s.values) {
		return s.values[len(s.values)-1]
	}
	v := s.values[s.next]
	s.next++
	return v
}

// Draws reports how many values have been requested.
func (s *Sequence) Draws() int {
	return s.draws
}

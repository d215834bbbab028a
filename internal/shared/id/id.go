// Package id provides ULID generation for correlating shell log lines.
//
// IDs are prefixed by kind (dsp_*, inst_*, trc_*) so a grep over logs finds every
// line that belongs to one dispatch or one bundle install.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DispatchID identifies one pass of a request through the resolver chain
type DispatchID string

// InstallID identifies one update bundle install
type InstallID string

// TraceID identifies one bridge request
type TraceID string

const (
	DispatchPrefix = "dsp"
	InstallPrefix  = "inst"
	TracePrefix    = "trc"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(ulid.Monotonic(rand.Reader, 0))
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewDispatchID generates a new dispatch ID
func NewDispatchID() DispatchID {
	return DispatchID(Default().GenerateWithPrefix(DispatchPrefix))
}

// NewInstallID generates a new install ID
func NewInstallID() InstallID {
	return InstallID(Default().GenerateWithPrefix(InstallPrefix))
}

// NewTraceID generates a new trace ID
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

func (id DispatchID) String() string { return string(id) }
func (id InstallID) String() string  { return string(id) }
func (id TraceID) String() string    { return string(id) }

// Timestamp extracts the creation time from a prefixed or bare ID
func Timestamp(id string) (time.Time, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

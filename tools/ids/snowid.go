package ids

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// id layout, high to low: 41 bits of milliseconds since Epoch, 10 bits of
// node, 12 bits of sequence
const (
	nodeBits = 10
	seqBits  = 12
	tsBits   = 41

	MaxNode = 1<<nodeBits - 1
	maxSeq  = 1<<seqBits - 1
	maxTS   = 1<<tsBits - 1
)

var DefaultEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

type Options struct {
	NodeID int64
	Epoch  time.Time        // zero means DefaultEpoch
	Now    func() time.Time // zero means time.Now
}

// Generator hands out strictly increasing ids. When the wall clock stalls or
// steps back it keeps counting on its own last timestamp instead of waiting.
type Generator struct {
	mu    sync.Mutex
	opts  Options
	epoch int64
	last  int64 // ms since epoch of the last id
	seq   int64
}

func New(opts Options) (*Generator, error) {
	if opts.NodeID < 0 || opts.NodeID > MaxNode {
		return nil, fmt.Errorf("ids: node id %d out of range 0~%d", opts.NodeID, MaxNode)
	}
	if opts.Epoch.IsZero() {
		opts.Epoch = DefaultEpoch
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{opts: opts, epoch: opts.Epoch.UnixMilli(), last: -1}, nil
}

func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.opts.Now().UnixMilli() - g.epoch
	switch {
	case now > g.last:
		g.last, g.seq = now, 0
	case g.seq < maxSeq:
		g.seq++
	default:
		// sequence spent for this millisecond, borrow the next one
		g.last, g.seq = g.last+1, 0
	}
	return (g.last&maxTS)<<(nodeBits+seqBits) | g.opts.NodeID<<seqBits | g.seq
}

// Parts splits an id back into its timestamp, node and sequence.
func (g *Generator) Parts(id int64) (at time.Time, node, seq int64) {
	ms := id >> (nodeBits + seqBits)
	return time.UnixMilli(ms + g.epoch).UTC(), id >> seqBits & MaxNode, id & maxSeq
}

var (
	defaultMu  sync.RWMutex
	defaultGen = mustNew(Options{NodeID: 1})
)

func mustNew(o Options) *Generator {
	g, err := New(o)
	if err != nil {
		panic(err)
	}
	return g
}

// SetDefault replaces the process-wide generator; call it from main before serving.
func SetDefault(opts Options) error {
	g, err := New(opts)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultGen = g
	defaultMu.Unlock()
	return nil
}

// Generate returns a new id from the process-wide generator.
func Generate() int64 {
	defaultMu.RLock()
	g := defaultGen
	defaultMu.RUnlock()
	return g.Next()
}

func GenerateString() string {
	return strconv.FormatInt(Generate(), 10)
}

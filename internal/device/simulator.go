// Package device simulates the register bank and frame execution of a
// hardware codec so the control plane can be driven end to end.
package device

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/sigurn/crc16"
	"github.com/sigurn/crc8"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

// Encoded frame types reported in E_RET_FRAME_TYPE.
const (
	FrameTypeNotCoded uint32 = iota
	FrameTypeI
	FrameTypeP
	FrameTypeB
)

// Values of E_FRAME_INSERTION.
const (
	InsertNone     = 0
	InsertIFrame   = 1
	InsertNotCoded = 2
)

// Values of D_DISPLAY_STATUS.
const (
	DisplayDecodeOnly uint32 = iota
	DisplayDecodeAndShow
	DisplayShowOnly
	DisplayEmpty
)

// ErrCorruptStream is the error code reported for a stream whose checksum
// does not match.
const ErrCorruptStream = 0x0200

// Simulator is an in-memory register bank plus a toy codec. It implements
// bufctrl.RegisterBackend and is safe for concurrent use.
type Simulator struct {
	mu     sync.Mutex
	regs   map[uint32]uint32
	logger *slog.Logger

	encoded uint64
	inject  *uint32

	planeTable  *crc16.Table
	streamTable *crc8.Table
}

var _ bufctrl.RegisterBackend = (*Simulator)(nil)

// New creates a simulator with all registers zero.
func New(logger *slog.Logger) *Simulator {
	return &Simulator{
		regs:        make(map[uint32]uint32),
		logger:      logger,
		planeTable:  crc16.MakeTable(crc16.CRC16_CCITT_FALSE),
		streamTable: crc8.MakeTable(crc8.CRC8),
	}
}

// Read returns the register at addr; unwritten registers read as zero.
func (s *Simulator) Read(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[addr]
}

// Write stores value at addr.
func (s *Simulator) Write(addr, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[addr] = value
}

// Snapshot copies the register bank.
func (s *Simulator) Snapshot() map[uint32]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.regs)
}

// Reset clears every register and the frame counter.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.regs)
	s.encoded = 0
	s.inject = nil
}

// InjectError makes the next decoded frame report code in its error word.
func (s *Simulator) InjectError(code uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inject = &code
}

// field reads a register by field; callers hold mu.
func (s *Simulator) field(f bufctrl.Field) uint32 {
	addr, _ := f.Register()
	return s.regs[addr]
}

func (s *Simulator) setField(f bufctrl.Field, v uint32) {
	if addr, ok := f.Register(); ok {
		s.regs[addr] = v
	}
}

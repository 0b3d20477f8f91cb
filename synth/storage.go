package synth

import (
	"encoding"
	"fmt"
	"io"
	"log"
)

// Record is a fixed size structure kept in persistent storage.
type Record interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Reset()
}

// Device is the byte addressable memory behind a Storage, usually a file.
type Device interface {
	io.ReaderAt
	io.WriterAt
}

const eepromSize = 1024

func recordAddress(r Record) (int64, error) {
	switch r.(type) {
	case *Patch:
		return 0, nil
	case *SequencerSettings:
		return 192, nil
	case *Sequence:
		return 256, nil
	case *SystemSettings:
		return 1000, nil
	}
	return 0, fmt.Errorf("no storage address for %T", r)
}

// Storage keeps each record at a fixed address followed by an 8 bit
// checksum of its bytes.
type Storage struct {
	dev Device
}

func NewStorage(dev Device) *Storage {
	return &Storage{dev: dev}
}

func checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}

// Load reads a record. A record that can't be read or fails its checksum is
// replaced by the factory defaults and false is returned.
func (s *Storage) Load(r Record) bool {
	if err := s.load(r); err != nil {
		log.Printf("storage: %T: %v, using defaults", r, err)
		r.Reset()
		return false
	}
	return true
}

func (s *Storage) load(r Record) error {
	addr, err := recordAddress(r)
	if err != nil {
		return err
	}
	// All records have a fixed size, the current value tells how many
	// bytes to read.
	current, err := r.MarshalBinary()
	if err != nil {
		return err
	}
	buf := make([]byte, len(current)+1)
	if _, err := s.dev.ReadAt(buf, addr); err != nil {
		return err
	}
	data, sum := buf[:len(current)], buf[len(current)]
	if checksum(data) != sum {
		return fmt.Errorf("checksum mismatch")
	}
	return r.UnmarshalBinary(data)
}

func (s *Storage) Save(r Record) error {
	addr, err := recordAddress(r)
	if err != nil {
		return err
	}
	data, err := r.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode %T: %w", r, err)
	}
	data = append(data, checksum(data))
	if _, err := s.dev.WriteAt(data, addr); err != nil {
		return fmt.Errorf("save %T: %w", r, err)
	}
	return nil
}

func (s *Storage) ResetToFactoryDefaults(r Record) error {
	r.Reset()
	return s.Save(r)
}

// MemoryDevice is an erased in-memory eeprom.
type MemoryDevice struct {
	data [eepromSize]byte
}

func NewMemoryDevice() *MemoryDevice {
	var m MemoryDevice
	for i := range m.data {
		m.data[i] = 0xff
	}
	return &m
}

func (m *MemoryDevice) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= eepromSize {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemoryDevice) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > eepromSize {
		return 0, fmt.Errorf("write of %d bytes at %d: out of range", len(p), off)
	}
	return copy(m.data[off:], p), nil
}

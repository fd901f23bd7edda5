package device

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is the baud rate of the sensor bridge
const DefaultBaudRate = 115200

// SerialSensor reads "<temp>,<humi>" lines streamed by a sensor bridge over a
// serial port and serves the latest one
type SerialSensor struct {
	conn       io.ReadCloser
	staleAfter time.Duration
	now        func() time.Time

	mu      sync.RWMutex
	temp    float32
	humi    float32
	updated time.Time
	closed  bool
}

// OpenSerialSensor opens the serial port and starts reading samples
func OpenSerialSensor(port string, baudRate int, staleAfter time.Duration) (*SerialSensor, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	conn, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}

	log.Printf("SerialSensor: Opened %s at %d baud", port, baudRate)
	return NewLineSensor(conn, staleAfter), nil
}

// NewLineSensor reads sample lines from any stream
func NewLineSensor(conn io.ReadCloser, staleAfter time.Duration) *SerialSensor {
	s := &SerialSensor{
		conn:       conn,
		staleAfter: staleAfter,
		now:        time.Now,
	}
	go s.readSamples()
	return s
}

// Read returns the latest sample, or ErrNoReading when none arrived within staleAfter
func (s *SerialSensor) Read(ctx context.Context) (float32, float32, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.updated.IsZero() {
		return 0, 0, ErrNoReading
	}
	if s.staleAfter > 0 && s.now().Sub(s.updated) > s.staleAfter {
		return 0, 0, fmt.Errorf("%w: last sample %v ago", ErrNoReading, s.now().Sub(s.updated).Round(time.Millisecond))
	}
	return s.temp, s.humi, nil
}

// Close stops reading and closes the port
func (s *SerialSensor) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

func (s *SerialSensor) readSamples() {
	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		temp, humi, err := parseSampleLine(line)
		if err != nil {
			log.Printf("SerialSensor: Failed to parse line '%s': %v", line, err)
			continue
		}

		s.mu.Lock()
		s.temp, s.humi, s.updated = temp, humi, s.now()
		s.mu.Unlock()
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		s.mu.RLock()
		closed := s.closed
		s.mu.RUnlock()
		if !closed {
			log.Printf("SerialSensor: Error reading from serial port: %v", err)
		}
	}
}

// parseSampleLine parses "<temp>,<humi>", e.g. "23.4,56.7"
func parseSampleLine(line string) (float32, float32, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid line format: expected 2 comma-separated values, got %d", len(parts))
	}

	temp, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid temperature: %w", err)
	}
	humi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid humidity: %w", err)
	}
	return float32(temp), float32(humi), nil
}

package client

import "math"

// VADEvent flags a change in voice activity.
type VADEvent int

const (
	VADNone VADEvent = iota
	VADSpeechStart
	VADSpeechEnd
)

// Detector turns audio chunks into speech start/end events.
type Detector interface {
	Process(chunk []byte) VADEvent
	Speaking() bool
}

// EnergyDetector is a simple RMS-energy voice activity detector over 16-bit
// little-endian PCM. Hang windows debounce both edges so a breath pause does
// not end a segment and a pop does not start one.
type EnergyDetector struct {
	threshold float64
	startHang int // consecutive voiced chunks before speech starts
	endHang   int // consecutive silent chunks before speech ends

	speaking bool
	voiced   int
	silent   int
}

func NewEnergyDetector(threshold float64, startHang, endHang int) *EnergyDetector {
	if threshold <= 0 {
		threshold = 500
	}
	if startHang <= 0 {
		startHang = 1
	}
	if endHang <= 0 {
		endHang = 4
	}
	return &EnergyDetector{threshold: threshold, startHang: startHang, endHang: endHang}
}

func (d *EnergyDetector) Speaking() bool { return d.speaking }

func (d *EnergyDetector) Process(chunk []byte) VADEvent {
	voiced := rmsEnergy(chunk) >= d.threshold

	if voiced {
		d.voiced++
		d.silent = 0
		if !d.speaking && d.voiced >= d.startHang {
			d.speaking = true
			return VADSpeechStart
		}
		return VADNone
	}

	d.silent++
	d.voiced = 0
	if d.speaking && d.silent >= d.endHang {
		d.speaking = false
		return VADSpeechEnd
	}
	return VADNone
}

func rmsEnergy(chunk []byte) float64 {
	n := len(chunk) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(uint16(chunk[2*i]) | uint16(chunk[2*i+1])<<8)
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(n))
}

// AlwaysOnDetector treats every chunk as speech. Used for compressed
// encodings where the raw samples are not visible to the client.
type AlwaysOnDetector struct{ started bool }

func (d *AlwaysOnDetector) Speaking() bool { return d.started }

func (d *AlwaysOnDetector) Process(chunk []byte) VADEvent {
	if !d.started {
		d.started = true
		return VADSpeechStart
	}
	return VADNone
}

// Package sensor simulates the environment probes attached to a station.
package sensor

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/Luismorlan/qrchain/model"
)

var ErrInvalidRange = errors.New("sensor: invalid range")

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `yaml:"min" env:"MIN"`
	Max float64 `yaml:"max" env:"MAX"`
}

func (r Range) validate(name string) error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min > r.Max {
		return fmt.Errorf("%w: %s [%v, %v]", ErrInvalidRange, name, r.Min, r.Max)
	}
	return nil
}

// Ranges bounds every simulated quantity.
type Ranges struct {
	Temperature Range `yaml:"temperature" envPrefix:"TEMPERATURE_"`
	Humidity    Range `yaml:"humidity" envPrefix:"HUMIDITY_"`
	Latitude    Range `yaml:"latitude" envPrefix:"LATITUDE_"`
	Longitude   Range `yaml:"longitude" envPrefix:"LONGITUDE_"`
}

// DefaultRanges covers cold-chain temperatures around central Mexico.
func DefaultRanges() Ranges {
	return Ranges{
		Temperature: Range{Min: 2.0, Max: 30.0},
		Humidity:    Range{Min: 20.0, Max: 95.0},
		Latitude:    Range{Min: 19.0, Max: 20.5},
		Longitude:   Range{Min: -101.5, Max: -99.5},
	}
}

// Validate rejects inverted or NaN bounds.
func (r Ranges) Validate() error {
	if err := r.Temperature.validate("temperature"); err != nil {
		return err
	}
	if err := r.Humidity.validate("humidity"); err != nil {
		return err
	}
	if err := r.Latitude.validate("latitude"); err != nil {
		return err
	}
	return r.Longitude.validate("longitude")
}

// Simulator draws uniform readings. It is safe for concurrent use.
type Simulator struct {
	ranges Ranges
	m      sync.Mutex
	rnd    *rand.Rand
}

// NewSimulator seeds from the clock when seed is 0.
func NewSimulator(ranges Ranges, seed int64) (*Simulator, error) {
	if err := ranges.Validate(); err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		ranges: ranges,
		rnd:    rand.New(rand.NewSource(seed)),
	}, nil
}

// Sample returns one reading. Temperature and humidity keep 2 decimals,
// coordinates keep 6.
func (s *Simulator) Sample() model.Reading {
	s.m.Lock()
	defer s.m.Unlock()
	return model.Reading{
		Temperature: round(s.uniform(s.ranges.Temperature), 2),
		Humidity:    round(s.uniform(s.ranges.Humidity), 2),
		Latitude:    round(s.uniform(s.ranges.Latitude), 6),
		Longitude:   round(s.uniform(s.ranges.Longitude), 6),
	}
}

func (s *Simulator) uniform(r Range) float64 {
	return r.Min + (r.Max-r.Min)*s.rnd.Float64()
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

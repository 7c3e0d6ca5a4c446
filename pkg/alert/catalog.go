package alert

import "fmt"

// Waveform is an oscillator shape.
type Waveform string

const (
	Sine     Waveform = "sine"
	Square   Waveform = "square"
	Triangle Waveform = "triangle"
	Sawtooth Waveform = "sawtooth"
)

// Tone is one oscillator event within a profile. Times are in seconds from
// the start of the profile. A non-zero SweepTo ramps the frequency
// exponentially to that value over SweepTime.
type Tone struct {
	Frequency float64  `json:"frequency"`
	Start     float64  `json:"start"`
	Duration  float64  `json:"duration"`
	Volume    float64  `json:"volume"`
	Waveform  Waveform `json:"waveform"`
	SweepTo   float64  `json:"sweepTo,omitempty"`
	SweepTime float64  `json:"sweepTime,omitempty"`
}

// Profile is a named alert cue.
type Profile struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Tones []Tone `json:"tones"`
}

// Length returns the time at which the last tone ends.
func (p Profile) Length() float64 {
	var end float64
	for _, t := range p.Tones {
		if e := t.Start + t.Duration; e > end {
			end = e
		}
	}
	return end
}

// ProfileCount is the number of alert profiles. Valid indices are
// 0..ProfileCount-1.
const ProfileCount = 5

// Catalog is the fixed set of alert profiles, indexed by selectedSound.
var Catalog = [ProfileCount]Profile{
	{
		Index: 0,
		Name:  "Acorde harmonioso longo",
		Tones: []Tone{
			{Frequency: 523.25, Start: 0, Duration: 1.2, Volume: 0.3, Waveform: Sine},
			{Frequency: 659.25, Start: 0, Duration: 1.2, Volume: 0.2, Waveform: Sine},
			{Frequency: 783.99, Start: 0, Duration: 1.2, Volume: 0.2, Waveform: Sine},
		},
	},
	{
		Index: 1,
		Name:  "Arpejo digital ascendente",
		Tones: []Tone{
			{Frequency: 440, Start: 0, Duration: 0.2, Volume: 0.3, Waveform: Square},
			{Frequency: 554.37, Start: 0.1, Duration: 0.2, Volume: 0.3, Waveform: Square},
			{Frequency: 659.25, Start: 0.2, Duration: 0.2, Volume: 0.3, Waveform: Square},
			{Frequency: 880, Start: 0.3, Duration: 0.4, Volume: 0.3, Waveform: Square},
		},
	},
	{
		Index: 2,
		Name:  "Campainha eletrônica",
		Tones: []Tone{
			{Frequency: 1200, Start: 0, Duration: 1.0, Volume: 0.4, Waveform: Triangle},
			{Frequency: 1200, Start: 0.2, Duration: 0.8, Volume: 0.3, Waveform: Triangle},
			{Frequency: 1500, Start: 0.4, Duration: 0.6, Volume: 0.2, Waveform: Sine},
		},
	},
	{
		Index: 3,
		Name:  "Chamada bifásica",
		Tones: []Tone{
			{Frequency: 800, Start: 0, Duration: 0.4, Volume: 0.4, Waveform: Sawtooth},
			{Frequency: 1100, Start: 0.45, Duration: 0.8, Volume: 0.4, Waveform: Square},
		},
	},
	{
		Index: 4,
		Name:  "Sweep industrial longo",
		Tones: []Tone{
			{Frequency: 400, Start: 0, Duration: 1.2, Volume: 0.4, Waveform: Sawtooth, SweepTo: 1600, SweepTime: 1.0},
		},
	},
}

// fallbackProfile is played for an index outside the catalog.
var fallbackProfile = Profile{
	Index: -1,
	Name:  "Bipe",
	Tones: []Tone{{Frequency: 800, Start: 0, Duration: 0.5, Volume: 0.3, Waveform: Sine}},
}

// ValidProfile reports whether index addresses a catalog entry.
func ValidProfile(index int) bool {
	return index >= 0 && index < ProfileCount
}

// Lookup returns the profile at index, or a short beep with an error when
// index is out of range.
func Lookup(index int) (Profile, error) {
	if !ValidProfile(index) {
		return fallbackProfile, fmt.Errorf("alert: profile %d out of range 0..%d", index, ProfileCount-1)
	}
	return Catalog[index], nil
}

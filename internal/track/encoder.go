package track

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// SMF encoding constants.
const (
	// ticksPerQuarter is the SMF division (pulses per quarter note).
	ticksPerQuarter = 480

	// tempoMicroseconds is the tempo meta value: 500000 µs per quarter
	// note, i.e. 120 BPM. With division 480 this makes one second equal
	// 960 ticks.
	tempoMicroseconds = 500000

	ticksPerSecond = 960

	// defaultVelocity is used when a note event omits velocity.
	defaultVelocity = 0.8

	// maxNotes bounds a single composition request.
	maxNotes = 10000

	// maxNoteEndSeconds bounds a note's end time. Ticks are stored as
	// uint32, so unbounded times would wrap and reorder events.
	maxNoteEndSeconds = 3600
)

// Encode renders note events into a format-0 Standard MIDI File.
//
// The events are placed on channel 0 with a single program-change for the
// given instrument, a fixed 120 BPM tempo, and note on/off pairs derived
// from each event's onset and duration. Validation failures return
// ErrBadInstrument, ErrBadNote, ErrEmptyTrack, or ErrTooManyNotes.
func Encode(instrument string, notes []NoteEvent) ([]byte, error) {
	if len(notes) == 0 {
		return nil, ErrEmptyTrack
	}
	if len(notes) > maxNotes {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrTooManyNotes, len(notes), maxNotes)
	}

	program, err := instrumentProgram(instrument)
	if err != nil {
		return nil, err
	}

	events, err := buildEvents(notes)
	if err != nil {
		return nil, err
	}

	var trk bytes.Buffer

	// Tempo meta event at tick 0: FF 51 03 tt tt tt
	trk.Write([]byte{0x00, 0xFF, 0x51, 0x03})
	trk.Write([]byte{
		byte(tempoMicroseconds >> 16),
		byte(tempoMicroseconds >> 8 & 0xFF),
		byte(tempoMicroseconds & 0xFF),
	})

	// Program change on channel 0 at tick 0: C0 pp
	trk.Write([]byte{0x00, 0xC0, program})

	// Note events, delta-encoded
	prev := uint32(0)
	for _, ev := range events {
		trk.Write(encodeVLQ(ev.tick - prev))
		trk.Write(ev.message)
		prev = ev.tick
	}

	// End of track: FF 2F 00
	trk.Write([]byte{0x00, 0xFF, 0x2F, 0x00})

	var out bytes.Buffer

	// Header chunk: MThd, length 6, format 0, one track, division
	out.WriteString("MThd")
	binary.Write(&out, binary.BigEndian, uint32(6))               //nolint:errcheck // bytes.Buffer never fails
	binary.Write(&out, binary.BigEndian, uint16(0))               //nolint:errcheck // bytes.Buffer never fails
	binary.Write(&out, binary.BigEndian, uint16(1))               //nolint:errcheck // bytes.Buffer never fails
	binary.Write(&out, binary.BigEndian, uint16(ticksPerQuarter)) //nolint:errcheck // bytes.Buffer never fails

	// Track chunk: MTrk, length, data
	out.WriteString("MTrk")
	binary.Write(&out, binary.BigEndian, uint32(trk.Len())) //nolint:errcheck // bytes.Buffer never fails
	out.Write(trk.Bytes())

	return out.Bytes(), nil
}

// midiEvent is a channel message scheduled at an absolute tick.
type midiEvent struct {
	tick uint32
	// order breaks ties at the same tick: note-offs (0) before note-ons (1),
	// so re-struck notes are not cut short.
	order   int
	message []byte
}

// buildEvents expands note events into sorted on/off channel messages.
func buildEvents(notes []NoteEvent) ([]midiEvent, error) {
	events := make([]midiEvent, 0, len(notes)*2)

	for i, n := range notes {
		pitch, err := noteNumber(n.Note)
		if err != nil {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}

		if n.Time < 0 || n.Duration <= 0 {
			return nil, fmt.Errorf("note %d: %w: time must be non-negative and duration positive", i, ErrBadNote)
		}
		if n.Time+n.Duration > maxNoteEndSeconds {
			return nil, fmt.Errorf("note %d: %w: note ends after %d seconds", i, ErrBadNote, maxNoteEndSeconds)
		}

		velocity := n.Velocity
		if velocity == 0 {
			velocity = defaultVelocity
		}
		vel := byte(math.Round(math.Min(math.Max(velocity, 0), 1) * 127))
		if vel == 0 {
			vel = 1 // velocity 0 means note-off in running status
		}

		on := uint32(math.Round(n.Time * ticksPerSecond))
		off := uint32(math.Round((n.Time + n.Duration) * ticksPerSecond))

		events = append(events,
			midiEvent{tick: on, order: 1, message: []byte{0x90, pitch, vel}},
			midiEvent{tick: off, order: 0, message: []byte{0x80, pitch, 0x00}},
		)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].order < events[j].order
	})

	return events, nil
}

// encodeVLQ encodes a delta time as a MIDI variable-length quantity.
func encodeVLQ(v uint32) []byte {
	buf := []byte{byte(v & 0x7F)}
	v >>= 7
	for v > 0 {
		buf = append([]byte{byte(v&0x7F) | 0x80}, buf...)
		v >>= 7
	}
	return buf
}

// semitones maps pitch letters to semitone offsets within an octave.
var semitones = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// noteNumber converts a pitch name like "C4", "F#3", or "Bb5" to a MIDI
// note number. Middle C ("C4") is 60.
func noteNumber(name string) (byte, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadNote, name)
	}

	letter := name[0]
	if letter >= 'a' && letter <= 'g' {
		letter -= 'a' - 'A'
	}
	base, ok := semitones[letter]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadNote, name)
	}

	rest := name[1:]
	switch rest[0] {
	case '#':
		base++
		rest = rest[1:]
	case 'b':
		base--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadNote, name)
	}

	number := 12*(octave+1) + base
	if number < 0 || number > 127 {
		return 0, fmt.Errorf("%w: %q out of MIDI range", ErrBadNote, name)
	}
	return byte(number), nil
}

// instrumentProgram resolves a General MIDI instrument name to its program
// number. Matching is case-insensitive.
func instrumentProgram(name string) (byte, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for i, n := range gmInstruments {
		if strings.ToLower(n) == needle {
			return byte(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrBadInstrument, name)
}

// gmInstruments is the General MIDI level 1 instrument table; the index is
// the program number.
var gmInstruments = []string{
	"Acoustic Grand Piano", "Bright Acoustic Piano", "Electric Grand Piano", "Honky-tonk Piano",
	"Electric Piano 1", "Electric Piano 2", "Harpsichord", "Clavinet",
	"Celesta", "Glockenspiel", "Music Box", "Vibraphone",
	"Marimba", "Xylophone", "Tubular Bells", "Dulcimer",
	"Drawbar Organ", "Percussive Organ", "Rock Organ", "Church Organ",
	"Reed Organ", "Accordion", "Harmonica", "Tango Accordion",
	"Acoustic Guitar (nylon)", "Acoustic Guitar (steel)", "Electric Guitar (jazz)", "Electric Guitar (clean)",
	"Electric Guitar (muted)", "Overdriven Guitar", "Distortion Guitar", "Guitar Harmonics",
	"Acoustic Bass", "Electric Bass (finger)", "Electric Bass (pick)", "Fretless Bass",
	"Slap Bass 1", "Slap Bass 2", "Synth Bass 1", "Synth Bass 2",
	"Violin", "Viola", "Cello", "Contrabass",
	"Tremolo Strings", "Pizzicato Strings", "Orchestral Harp", "Timpani",
	"String Ensemble 1", "String Ensemble 2", "Synth Strings 1", "Synth Strings 2",
	"Choir Aahs", "Voice Oohs", "Synth Choir", "Orchestra Hit",
	"Trumpet", "Trombone", "Tuba", "Muted Trumpet",
	"French Horn", "Brass Section", "Synth Brass 1", "Synth Brass 2",
	"Soprano Sax", "Alto Sax", "Tenor Sax", "Baritone Sax",
	"Oboe", "English Horn", "Bassoon", "Clarinet",
	"Piccolo", "Flute", "Recorder", "Pan Flute",
	"Blown Bottle", "Shakuhachi", "Whistle", "Ocarina",
	"Lead 1 (square)", "Lead 2 (sawtooth)", "Lead 3 (calliope)", "Lead 4 (chiff)",
	"Lead 5 (charang)", "Lead 6 (voice)", "Lead 7 (fifths)", "Lead 8 (bass + lead)",
	"Pad 1 (new age)", "Pad 2 (warm)", "Pad 3 (polysynth)", "Pad 4 (choir)",
	"Pad 5 (bowed)", "Pad 6 (metallic)", "Pad 7 (halo)", "Pad 8 (sweep)",
	"FX 1 (rain)", "FX 2 (soundtrack)", "FX 3 (crystal)", "FX 4 (atmosphere)",
	"FX 5 (brightness)", "FX 6 (goblins)", "FX 7 (echoes)", "FX 8 (sci-fi)",
	"Sitar", "Banjo", "Shamisen", "Koto",
	"Kalimba", "Bag pipe", "Fiddle", "Shanai",
	"Tinkle Bell", "Agogo", "Steel Drums", "Woodblock",
	"Taiko Drum", "Melodic Tom", "Synth Drum", "Reverse Cymbal",
	"Guitar Fret Noise", "Breath Noise", "Seashore", "Bird Tweet",
	"Telephone Ring", "Helicopter", "Applause", "Gunshot",
}

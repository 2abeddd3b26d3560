// Package mood defines the fixed mood vocabulary and the mapping from raw
// classifier labels to coarse moods.
package mood

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// ErrUnknownMood is returned when a name does not match any mood.
var ErrUnknownMood = errors.New("unknown mood")

// Mood is one of the four coarse moods a playlist exists for.
type Mood int

// Declared order matters: Match and Moods both walk it.
const (
	Happy Mood = iota
	Sad
	Neutral
	Surprise
)

var all = []Mood{Happy, Sad, Neutral, Surprise}

type presentation struct {
	name    string
	emoji   string
	message string
	hue     float64 // degrees, used for detection overlays
}

var presentations = [...]presentation{
	Happy:    {name: "Happy", emoji: "🎉", message: "Keep smiling, the world shines with you 💛", hue: 120},
	Sad:      {name: "Sad", emoji: "🌧️", message: "It's okay to feel sad, brighter days are ahead 💙", hue: 220},
	Neutral:  {name: "Neutral", emoji: "😌", message: "Stay calm and enjoy the moment 😌", hue: 45},
	Surprise: {name: "Surprise", emoji: "😲", message: "Wow! Life is full of surprises ✨", hue: 300},
}

// Moods returns every mood in declared order.
func Moods() []Mood {
	out := make([]Mood, len(all))
	copy(out, all)
	return out
}

// Valid reports whether m is one of the declared moods.
func (m Mood) Valid() bool {
	return m >= Happy && m <= Surprise
}

func (m Mood) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mood(%d)", int(m))
	}
	return presentations[m].name
}

// Slug is the lower-case name used in URLs.
func (m Mood) Slug() string {
	return strings.ToLower(m.String())
}

// Emoji returns the emoji shown next to a result.
func (m Mood) Emoji() string {
	if !m.Valid() {
		return ""
	}
	return presentations[m].emoji
}

// Message returns the static encouragement message for the mood.
func (m Mood) Message() string {
	if !m.Valid() {
		return ""
	}
	return presentations[m].message
}

// Hue returns the overlay hue for the mood in degrees.
func (m Mood) Hue() float64 {
	if !m.Valid() {
		return 0
	}
	return presentations[m].hue
}

// Parse resolves a mood by name, ignoring case and surrounding space.
func Parse(name string) (Mood, error) {
	name = strings.TrimSpace(name)
	for _, m := range all {
		if strings.EqualFold(m.String(), name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMood, name)
}

// Random returns a uniformly random mood.
func Random(r *rand.Rand) Mood {
	return all[r.IntN(len(all))]
}

// Match returns the first mood, in declared order, whose name appears in the
// lower-cased text.
func Match(text string) (Mood, bool) {
	lower := strings.ToLower(text)
	for _, m := range all {
		if strings.Contains(lower, strings.ToLower(m.String())) {
			return m, true
		}
	}
	return 0, false
}

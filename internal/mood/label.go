package mood

import (
	"fmt"
	"math/rand/v2"
)

// RawLabel is an emotion class produced by the classifier. The numeric value
// is the index of the class in the classifier's score vector.
type RawLabel int

const (
	Angry RawLabel = iota
	Disgust
	Fear
	RawHappy
	RawNeutral
	RawSad
	RawSurprise
)

// NumRawLabels is the length of a classifier score vector.
const NumRawLabels = 7

var rawNames = [NumRawLabels]string{
	Angry:       "Angry",
	Disgust:     "Disgust",
	Fear:        "Fear",
	RawHappy:    "Happy",
	RawNeutral:  "Neutral",
	RawSad:      "Sad",
	RawSurprise: "Surprise",
}

// rawToMood is total by construction: one entry per raw label.
// Disgust and Fear both read as Surprise.
var rawToMood = [NumRawLabels]Mood{
	Angry:       Sad,
	Disgust:     Surprise,
	Fear:        Surprise,
	RawHappy:    Happy,
	RawNeutral:  Neutral,
	RawSad:      Sad,
	RawSurprise: Surprise,
}

// RawLabels returns every raw label in score-vector order.
func RawLabels() []RawLabel {
	out := make([]RawLabel, NumRawLabels)
	for i := range out {
		out[i] = RawLabel(i)
	}
	return out
}

// Valid reports whether l indexes a known class.
func (l RawLabel) Valid() bool {
	return l >= 0 && int(l) < NumRawLabels
}

func (l RawLabel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("RawLabel(%d)", int(l))
	}
	return rawNames[l]
}

// Mood maps the raw label to its coarse mood.
func (l RawLabel) Mood() Mood {
	if !l.Valid() {
		return Neutral
	}
	return rawToMood[l]
}

// LabelFromScores returns the argmax of a classifier score vector.
// The first maximum wins on equal scores.
func LabelFromScores(scores []float32) (RawLabel, error) {
	if len(scores) != NumRawLabels {
		return 0, fmt.Errorf("expected %d scores, got %d", NumRawLabels, len(scores))
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return RawLabel(best), nil
}

// RandomLabel returns a uniformly random raw label.
func RandomLabel(r *rand.Rand) RawLabel {
	return RawLabel(r.IntN(NumRawLabels))
}

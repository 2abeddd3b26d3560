package mood

// Vote returns the most frequent mood in samples. Ties go to the mood that
// appeared first. It returns false when samples is empty.
func Vote(samples []Mood) (Mood, bool) {
	if len(samples) == 0 {
		return 0, false
	}

	counts := make(map[Mood]int, len(all))
	var order []Mood
	for _, m := range samples {
		if counts[m] == 0 {
			order = append(order, m)
		}
		counts[m]++
	}

	winner := order[0]
	for _, m := range order[1:] {
		// Strictly greater keeps the earlier mood on a tie.
		if counts[m] > counts[winner] {
			winner = m
		}
	}
	return winner, true
}

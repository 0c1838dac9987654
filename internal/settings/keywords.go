package settings

// Keywords are the locale-sensitive match lists used by the translators and
// the junk filter. All matching is case-insensitive substring.
type Keywords struct {
	Answer  []string
	HangUp  []string
	Speaker []string
	Arrival []string
	Finish  []string
	Junk    []string
}

// DefaultKeywords returns the built-in English lists. Config overrides
// replace a list wholesale, never merge.
func DefaultKeywords() Keywords {
	return Keywords{
		Answer:  []string{"answer", "accept", "pick up"},
		HangUp:  []string{"hang up", "decline", "end call", "reject", "dismiss"},
		Speaker: []string{"speaker", "mute", "loudspeaker"},
		Arrival: []string{"arrive", "arrival", "eta", "min left"},
		Finish:  []string{"complete", "finished", "done", "downloaded"},
		Junk: []string{
			"running in background",
			"tap for more info",
			"displaying over other apps",
		},
	}
}

package translate

import (
	"regexp"
	"strings"

	"islandbridge/internal/model"
	logx "islandbridge/pkg/logx"
)

// navPlaceholder replaces an instruction that survives every fallback empty.
const navPlaceholder = "Navigation"

var (
	// Clock times ("10:45") and duration remainders ("1h 20m").
	timeRe = regexp.MustCompile(`(?i)(\d{1,2}:\d{2})|(\d+h\s*\d+m)`)
	// A distance leads the string: number, optional decimals, unit.
	distanceRe = regexp.MustCompile(`(?i)^\d+([,.]\d+)?\s*(m|km|ft|mi|yd|yards|miles|meters)`)
)

var navSeparators = []string{"·", "•", "-"}

// NavFields is the parsed navigation triple.
type NavFields struct {
	Instruction string
	Distance    string
	ETA         string
}

// NavTranslator separates instruction, distance, and ETA from the unreliable
// free-text fields navigation sources emit, then projects the triple onto
// the configured left/right layout.
type NavTranslator struct {
	base
}

func NewNavTranslator(factory Factory, log logx.Logger) *NavTranslator {
	return &NavTranslator{base: newBase(factory, log)}
}

func isTimeInfo(s string, arrival []string) bool {
	return timeRe.MatchString(s) || containsAny(s, arrival)
}

func isDistanceInfo(s string) bool {
	return distanceRe.MatchString(s)
}

// ParseNav runs the extraction heuristics. Deterministic: the same inputs
// always yield the same triple.
func ParseNav(title, text, bigText, subText string, arrival []string) NavFields {
	title = collapseLine(title)
	text = collapseLine(text)
	bigText = collapseLine(bigText)
	subText = collapseLine(subText)

	var out NavFields

	// ETA first: prefer the subtext, fall back to the text field when it is
	// time-like but not distance-like.
	if isTimeInfo(subText, arrival) {
		out.ETA = subText
	} else if isTimeInfo(text, arrival) && !isDistanceInfo(text) {
		out.ETA = text
	}

	// Pick the string most likely to carry "<distance> <sep> <instruction>".
	candidates := make([]string, 0, 3)
	for _, s := range []string{bigText, title, text} {
		if s != "" {
			candidates = append(candidates, s)
		}
	}
	contentSource := ""
	for _, s := range candidates {
		if hasAnySeparator(s) && isDistanceInfo(s) {
			contentSource = s
			break
		}
	}
	if contentSource == "" {
		for _, s := range candidates {
			if isDistanceInfo(s) {
				contentSource = s
				break
			}
		}
	}
	if contentSource == "" {
		if title != "" {
			contentSource = title
		} else {
			contentSource = text
		}
	}

	// Separator split: left side must look like a distance.
	split := false
	for _, sep := range navSeparators {
		if !strings.Contains(contentSource, sep) {
			continue
		}
		parts := strings.SplitN(contentSource, sep, 2)
		if len(parts) < 2 {
			continue
		}
		p0 := strings.TrimSpace(parts[0])
		p1 := strings.TrimSpace(parts[1])
		if isDistanceInfo(p0) {
			out.Distance = p0
			out.Instruction = p1
			split = true
			break
		}
	}

	// Prefix split: distance leads, remainder is the instruction. A bare
	// distance with no remainder is not a successful split; keep the
	// distance and let the fallbacks find an instruction.
	if !split && isDistanceInfo(contentSource) {
		if loc := distanceRe.FindStringIndex(contentSource); loc != nil && loc[0] == 0 {
			out.Distance = strings.TrimSpace(contentSource[:loc[1]])
			rest := strings.TrimLeft(contentSource[loc[1]:], "·•- \t")
			if rest != "" {
				out.Instruction = rest
				split = true
			}
		}
	}

	// Length fallback: with two unstructured fields the longer one is almost
	// always the instruction.
	if !split {
		switch {
		case title != "" && text != "":
			if len(text) > len(title) {
				out.Instruction = text
				out.Distance = title
			} else {
				out.Instruction = title
				out.Distance = text
			}
		case contentSource != out.Distance:
			out.Instruction = contentSource
		}
	}

	if out.Instruction == "" {
		out.Instruction = navPlaceholder
	}
	return out
}

func hasAnySeparator(s string) bool {
	for _, sep := range navSeparators {
		if strings.Contains(s, sep) {
			return true
		}
	}
	return false
}

// project maps one layout side onto the parsed triple.
func (f NavFields) project(c model.NavContent) PanelText {
	switch c {
	case model.NavInstruction:
		return PanelText{Primary: f.Instruction}
	case model.NavDistance:
		return PanelText{Primary: f.Distance}
	case model.NavETA:
		return PanelText{Primary: f.ETA}
	case model.NavDistanceETA:
		return PanelText{Primary: f.Distance, Secondary: f.ETA}
	default: // NavNone
		return PanelText{}
	}
}

func (t *NavTranslator) Translate(ev model.NotificationEvent, picKey string, tc Context) model.DisplayPayload {
	fields := ParseNav(ev.Title, ev.Text, ev.BigText, ev.SubText, tc.Keywords.Arrival)

	if t.log.Enabled(logx.LevelDebug) {
		t.log.Debug("nav parsed",
			logx.String("instruction", fields.Instruction),
			logx.String("distance", fields.Distance),
			logx.String("eta", fields.ETA),
		)
	}

	b := t.newBuilder(ev, fields.Instruction)
	b.SetConfig(tc.Config)

	b.AddPicture(resolveIcon(ev, picKey))
	b.AddPicture(transparentPicture(hiddenPixelKey))
	b.AddPicture(model.Picture{Key: navStartKey, ResourceRef: navStartRef})
	b.AddPicture(model.Picture{Key: navEndKey, ResourceRef: navEndRef})

	// Actions keep their host titles; white text on the neutral slot.
	actions := extractActions(ev, modeBoth)
	for i := range actions {
		actions[i].desc.TitleARGB = colorWhite
	}
	actionKeys := addActions(b, actions)

	// Shade line: instruction as title, ETA and distance below. Single
	// spaces keep the slots visibly reserved when a field is missing.
	b.SetBaseInfo(fields.Instruction, orSpace(fields.ETA), orSpace(fields.Distance), picKey, actionKeys)

	if ev.Progress.Max > 0 {
		b.SetProgressBar(ev.Progress.Percent(), colorGreen, navStartKey, navEndKey)
	}

	left := &Panel{PicKey: picKey, Text: fields.project(tc.NavLayout.Left)}
	right := &Panel{PicKey: hiddenPixelKey, Text: fields.project(tc.NavLayout.Right)}
	b.SetExpanded(left, right)
	b.SetCompact(picKey)

	return b.Build()
}

func orSpace(s string) string {
	if s == "" {
		return " "
	}
	return s
}

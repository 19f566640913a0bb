package summary

import (
	"strings"
)

type section int

const (
	sectionNone section = iota
	sectionKeyPoints
	sectionDecisions
	sectionActionItems
	sectionParticipants
)

var bulletPrefixes = []string{"- ", "• ", "* "}

// Parse extracts the bulleted sections of a structured summary. Text keeps
// the input verbatim. Lines that do not fit the expected layout are ignored,
// so Parse never fails.
func Parse(text string) Result {
	res := Result{
		Summary:      text,
		KeyPoints:    []string{},
		Decisions:    []string{},
		ActionItems:  []string{},
		Participants: []string{},
	}

	current := sectionNone
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.Contains(line, "Points Clés") || strings.Contains(line, "Key Points"):
			current = sectionKeyPoints
		case strings.Contains(line, "Décisions") || strings.Contains(line, "Decisions"):
			current = sectionDecisions
		case strings.Contains(line, "Actions") || strings.Contains(line, "Action Items"):
			current = sectionActionItems
		case strings.Contains(line, "Participants"):
			current = sectionParticipants
		case strings.HasPrefix(line, "##"):
			current = sectionNone
		case current != sectionNone:
			item, ok := bulletItem(line)
			if !ok {
				continue
			}
			switch current {
			case sectionKeyPoints:
				res.KeyPoints = append(res.KeyPoints, item)
			case sectionDecisions:
				res.Decisions = append(res.Decisions, item)
			case sectionActionItems:
				res.ActionItems = append(res.ActionItems, item)
			case sectionParticipants:
				res.Participants = append(res.Participants, item)
			}
		}
	}
	return res
}

func bulletItem(line string) (string, bool) {
	for _, p := range bulletPrefixes {
		if strings.HasPrefix(line, p) {
			item := strings.TrimSpace(line[len(p):])
			return item, item != ""
		}
	}
	return "", false
}

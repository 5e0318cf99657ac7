package usecases

import (
	"strings"
	"unicode"

	"llamachat/internal/entities"
)

const (
	titleSourceMessages = 3
	titleShortWords     = 5
	titleShortChars     = 50
	titleKeyWords       = 4
	titleMaxChars       = 40
	titleCutChars       = 37
	titlePunctuation    = ".,!?;:"
)

var titleStopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the a an and or but in on at to for of with by is are was were be been
		have has had do does did will would could should can may might this that these those
		i you he she it we they me him her us them my your his its our their`) {
		titleStopwords[w] = struct{}{}
	}
}

// GenerateTitle derives a short session title from the first user messages.
// It is deterministic: the same messages always produce the same title.
func GenerateTitle(messages []entities.Message) string {
	var userMessages []string
	for _, m := range messages {
		if m.Role != entities.MessageRoleUser {
			continue
		}
		userMessages = append(userMessages, m.Content)
		if len(userMessages) == titleSourceMessages {
			break
		}
	}
	if len(userMessages) == 0 {
		return entities.DefaultSessionTitle
	}

	combined := strings.Join(userMessages, " ")
	words := strings.Fields(combined)

	var title string
	if len(words) <= titleShortWords {
		title = strings.TrimSpace(truncateRunes(combined, titleShortChars))
	} else {
		var keyWords []string
		for _, w := range words {
			trimmed := strings.Trim(w, titlePunctuation)
			key := strings.Trim(strings.ToLower(w), titlePunctuation)
			if _, stop := titleStopwords[key]; stop {
				continue
			}
			if len([]rune(trimmed)) <= 2 {
				continue
			}
			keyWords = append(keyWords, key)
		}
		if len(keyWords) > 0 {
			title = titleCase(strings.Join(firstN(keyWords, titleKeyWords), " "))
		} else {
			title = titleCase(strings.Join(firstN(words, titleKeyWords), " "))
		}
	}

	title = strings.TrimSpace(title)
	if len([]rune(title)) > titleMaxChars {
		title = truncateRunes(title, titleCutChars) + "..."
	}
	if title == "" {
		return entities.DefaultSessionTitle
	}
	return title
}

// titleCase upper-cases a letter that follows a non-letter and lower-cases the rest,
// so "don't" becomes "Don'T" and "3d" becomes "3D".
func titleCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				sb.WriteRune(unicode.ToLower(r))
			} else {
				sb.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		sb.WriteRune(r)
		prevLetter = false
	}
	return sb.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func firstN(words []string, n int) []string {
	if len(words) > n {
		return words[:n]
	}
	return words
}

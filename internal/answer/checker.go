// Package answer classifies free-text answers against a subject's accepted
// readings and meanings. All functions are pure: they never touch storage and
// take the subjects they need through a lookup callback.
package answer

import (
	"strings"
	"unicode"

	"github.com/mkaneko/kameki/internal/learning"
)

// Kind is the classification of one answer.
type Kind int

const (
	Incorrect Kind = iota
	Precise
	Imprecise
	// OtherKanjiReading means the reading is valid for the kanji but is not
	// the one this subject expects.
	OtherKanjiReading
	// MismatchingOkurigana means the kanji reading is right but the
	// inflectional kana around it diverges from the subject's text.
	MismatchingOkurigana
	ContainsInvalidCharacters
	// IsReadingButWantMeaning means the user typed a romanized reading when
	// the meaning was asked.
	IsReadingButWantMeaning
)

func (k Kind) String() string {
	switch k {
	case Incorrect:
		return "incorrect"
	case Precise:
		return "precise"
	case Imprecise:
		return "imprecise"
	case OtherKanjiReading:
		return "other kanji reading"
	case MismatchingOkurigana:
		return "mismatching okurigana"
	case ContainsInvalidCharacters:
		return "contains invalid characters"
	case IsReadingButWantMeaning:
		return "is reading, want meaning"
	}
	return "unknown"
}

// Accepted reports whether the answer counts as correct.
func (k Kind) Accepted() bool {
	return k == Precise || k == Imprecise
}

// Range is a half-open rune-offset interval into the normalized answer.
type Range struct {
	Start int
	End   int
}

// Result is the classification plus, for the range-bearing kinds, the rune
// ranges of the offending characters.
type Result struct {
	Kind   Kind
	Ranges []Range
}

// SubjectSource resolves a subject id, returning nil when unknown. The
// checker uses it to follow a vocabulary's component kanji.
type SubjectSource func(id int64) *learning.Subject

var typoStripper = strings.NewReplacer(".", "", "'", "", "/", "")

// Normalize prepares free text for matching: trims, lowercases and strips the
// characters that are typically typos or IME artifacts. For reading tasks the
// "n" key (and its full-width IME variant) is folded to ん and separators are
// removed entirely.
func Normalize(text string, task learning.TaskType) string {
	s := strings.TrimSpace(text)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", " ")
	s = typoStripper.Replace(s)
	if task == learning.TaskReading {
		s = strings.ReplaceAll(s, "n", "ん")
		s = strings.ReplaceAll(s, "ｎ", "ん")
		s = strings.ReplaceAll(s, " ", "")
	}
	return s
}

// CheckAnswer classifies a free-text answer for the given subject and task
// type. Study materials contribute the user's meaning synonyms and may be
// nil. The classification is strictly ordered: invalid characters win over
// everything else, and the remaining checks run in the same order as the
// original client so ties between OtherKanjiReading and MismatchingOkurigana
// resolve the same way.
func CheckAnswer(text string, subject *learning.Subject, materials *learning.StudyMaterial,
	task learning.TaskType, subjects SubjectSource) Result {
	switch task {
	case learning.TaskReading:
		return checkReading(Normalize(text, task), subject, subjects, 0)
	case learning.TaskMeaning:
		return checkMeaning(Normalize(text, task), subject, materials, subjects)
	}
	return Result{Kind: Incorrect}
}

func checkReading(text string, subject *learning.Subject, subjects SubjectSource, depth int) Result {
	hiragana := ToHiragana(text)

	// Non-syllabary characters take priority over every other check.
	if ranges := invalidRanges(hiragana, func(r rune) bool { return !IsHiragana(r) }); len(ranges) > 0 {
		return Result{Kind: ContainsInvalidCharacters, Ranges: ranges}
	}

	for _, reading := range subject.PrimaryReadings() {
		if reading.Reading == hiragana {
			return Result{Kind: Precise}
		}
	}
	for _, reading := range subject.AlternateReadings() {
		if reading.Reading != hiragana {
			continue
		}
		if subject.Type == learning.SubjectKanji {
			return Result{Kind: OtherKanjiReading}
		}
		return Result{Kind: Precise}
	}

	// A vocabulary of a single kanji: the user may have answered with the
	// kanji's own reading rather than the vocabulary's.
	if subject.Type == learning.SubjectVocabulary && depth == 0 &&
		runeLen(subject.Japanese) == 1 && len(subject.ComponentSubjectIDs) == 1 &&
		subjects != nil {
		if kanji := subjects(subject.ComponentSubjectIDs[0]); kanji != nil {
			if checkReading(hiragana, kanji, nil, depth+1).Kind == Precise {
				return Result{Kind: OtherKanjiReading}
			}
		}
	}

	if subject.Type == learning.SubjectVocabulary {
		if ranges := mismatchingOkurigana(hiragana, subject.Japanese); len(ranges) > 0 {
			return Result{Kind: MismatchingOkurigana, Ranges: ranges}
		}
	}

	return Result{Kind: Incorrect}
}

func checkMeaning(text string, subject *learning.Subject, materials *learning.StudyMaterial,
	subjects SubjectSource) Result {
	// Meaning answers must be in the input language, not Japanese.
	if ranges := invalidRanges(text, isJapaneseScript); len(ranges) > 0 {
		return Result{Kind: ContainsInvalidCharacters, Ranges: ranges}
	}

	// Blacklisted meanings exist specifically to catch common wrong guesses:
	// an exact hit is always incorrect, even if it is a near-match to a valid
	// meaning.
	for _, meaning := range subject.Meanings {
		if meaning.Type == learning.MeaningBlacklist &&
			Normalize(meaning.Meaning, learning.TaskMeaning) == text {
			return Result{Kind: Incorrect}
		}
	}

	var candidates []string
	if materials != nil {
		candidates = append(candidates, materials.MeaningSynonyms...)
	}
	for _, meaning := range subject.Meanings {
		if meaning.Type != learning.MeaningBlacklist {
			candidates = append(candidates, meaning.Meaning)
		}
	}

	for _, candidate := range candidates {
		if Normalize(candidate, learning.TaskMeaning) == text {
			return Result{Kind: Precise}
		}
	}
	for _, candidate := range candidates {
		normalized := Normalize(candidate, learning.TaskMeaning)
		if Levenshtein(normalized, text) <= distanceTolerance(runeLen(normalized)) {
			return Result{Kind: Imprecise}
		}
	}

	// The user may have typed the romanized reading instead of the meaning.
	// Depth-limited to a single hop: the reading check never recurses back.
	switch checkReading(RomajiToHiragana(text), subject, subjects, 1).Kind {
	case Precise, Imprecise, OtherKanjiReading:
		return Result{Kind: IsReadingButWantMeaning}
	}

	return Result{Kind: Incorrect}
}

// invalidRanges collects contiguous rune ranges of characters matching bad.
func invalidRanges(text string, bad func(rune) bool) []Range {
	var ranges []Range
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if !bad(runes[i]) {
			continue
		}
		start := i
		for i < len(runes) && bad(runes[i]) {
			i++
		}
		ranges = append(ranges, Range{Start: start, End: i})
	}
	return ranges
}

func isJapaneseScript(r rune) bool {
	return IsKana(r) || unicode.In(r, unicode.Han)
}

// mismatchingOkurigana compares the answer's leading and trailing hiragana
// against the subject's literal text, stopping each scan at the first
// non-hiragana character of the subject. It returns the answer ranges that
// diverge, which catches "right reading, wrong inflection" mistakes.
func mismatchingOkurigana(answer, japanese string) []Range {
	ar, jr := []rune(answer), []rune(japanese)
	if len(ar) < len(jr) {
		return nil
	}

	var ranges []Range
	for i := 0; i < len(jr); i++ {
		if !IsHiragana(jr[i]) {
			break
		}
		if jr[i] != ar[i] {
			ranges = appendRange(ranges, i)
		}
	}
	for i := 0; i < len(jr); i++ {
		ji, ai := len(jr)-1-i, len(ar)-1-i
		if !IsHiragana(jr[ji]) {
			break
		}
		if jr[ji] != ar[ai] {
			ranges = appendRange(ranges, ai)
		}
	}
	return ranges
}

// appendRange adds a single rune position, merging it into an adjacent range.
func appendRange(ranges []Range, pos int) []Range {
	for i, r := range ranges {
		if pos == r.End {
			ranges[i].End = pos + 1
			return ranges
		}
		if pos == r.Start-1 {
			ranges[i].Start = pos
			return ranges
		}
		if pos >= r.Start && pos < r.End {
			return ranges
		}
	}
	return append(ranges, Range{Start: pos, End: pos + 1})
}

func runeLen(s string) int {
	return len([]rune(s))
}

package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkaneko/kameki/internal/learning"
)

func dogSubject() *learning.Subject {
	return &learning.Subject{
		ID:       2467,
		Type:     learning.SubjectVocabulary,
		Level:    2,
		Japanese: "犬",
		Readings: []learning.Reading{
			{Reading: "いぬ", IsPrimary: true},
		},
		Meanings: []learning.Meaning{
			{Meaning: "Dog", Type: learning.MeaningPrimary},
		},
		ComponentSubjectIDs: []int64{857},
	}
}

func dogKanji() *learning.Subject {
	return &learning.Subject{
		ID:       857,
		Type:     learning.SubjectKanji,
		Level:    2,
		Japanese: "犬",
		Readings: []learning.Reading{
			{Reading: "けん", IsPrimary: true, Type: learning.ReadingOnyomi},
			{Reading: "いぬ", IsPrimary: false, Type: learning.ReadingKunyomi},
		},
		Meanings: []learning.Meaning{
			{Meaning: "Dog", Type: learning.MeaningPrimary},
		},
	}
}

func subjectSourceFor(subjects ...*learning.Subject) SubjectSource {
	return func(id int64) *learning.Subject {
		for _, s := range subjects {
			if s.ID == id {
				return s
			}
		}
		return nil
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		text string
		task learning.TaskType
		want string
	}{
		{name: "trims and lowercases", text: "  Dog  ", task: learning.TaskMeaning, want: "dog"},
		{name: "hyphen becomes space", text: "ice-cream", task: learning.TaskMeaning, want: "ice cream"},
		{name: "strips typo characters", text: "o'clock./", task: learning.TaskMeaning, want: "oclock"},
		{name: "reading folds trailing n", text: "みかn", task: learning.TaskReading, want: "みかん"},
		{name: "reading folds full-width n", text: "みかｎ", task: learning.TaskReading, want: "みかん"},
		{name: "reading strips spaces", text: "い ぬ", task: learning.TaskReading, want: "いぬ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.text, tt.task))
		})
	}
}

func TestCheckAnswerReading(t *testing.T) {
	subjects := subjectSourceFor(dogSubject(), dogKanji())

	tests := []struct {
		name    string
		answer  string
		subject *learning.Subject
		want    Kind
	}{
		{name: "primary reading", answer: "いぬ", subject: dogSubject(), want: Precise},
		{name: "katakana folded to hiragana", answer: "イヌ", subject: dogSubject(), want: Precise},
		{name: "wrong reading", answer: "ねこ", subject: dogSubject(), want: Incorrect},
		{name: "kanji alternate reading", answer: "いぬ", subject: dogKanji(), want: OtherKanjiReading},
		{name: "kanji primary reading", answer: "けん", subject: dogKanji(), want: Precise},
		{name: "kanji reading for single-kanji vocabulary", answer: "けん", subject: dogSubject(), want: OtherKanjiReading},
		{name: "latin letter is invalid", answer: "iぬ", subject: dogSubject(), want: ContainsInvalidCharacters},
		{name: "invalid wins over correct remainder", answer: "いぬx", subject: dogSubject(), want: ContainsInvalidCharacters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckAnswer(tt.answer, tt.subject, nil, learning.TaskReading, subjects)
			assert.Equal(t, tt.want, got.Kind)
		})
	}
}

func TestCheckAnswerReadingInvalidRanges(t *testing.T) {
	got := CheckAnswer("xいぬyz", dogSubject(), nil, learning.TaskReading, nil)
	assert.Equal(t, ContainsInvalidCharacters, got.Kind)
	assert.Equal(t, []Range{{Start: 0, End: 1}, {Start: 3, End: 5}}, got.Ranges)
}

func TestCheckAnswerMeaning(t *testing.T) {
	subject := dogSubject()
	subject.Meanings = append(subject.Meanings,
		learning.Meaning{Meaning: "Canine", Type: learning.MeaningWhitelist},
		learning.Meaning{Meaning: "Hound", Type: learning.MeaningBlacklist},
	)
	materials := &learning.StudyMaterial{
		SubjectID:       subject.ID,
		MeaningSynonyms: []string{"puppy"},
	}
	subjects := subjectSourceFor(subject, dogKanji())

	tests := []struct {
		name      string
		answer    string
		materials *learning.StudyMaterial
		want      Kind
	}{
		{name: "primary meaning", answer: "dog", want: Precise},
		{name: "case and whitespace insensitive", answer: " DOG ", want: Precise},
		{name: "whitelist meaning", answer: "canine", want: Precise},
		{name: "user synonym", answer: "puppy", materials: materials, want: Precise},
		{name: "near miss within tolerance", answer: "canne", want: Imprecise},
		{name: "blacklist is always incorrect", answer: "hound", want: Incorrect},
		{name: "typed the reading instead", answer: "inu", want: IsReadingButWantMeaning},
		{name: "garbage", answer: "xylophone", want: Incorrect},
		{name: "japanese characters are invalid", answer: "犬", want: ContainsInvalidCharacters},
		{name: "kana characters are invalid", answer: "いぬ", want: ContainsInvalidCharacters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckAnswer(tt.answer, subject, tt.materials, learning.TaskMeaning, subjects)
			assert.Equal(t, tt.want, got.Kind)
		})
	}
}

func TestCheckAnswerMeaningTolerance(t *testing.T) {
	mountain := &learning.Subject{
		ID:       100,
		Type:     learning.SubjectVocabulary,
		Japanese: "山",
		Meanings: []learning.Meaning{{Meaning: "mountain", Type: learning.MeaningPrimary}},
	}
	cat := &learning.Subject{
		ID:       101,
		Type:     learning.SubjectVocabulary,
		Japanese: "猫",
		Meanings: []learning.Meaning{{Meaning: "cat", Type: learning.MeaningPrimary}},
	}

	// Tolerance scales with the expected answer's length: "mountain" (8 runes)
	// allows up to 3 edits, "cat" (3 runes) requires an exact match.
	assert.Equal(t, Imprecise,
		CheckAnswer("montain", mountain, nil, learning.TaskMeaning, nil).Kind)
	assert.Equal(t, Imprecise,
		CheckAnswer("muontian", mountain, nil, learning.TaskMeaning, nil).Kind)
	assert.Equal(t, Incorrect,
		CheckAnswer("cta", cat, nil, learning.TaskMeaning, nil).Kind)
	assert.Equal(t, Incorrect,
		CheckAnswer("cat dog", cat, nil, learning.TaskMeaning, nil).Kind)
}

func TestCheckAnswerOkurigana(t *testing.T) {
	taberu := &learning.Subject{
		ID:       200,
		Type:     learning.SubjectVocabulary,
		Japanese: "食べる",
		Readings: []learning.Reading{{Reading: "たべる", IsPrimary: true}},
		Meanings: []learning.Meaning{{Meaning: "to eat", Type: learning.MeaningPrimary}},
	}

	tests := []struct {
		name   string
		answer string
		want   Kind
	}{
		{name: "exact", answer: "たべる", want: Precise},
		{name: "wrong trailing inflection", answer: "たべた", want: MismatchingOkurigana},
		{name: "entirely wrong", answer: "のむ", want: Incorrect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckAnswer(tt.answer, taberu, nil, learning.TaskReading, nil)
			assert.Equal(t, tt.want, got.Kind, "ranges: %v", got.Ranges)
		})
	}
}

// Package learning provides the domain models shared by the local cache, the
// sync engine and the review scheduler: catalog subjects, per-user
// assignments, study materials and completed-review progress records.
package learning

import "time"

// SubjectType identifies the kind of catalog entry.
type SubjectType int

const (
	SubjectRadical SubjectType = iota + 1
	SubjectKanji
	SubjectVocabulary
)

func (t SubjectType) String() string {
	switch t {
	case SubjectRadical:
		return "radical"
	case SubjectKanji:
		return "kanji"
	case SubjectVocabulary:
		return "vocabulary"
	}
	return "unknown"
}

// ParseSubjectType converts the API's object name into a SubjectType.
func ParseSubjectType(name string) SubjectType {
	switch name {
	case "radical":
		return SubjectRadical
	case "kanji":
		return SubjectKanji
	case "vocabulary", "kana_vocabulary":
		return SubjectVocabulary
	}
	return 0
}

// ReadingType distinguishes kanji reading kinds.
type ReadingType string

const (
	ReadingOnyomi  ReadingType = "onyomi"
	ReadingKunyomi ReadingType = "kunyomi"
	ReadingNanori  ReadingType = "nanori"
)

// Reading is one accepted reading of a subject.
type Reading struct {
	Reading   string      `json:"reading"`
	IsPrimary bool        `json:"primary"`
	Type      ReadingType `json:"type,omitempty"`
}

// MeaningType classifies an accepted or rejected meaning.
type MeaningType string

const (
	MeaningPrimary   MeaningType = "primary"
	MeaningSecondary MeaningType = "secondary"
	MeaningWhitelist MeaningType = "whitelist"
	MeaningBlacklist MeaningType = "blacklist"
)

// Meaning is one meaning entry of a subject. Blacklist entries exist to catch
// common wrong guesses and never count as correct.
type Meaning struct {
	Meaning string      `json:"meaning"`
	Type    MeaningType `json:"type"`
}

// AudioClip references one pronunciation recording of a vocabulary subject.
type AudioClip struct {
	URL          string `json:"url"`
	VoiceActorID int64  `json:"voice_actor_id"`
}

// Subject is an immutable catalog entry: a radical, kanji or vocabulary word.
// Subjects are replaced wholesale on re-sync and never mutated locally.
type Subject struct {
	ID                     int64       `json:"id"`
	Type                   SubjectType `json:"type"`
	Level                  int         `json:"level"`
	Japanese               string      `json:"japanese"`
	Readings               []Reading   `json:"readings,omitempty"`
	Meanings               []Meaning   `json:"meanings,omitempty"`
	ComponentSubjectIDs    []int64     `json:"component_subject_ids,omitempty"`
	AmalgamationSubjectIDs []int64     `json:"amalgamation_subject_ids,omitempty"`
	Audio                  []AudioClip `json:"audio,omitempty"`
}

// PrimaryReadings returns the readings flagged primary.
func (s *Subject) PrimaryReadings() []Reading {
	var ret []Reading
	for _, r := range s.Readings {
		if r.IsPrimary {
			ret = append(ret, r)
		}
	}
	return ret
}

// AlternateReadings returns the readings not flagged primary.
func (s *Subject) AlternateReadings() []Reading {
	var ret []Reading
	for _, r := range s.Readings {
		if !r.IsPrimary {
			ret = append(ret, r)
		}
	}
	return ret
}

// Assignment is the user's relationship to one subject. It is overwritten by
// server fetches and advanced optimistically when a Progress is applied.
type Assignment struct {
	ID          int64       `json:"id"`
	SubjectID   int64       `json:"subject_id"`
	SubjectType SubjectType `json:"subject_type"`
	Level       int         `json:"level"`
	SRSStage    Stage       `json:"srs_stage"`
	UnlockedAt  time.Time   `json:"unlocked_at,omitempty"`
	StartedAt   time.Time   `json:"started_at,omitempty"`
	AvailableAt time.Time   `json:"available_at,omitempty"`
	PassedAt    time.Time   `json:"passed_at,omitempty"`
	BurnedAt    time.Time   `json:"burned_at,omitempty"`
	KanaOnly    bool        `json:"kana_only,omitempty"`
}

// IsLessonStage reports whether the assignment is waiting to be taught as a
// lesson: unlocked but never started.
func (a *Assignment) IsLessonStage() bool {
	return !a.UnlockedAt.IsZero() && a.StartedAt.IsZero()
}

// IsReviewStage reports whether the assignment is in the review ladder.
func (a *Assignment) IsReviewStage() bool {
	return !a.StartedAt.IsZero() && a.SRSStage >= StageApprentice1 && a.SRSStage < StageBurned
}

// AvailableNow reports whether a review for this assignment is due at now.
func (a *Assignment) AvailableNow(now time.Time) bool {
	return a.IsReviewStage() && !a.AvailableAt.IsZero() && !a.AvailableAt.After(now)
}

// StudyMaterial is the user's own notes and synonyms for one subject. ID is
// zero until the server has assigned one; uploading then creates instead of
// updates.
type StudyMaterial struct {
	ID              int64    `json:"id,omitempty"`
	SubjectID       int64    `json:"subject_id"`
	MeaningNote     string   `json:"meaning_note,omitempty"`
	ReadingNote     string   `json:"reading_note,omitempty"`
	MeaningSynonyms []string `json:"meaning_synonyms,omitempty"`
}

// Progress is an immutable record of one completed lesson or review. It
// carries a copy of the assignment it was answered against so the outbox can
// be replayed without further lookups.
type Progress struct {
	Assignment        Assignment `json:"assignment"`
	IsLesson          bool       `json:"is_lesson"`
	MeaningWrong      bool       `json:"meaning_wrong"`
	ReadingWrong      bool       `json:"reading_wrong"`
	MeaningWrongCount int        `json:"meaning_wrong_count"`
	ReadingWrongCount int        `json:"reading_wrong_count"`
	CreatedAt         time.Time  `json:"created_at"`
}

// NewStage returns the SRS stage the assignment moves to when this progress
// is applied: forward for a clean round or a lesson, backward otherwise.
func (p *Progress) NewStage() Stage {
	if p.IsLesson || (!p.MeaningWrong && !p.ReadingWrong) {
		return p.Assignment.SRSStage.Next()
	}
	return p.Assignment.SRSStage.Previous()
}

// User is the account record fetched from the service.
type User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Level           int       `json:"level"`
	MaxLevelGranted int       `json:"max_level_granted"`
	OnVacation      bool      `json:"on_vacation"`
	StartedAt       time.Time `json:"started_at,omitempty"`
}

// LevelProgression records when the user reached and passed one level.
type LevelProgression struct {
	ID          int64     `json:"id"`
	Level       int       `json:"level"`
	UnlockedAt  time.Time `json:"unlocked_at,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	PassedAt    time.Time `json:"passed_at,omitempty"`
	AbandonedAt time.Time `json:"abandoned_at,omitempty"`
}

// TimeSpent returns how long the user spent on this level, up to now for the
// level still in progress.
func (l *LevelProgression) TimeSpent(now time.Time) time.Duration {
	start := l.StartedAt
	if start.IsZero() {
		start = l.UnlockedAt
	}
	if start.IsZero() {
		return 0
	}
	end := l.PassedAt
	if end.IsZero() {
		end = l.AbandonedAt
	}
	if end.IsZero() {
		end = now
	}
	return end.Sub(start)
}

// VoiceActor describes one audio narrator.
type VoiceActor struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Gender      string `json:"gender,omitempty"`
	Description string `json:"description,omitempty"`
}

package api

import (
	"encoding/json"
	"time"

	"github.com/mkaneko/kameki/internal/learning"
)

// collection is the paginated envelope every listing endpoint returns.
type collection struct {
	Object string `json:"object"`
	Pages  struct {
		NextURL string `json:"next_url"`
	} `json:"pages"`
	TotalCount    int        `json:"total_count"`
	DataUpdatedAt string     `json:"data_updated_at"`
	Data          []resource `json:"data"`
}

// resource wraps one record; the entity payload stays raw until the caller
// knows its type.
type resource struct {
	ID            int64           `json:"id"`
	Object        string          `json:"object"`
	DataUpdatedAt string          `json:"data_updated_at"`
	Data          json.RawMessage `json:"data"`
}

type subjectData struct {
	Level      int        `json:"level"`
	Characters string     `json:"characters"`
	HiddenAt   *time.Time `json:"hidden_at"`
	Meanings   []struct {
		Meaning string `json:"meaning"`
		Primary bool   `json:"primary"`
	} `json:"meanings"`
	AuxiliaryMeanings []struct {
		Meaning string `json:"meaning"`
		Type    string `json:"type"`
	} `json:"auxiliary_meanings"`
	Readings []struct {
		Reading string `json:"reading"`
		Primary bool   `json:"primary"`
		Type    string `json:"type"`
	} `json:"readings"`
	ComponentSubjectIDs    []int64 `json:"component_subject_ids"`
	AmalgamationSubjectIDs []int64 `json:"amalgamation_subject_ids"`
	PronunciationAudios    []struct {
		URL      string `json:"url"`
		Metadata struct {
			VoiceActorID int64 `json:"voice_actor_id"`
		} `json:"metadata"`
	} `json:"pronunciation_audios"`
}

func (d *subjectData) toLearning(id int64, object string) *learning.Subject {
	subject := &learning.Subject{
		ID:                     id,
		Type:                   learning.ParseSubjectType(object),
		Level:                  d.Level,
		Japanese:               d.Characters,
		ComponentSubjectIDs:    d.ComponentSubjectIDs,
		AmalgamationSubjectIDs: d.AmalgamationSubjectIDs,
	}
	for _, m := range d.Meanings {
		meaningType := learning.MeaningSecondary
		if m.Primary {
			meaningType = learning.MeaningPrimary
		}
		subject.Meanings = append(subject.Meanings, learning.Meaning{
			Meaning: m.Meaning, Type: meaningType,
		})
	}
	for _, m := range d.AuxiliaryMeanings {
		meaningType := learning.MeaningWhitelist
		if m.Type == "blacklist" {
			meaningType = learning.MeaningBlacklist
		}
		subject.Meanings = append(subject.Meanings, learning.Meaning{
			Meaning: m.Meaning, Type: meaningType,
		})
	}
	for _, r := range d.Readings {
		subject.Readings = append(subject.Readings, learning.Reading{
			Reading:   r.Reading,
			IsPrimary: r.Primary,
			Type:      learning.ReadingType(r.Type),
		})
	}
	for _, audio := range d.PronunciationAudios {
		subject.Audio = append(subject.Audio, learning.AudioClip{
			URL:          audio.URL,
			VoiceActorID: audio.Metadata.VoiceActorID,
		})
	}
	return subject
}

type assignmentData struct {
	SubjectID   int64      `json:"subject_id"`
	SubjectType string     `json:"subject_type"`
	SRSStage    int        `json:"srs_stage"`
	UnlockedAt  *time.Time `json:"unlocked_at"`
	StartedAt   *time.Time `json:"started_at"`
	AvailableAt *time.Time `json:"available_at"`
	PassedAt    *time.Time `json:"passed_at"`
	BurnedAt    *time.Time `json:"burned_at"`
}

func (d *assignmentData) toLearning(id int64) learning.Assignment {
	return learning.Assignment{
		ID:          id,
		SubjectID:   d.SubjectID,
		SubjectType: learning.ParseSubjectType(d.SubjectType),
		KanaOnly:    d.SubjectType == "kana_vocabulary",
		SRSStage:    learning.Stage(d.SRSStage),
		UnlockedAt:  fromPtr(d.UnlockedAt),
		StartedAt:   fromPtr(d.StartedAt),
		AvailableAt: fromPtr(d.AvailableAt),
		PassedAt:    fromPtr(d.PassedAt),
		BurnedAt:    fromPtr(d.BurnedAt),
	}
}

type studyMaterialData struct {
	SubjectID       int64    `json:"subject_id"`
	MeaningNote     string   `json:"meaning_note"`
	ReadingNote     string   `json:"reading_note"`
	MeaningSynonyms []string `json:"meaning_synonyms"`
}

func (d *studyMaterialData) toLearning(id int64) learning.StudyMaterial {
	return learning.StudyMaterial{
		ID:              id,
		SubjectID:       d.SubjectID,
		MeaningNote:     d.MeaningNote,
		ReadingNote:     d.ReadingNote,
		MeaningSynonyms: d.MeaningSynonyms,
	}
}

type userData struct {
	ID                       string     `json:"id"`
	Username                 string     `json:"username"`
	Level                    int        `json:"level"`
	StartedAt                *time.Time `json:"started_at"`
	CurrentVacationStartedAt *time.Time `json:"current_vacation_started_at"`
	Subscription             struct {
		MaxLevelGranted int `json:"max_level_granted"`
	} `json:"subscription"`
}

func (d *userData) toLearning() *learning.User {
	return &learning.User{
		ID:              d.ID,
		Username:        d.Username,
		Level:           d.Level,
		MaxLevelGranted: d.Subscription.MaxLevelGranted,
		OnVacation:      d.CurrentVacationStartedAt != nil,
		StartedAt:       fromPtr(d.StartedAt),
	}
}

type levelProgressionData struct {
	Level       int        `json:"level"`
	UnlockedAt  *time.Time `json:"unlocked_at"`
	StartedAt   *time.Time `json:"started_at"`
	PassedAt    *time.Time `json:"passed_at"`
	AbandonedAt *time.Time `json:"abandoned_at"`
}

func (d *levelProgressionData) toLearning(id int64) learning.LevelProgression {
	return learning.LevelProgression{
		ID:          id,
		Level:       d.Level,
		UnlockedAt:  fromPtr(d.UnlockedAt),
		StartedAt:   fromPtr(d.StartedAt),
		PassedAt:    fromPtr(d.PassedAt),
		AbandonedAt: fromPtr(d.AbandonedAt),
	}
}

type voiceActorData struct {
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	Description string `json:"description"`
}

func (d *voiceActorData) toLearning(id int64) learning.VoiceActor {
	return learning.VoiceActor{
		ID:          id,
		Name:        d.Name,
		Gender:      d.Gender,
		Description: d.Description,
	}
}

func fromPtr(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

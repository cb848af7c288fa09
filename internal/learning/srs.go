package learning

import "time"

// Stage is an ordinal position on the spaced-repetition ladder. Stage zero is
// the lesson stage; an assignment leaves the ladder once burned.
type Stage int

const (
	StageUnstarted Stage = iota
	StageApprentice1
	StageApprentice2
	StageApprentice3
	StageApprentice4
	StageGuru1
	StageGuru2
	StageMaster
	StageEnlightened
	StageBurned
)

func (s Stage) String() string {
	switch s {
	case StageUnstarted:
		return "Lesson"
	case StageApprentice1:
		return "Apprentice I"
	case StageApprentice2:
		return "Apprentice II"
	case StageApprentice3:
		return "Apprentice III"
	case StageApprentice4:
		return "Apprentice IV"
	case StageGuru1:
		return "Guru I"
	case StageGuru2:
		return "Guru II"
	case StageMaster:
		return "Master"
	case StageEnlightened:
		return "Enlightened"
	case StageBurned:
		return "Burned"
	}
	return "unknown"
}

// Next returns the following stage, saturating at Burned.
func (s Stage) Next() Stage {
	if s >= StageBurned {
		return StageBurned
	}
	return s + 1
}

// Previous returns the preceding stage, saturating at zero.
func (s Stage) Previous() Stage {
	if s <= StageUnstarted {
		return StageUnstarted
	}
	return s - 1
}

// StageCategory groups stages into the five dashboard buckets.
type StageCategory int

const (
	CategoryApprentice StageCategory = iota
	CategoryGuru
	CategoryMaster
	CategoryEnlightened
	CategoryBurned
	StageCategoryCount = 5
)

func (c StageCategory) String() string {
	switch c {
	case CategoryApprentice:
		return "Apprentice"
	case CategoryGuru:
		return "Guru"
	case CategoryMaster:
		return "Master"
	case CategoryEnlightened:
		return "Enlightened"
	case CategoryBurned:
		return "Burned"
	}
	return "unknown"
}

// Category returns the bucket this stage belongs to. The lesson stage counts
// as Apprentice, matching how the dashboard histogram groups it.
func (s Stage) Category() StageCategory {
	switch {
	case s <= StageApprentice4:
		return CategoryApprentice
	case s <= StageGuru2:
		return CategoryGuru
	case s == StageMaster:
		return CategoryMaster
	case s == StageEnlightened:
		return CategoryEnlightened
	}
	return CategoryBurned
}

// acceleratedMaxLevel is the last level with shortened apprentice intervals.
const acceleratedMaxLevel = 2

var stageDurations = [...]time.Duration{
	StageApprentice1: 4 * time.Hour,
	StageApprentice2: 8 * time.Hour,
	StageApprentice3: 23 * time.Hour,
	StageApprentice4: 47 * time.Hour,
	StageGuru1:       7*24*time.Hour - time.Hour,
	StageGuru2:       14*24*time.Hour - time.Hour,
	StageMaster:      30*24*time.Hour - time.Hour,
	StageEnlightened: 120*24*time.Hour - time.Hour,
}

var acceleratedDurations = [...]time.Duration{
	StageApprentice1: 2 * time.Hour,
	StageApprentice2: 4 * time.Hour,
	StageApprentice3: 8 * time.Hour,
	StageApprentice4: 23 * time.Hour,
}

// Duration returns how long an assignment waits at this stage before its next
// review. Low levels use the accelerated apprentice intervals.
func (s Stage) Duration(level int) time.Duration {
	if s < StageApprentice1 || s > StageEnlightened {
		return 0
	}
	if level <= acceleratedMaxLevel && s <= StageApprentice4 {
		return acceleratedDurations[s]
	}
	return stageDurations[s]
}

package learning

// TaskType is the half of a review being asked: the subject's reading or its
// meaning. The set is closed; switches over it are exhaustive.
type TaskType int

const (
	TaskReading TaskType = iota
	TaskMeaning
)

func (t TaskType) String() string {
	if t == TaskReading {
		return "reading"
	}
	return "meaning"
}

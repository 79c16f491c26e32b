package domain

// Label is the coarse category of a user query: whether it needs live
// facts, stored memory, or both. Pure value, recomputed per request.
type Label string

const (
	LabelRealtime Label = "realtime"
	LabelMemory   Label = "memory"
	LabelMixed    Label = "mixed"
)

// Valid reports whether l is one of the three known labels.
func (l Label) Valid() bool {
	switch l {
	case LabelRealtime, LabelMemory, LabelMixed:
		return true
	}
	return false
}

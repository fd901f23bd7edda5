package state

// InferenceStats is the running self-score of the inference model.
// It is owned by the inference task; counters only grow.
type InferenceStats struct {
	Total   uint32
	Correct uint32
}

// Record counts one completed inference
func (st *InferenceStats) Record(predicted, groundTruth bool) {
	st.Total++
	if predicted == groundTruth {
		st.Correct++
	}
}

// Accuracy returns 100*Correct/Total, or 0 before the first sample
func (st InferenceStats) Accuracy() float32 {
	if st.Total == 0 {
		return 0
	}
	return 100 * float32(st.Correct) / float32(st.Total)
}

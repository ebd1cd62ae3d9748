package manuscripts

import "time"

// AppendHistory records a transition at the end of the manuscript's history.
// Earlier entries are never touched.
func AppendHistory(m *Manuscript, from State, action Action, to State, at time.Time) HistoryEntry {
	entry := HistoryEntry{From: from, Action: action, To: to, At: at}
	m.History = append(m.History, entry)
	return entry
}

// ResetHistory clears the history. Only for administrative data repair.
func ResetHistory(m *Manuscript) {
	m.History = []HistoryEntry{}
}

// History returns a copy of the manuscript's history, empty when absent
func History(m *Manuscript) []HistoryEntry {
	if m == nil || len(m.History) == 0 {
		return []HistoryEntry{}
	}
	out := make([]HistoryEntry, len(m.History))
	copy(out, m.History)
	return out
}

package export

import "time"

// TranscriptRow is one credit line in a student transcript.
type TranscriptRow struct {
	RecordID   uint64
	CourseName string
	Score      int
	Teacher    string
	Status     string
	RecordedAt time.Time
}

// Transcript is the exportable view of a student's credits.
type Transcript struct {
	StudentID   string
	GeneratedAt time.Time
	Rows        []TranscriptRow
}

// TotalScore sums the scores of all rows.
func (t Transcript) TotalScore() int {
	total := 0
	for _, row := range t.Rows {
		total += row.Score
	}
	return total
}

var transcriptHeaders = []string{"Record ID", "Course", "Score", "Teacher", "Status", "Recorded At"}

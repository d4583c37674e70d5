package domain

// SourceRecord is a single answer row delivered by a record source.
type SourceRecord struct {
	Title string `json:"question_title"`
	Body  string `json:"body"`
	Score int64  `json:"score"`
	ID    int64  `json:"answer_id"`
}

// AnswerReference points from an extracted URL back to the answer that contains it.
type AnswerReference struct {
	Score         int64  `json:"score"`
	AnswerID      int64  `json:"answer_id"`
	QuestionTitle string `json:"question_title"`
	AnswerURL     string `json:"answer_url"`
}

// KeyedReference is one (url, reference) pair emitted by the extractor.
type KeyedReference struct {
	URL       string
	Reference AnswerReference
}

// URLGroup holds every reference extracted for one exact URL string.
type URLGroup struct {
	URL        string
	References []AnswerReference
}

// CheckResult is the outcome of probing one URLGroup.
type CheckResult struct {
	URL            string
	References     []AnswerReference
	Status         *int
	ErrorKind      *ErrorKind
	ErrorDetail    *string
	ElapsedSeconds *float64
}

// ScoreSum is the ranking key: the sum of the referencing answers' scores.
func (r CheckResult) ScoreSum() int64 {
	var sum int64
	for _, ref := range r.References {
		sum += ref.Score
	}
	return sum
}

// ReferenceCount returns how many answers reference the URL.
func (r CheckResult) ReferenceCount() int {
	return len(r.References)
}

// Failed reports whether the probe produced an error of any kind.
func (r CheckResult) Failed() bool {
	return r.ErrorKind != nil
}

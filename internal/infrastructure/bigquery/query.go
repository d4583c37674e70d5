package bigquery

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	bq "google.golang.org/api/bigquery/v2"
)

const (
	DefaultAnswersTable   = "bigquery-public-data.stackoverflow.posts_answers"
	DefaultQuestionsTable = "bigquery-public-data.stackoverflow.posts_questions"

	anchorPattern = "%<a href=%"
)

// QueryOptions selects the tables and the number of top answers to read.
type QueryOptions struct {
	AnswersTable   string
	QuestionsTable string
	Limit          int
}

// BuildQuery renders the top-answers query in BigQuery standard SQL with
// positional parameters.
func BuildQuery(opts QueryOptions) (string, []any, error) {
	if opts.Limit <= 0 {
		return "", nil, fmt.Errorf("answer limit must be positive, got %d", opts.Limit)
	}
	if opts.AnswersTable == "" {
		opts.AnswersTable = DefaultAnswersTable
	}
	if opts.QuestionsTable == "" {
		opts.QuestionsTable = DefaultQuestionsTable
	}

	return sq.Select(
		"questions.title AS question_title",
		"answers.body",
		"answers.score",
		"answers.id AS answer_id",
	).
		From(fmt.Sprintf("`%s` AS answers", opts.AnswersTable)).
		Join(fmt.Sprintf("`%s` AS questions ON answers.parent_id = questions.id", opts.QuestionsTable)).
		Where(sq.Like{"answers.body": anchorPattern}).
		OrderBy("answers.score DESC").
		Limit(uint64(opts.Limit)).
		ToSql()
}

func toParameters(args []any) ([]*bq.QueryParameter, error) {
	params := make([]*bq.QueryParameter, 0, len(args))
	for i, arg := range args {
		var typ, value string
		switch v := arg.(type) {
		case string:
			typ, value = "STRING", v
		case int:
			typ, value = "INT64", fmt.Sprint(v)
		case int64:
			typ, value = "INT64", fmt.Sprint(v)
		case uint64:
			typ, value = "INT64", fmt.Sprint(v)
		case bool:
			typ, value = "BOOL", fmt.Sprint(v)
		default:
			return nil, fmt.Errorf("query argument %d has unsupported type %T", i, arg)
		}
		params = append(params, &bq.QueryParameter{
			ParameterType:  &bq.QueryParameterType{Type: typ},
			ParameterValue: &bq.QueryParameterValue{Value: value},
		})
	}
	return params, nil
}

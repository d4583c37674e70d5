package bigquery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/option"

	"LinkScanner/internal/domain"
)

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	sqlText, args, err := BuildQuery(QueryOptions{Limit: 25})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sqlText, "SELECT questions.title AS question_title, answers.body, answers.score, answers.id AS answer_id"))
	assert.Contains(t, sqlText, "FROM `bigquery-public-data.stackoverflow.posts_answers` AS answers")
	assert.Contains(t, sqlText, "JOIN `bigquery-public-data.stackoverflow.posts_questions` AS questions ON answers.parent_id = questions.id")
	assert.Contains(t, sqlText, "WHERE answers.body LIKE ?")
	assert.Contains(t, sqlText, "ORDER BY answers.score DESC")
	assert.Contains(t, sqlText, "LIMIT 25")
	assert.Equal(t, []any{"%<a href=%"}, args)
}

func TestBuildQueryRejectsNonPositiveLimit(t *testing.T) {
	t.Parallel()

	_, _, err := BuildQuery(QueryOptions{Limit: 0})
	assert.Error(t, err)
}

func TestToParameters(t *testing.T) {
	t.Parallel()

	params, err := toParameters([]any{"%x%", int64(3)})
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "STRING", params[0].ParameterType.Type)
	assert.Equal(t, "%x%", params[0].ParameterValue.Value)
	assert.Equal(t, "INT64", params[1].ParameterType.Type)
	assert.Equal(t, "3", params[1].ParameterValue.Value)

	_, err = toParameters([]any{3.5})
	assert.Error(t, err)
}

func row(title, body, score, id string) map[string]any {
	return map[string]any{"f": []map[string]any{{"v": title}, {"v": body}, {"v": score}, {"v": id}}}
}

var schema = map[string]any{"fields": []map[string]any{
	{"name": "question_title", "type": "STRING"},
	{"name": "body", "type": "STRING"},
	{"name": "score", "type": "INTEGER"},
	{"name": "answer_id", "type": "INTEGER"},
}}

func newTestSource(t *testing.T, handler http.Handler) *Source {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := bq.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/bigquery/v2/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	src, err := NewSource(svc, Options{
		Project:      "proj",
		Query:        QueryOptions{Limit: 3},
		PollInterval: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return src
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestFetchPollsAndPages(t *testing.T) {
	t.Parallel()

	var polls int32
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/projects/proj/queries"):
			var req bq.QueryRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Contains(t, req.Query, "LIMIT 3")
			assert.Equal(t, "POSITIONAL", req.ParameterMode)
			if assert.NotNil(t, req.UseLegacySql) {
				assert.False(t, *req.UseLegacySql)
			}
			if assert.Len(t, req.QueryParameters, 1) {
				assert.Equal(t, "%<a href=%", req.QueryParameters[0].ParameterValue.Value)
			}

			writeJSON(t, w, map[string]any{
				"jobComplete":  false,
				"jobReference": map[string]any{"projectId": "proj", "jobId": "job-1", "location": "US"},
			})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/projects/proj/queries/job-1"):
			assert.Equal(t, "US", r.URL.Query().Get("location"))
			switch atomic.AddInt32(&polls, 1) {
			case 1:
				writeJSON(t, w, map[string]any{"jobComplete": false})
			case 2:
				assert.Empty(t, r.URL.Query().Get("pageToken"))
				writeJSON(t, w, map[string]any{
					"jobComplete": true,
					"schema":      schema,
					"rows": []any{
						row("Exit vim", `<a href="https://example.com/x">x</a>`, "100", "1"),
						row("Parse HTML", `<a href="https://example.com/y">y</a>`, "90", "2"),
					},
					"pageToken": "page-2",
				})
			default:
				assert.Equal(t, "page-2", r.URL.Query().Get("pageToken"))
				writeJSON(t, w, map[string]any{
					"jobComplete": true,
					"schema":      schema,
					"rows":        []any{row("Regex", `<a href="https://example.com/z">z</a>`, "80", "3")},
				})
			}
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	}))

	var got []domain.SourceRecord
	err := src.Fetch(context.Background(), func(rec domain.SourceRecord) error {
		got = append(got, rec)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, domain.SourceRecord{Title: "Exit vim", Body: `<a href="https://example.com/x">x</a>`, Score: 100, ID: 1}, got[0])
	assert.Equal(t, int64(3), got[2].ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&polls))
}

func TestFetchCompleteOnFirstResponse(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"jobComplete":  true,
			"jobReference": map[string]any{"projectId": "proj", "jobId": "job-2"},
			"schema":       schema,
			"rows":         []any{row("T", "B", "5", "9")},
		})
	}))

	var got []domain.SourceRecord
	require.NoError(t, src.Fetch(context.Background(), func(rec domain.SourceRecord) error {
		got = append(got, rec)
		return nil
	}))
	assert.Equal(t, []domain.SourceRecord{{Title: "T", Body: "B", Score: 5, ID: 9}}, got)
}

func TestFetchSurfacesAPIErrors(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Access Denied"}}`))
	}))

	err := src.Fetch(context.Background(), func(domain.SourceRecord) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Access Denied")
}

func TestDecodeRowRejectsBadInteger(t *testing.T) {
	t.Parallel()

	s := &bq.TableSchema{Fields: []*bq.TableFieldSchema{{Name: "score"}}}
	_, err := decodeRow(s, &bq.TableRow{F: []*bq.TableCell{{V: "lots"}}})
	assert.Error(t, err)
}

func TestNewSourceValidates(t *testing.T) {
	t.Parallel()

	_, err := NewSource(nil, Options{Project: "p"}, nil)
	assert.Error(t, err)

	_, err = NewSource(&bq.Service{}, Options{}, nil)
	assert.Error(t, err)
}

package bigquery

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"

	"LinkScanner/internal/domain"
	"LinkScanner/internal/ports"
)

const (
	defaultPageSize     = 1000
	defaultPollInterval = time.Second
)

// Source streams answer rows out of a BigQuery query job.
type Source struct {
	service      *bq.Service
	project      string
	location     string
	query        QueryOptions
	pageSize     int64
	pollInterval time.Duration
	logger       *slog.Logger
}

var _ ports.RecordSource = (*Source)(nil)

// Options configures the query job.
type Options struct {
	Project      string
	Location     string
	Query        QueryOptions
	PageSize     int64
	PollInterval time.Duration
}

// NewSource wires an authenticated BigQuery service.
func NewSource(service *bq.Service, opts Options, log *slog.Logger) (*Source, error) {
	if service == nil {
		return nil, fmt.Errorf("bigquery service is nil")
	}
	if opts.Project == "" {
		return nil, fmt.Errorf("bigquery project is required")
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Source{
		service:      service,
		project:      opts.Project,
		location:     opts.Location,
		query:        opts.Query,
		pageSize:     opts.PageSize,
		pollInterval: opts.PollInterval,
		logger:       log,
	}, nil
}

type page struct {
	complete bool
	job      *bq.JobReference
	schema   *bq.TableSchema
	rows     []*bq.TableRow
	token    string
}

// Fetch runs the query and emits rows page by page.
func (s *Source) Fetch(ctx context.Context, emit func(domain.SourceRecord) error) error {
	sqlText, args, err := BuildQuery(s.query)
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	params, err := toParameters(args)
	if err != nil {
		return fmt.Errorf("bind query: %w", err)
	}

	s.debug("query", "project", s.project, "sql", sqlText)

	resp, err := s.service.Jobs.Query(s.project, &bq.QueryRequest{
		Query:           sqlText,
		UseLegacySql:    googleapi.Bool(false),
		ParameterMode:   "POSITIONAL",
		QueryParameters: params,
		MaxResults:      s.pageSize,
		Location:        s.location,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}

	current := page{
		complete: resp.JobComplete,
		job:      resp.JobReference,
		schema:   resp.Schema,
		rows:     resp.Rows,
		token:    resp.PageToken,
	}

	var schema *bq.TableSchema
	emitted := 0
	for {
		if current.schema != nil {
			schema = current.schema
		}

		if current.complete {
			for _, row := range current.rows {
				rec, err := decodeRow(schema, row)
				if err != nil {
					return fmt.Errorf("decode row %d: %w", emitted, err)
				}
				if err := emit(rec); err != nil {
					return err
				}
				emitted++
			}
			if current.token == "" {
				s.debug("query done", "rows", emitted)
				return nil
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.pollInterval):
			}
		}

		if current.job == nil {
			return fmt.Errorf("query response has no job reference")
		}
		next, err := s.results(ctx, current.job, current.token)
		if err != nil {
			return err
		}
		next.job = current.job
		current = next
	}
}

func (s *Source) results(ctx context.Context, job *bq.JobReference, token string) (page, error) {
	call := s.service.Jobs.GetQueryResults(s.project, job.JobId).
		MaxResults(s.pageSize).
		Context(ctx)
	if location := job.Location; location != "" {
		call = call.Location(location)
	} else if s.location != "" {
		call = call.Location(s.location)
	}
	if token != "" {
		call = call.PageToken(token)
	}

	resp, err := call.Do()
	if err != nil {
		return page{}, fmt.Errorf("get query results: %w", err)
	}
	return page{
		complete: resp.JobComplete,
		schema:   resp.Schema,
		rows:     resp.Rows,
		token:    resp.PageToken,
	}, nil
}

func decodeRow(schema *bq.TableSchema, row *bq.TableRow) (domain.SourceRecord, error) {
	var rec domain.SourceRecord
	if schema == nil {
		return rec, fmt.Errorf("missing schema")
	}

	for i, field := range schema.Fields {
		if i >= len(row.F) {
			break
		}
		value, _ := row.F[i].V.(string)

		switch field.Name {
		case "question_title":
			rec.Title = value
		case "body":
			rec.Body = value
		case "score":
			n, err := parseInt(field.Name, value)
			if err != nil {
				return rec, err
			}
			rec.Score = n
		case "answer_id":
			n, err := parseInt(field.Name, value)
			if err != nil {
				return rec, err
			}
			rec.ID = n
		}
	}
	return rec, nil
}

func parseInt(name, value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", name, err)
	}
	return n, nil
}

func (s *Source) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGDiagnostics holds the server-side fields of a Postgres error, whichever
// driver produced it.
type PGDiagnostics struct {
	Code       string `json:"pg_code,omitempty"`
	Constraint string `json:"pg_constraint,omitempty"`
	Table      string `json:"pg_table,omitempty"`
	Column     string `json:"pg_column,omitempty"`
	Detail     string `json:"pg_detail,omitempty"`
	Message    string `json:"pg_message,omitempty"`
}

// ErrorDump is a log-friendly snapshot of an error chain.
type ErrorDump struct {
	TopMessage string         `json:"top_message"`
	Code       Code           `json:"code,omitempty"`
	Chain      []string       `json:"chain,omitempty"`
	PG         *PGDiagnostics `json:"pg,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error(), PG: pgDiagnostics(err)}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	return d
}

// Fields flattens the dump into logger fields, omitting empty values.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	if len(d.Chain) > 0 {
		fields["error_chain"] = d.Chain
	}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	if d.PG == nil {
		return fields
	}
	for key, value := range map[string]string{
		"pg_code":       d.PG.Code,
		"pg_constraint": d.PG.Constraint,
		"pg_table":      d.PG.Table,
		"pg_column":     d.PG.Column,
		"pg_detail":     d.PG.Detail,
		"pg_message":    d.PG.Message,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}

func pgDiagnostics(err error) *PGDiagnostics {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PGDiagnostics{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PGDiagnostics{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}

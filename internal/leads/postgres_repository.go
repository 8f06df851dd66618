package leads

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/harborgate/site-api/internal/analytics"
)

const leadColumns = `id, name, email, phone, company, subject, message, source, locale, ip_address, user_agent, status, created_at`

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database. Every
// operation reports its timing to the analytics collector; collection is
// best effort and never fails the operation.
type PostgresRepository struct {
	pool      pgxQuerier
	collector analytics.Collector
	tracer    trace.Tracer
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool, collector analytics.Collector) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return newPostgresRepositoryWithExec(pool, collector, nil)
}

func newPostgresRepositoryWithExec(exec pgxQuerier, collector analytics.Collector, tracer trace.Tracer) *PostgresRepository {
	if exec == nil {
		panic("leads: exec required")
	}
	if collector == nil {
		collector = analytics.NopCollector{}
	}
	if tracer == nil {
		tracer = otel.Tracer("siteapi.internal.leads")
	}
	return &PostgresRepository{pool: exec, collector: collector, tracer: tracer}
}

func (r *PostgresRepository) track(ctx context.Context, op string, start time.Time, metadata map[string]string) {
	r.collector.Track(ctx, analytics.Event{
		Operation: op,
		Table:     "leads",
		Duration:  time.Since(start),
		Metadata:  metadata,
	})
}

// Create inserts one row. Optional fields left nil are stored as NULL and
// status takes the table default.
func (r *PostgresRepository) Create(ctx context.Context, data CreateLeadData) (*Lead, error) {
	ctx, span := r.tracer.Start(ctx, "lead.create")
	defer span.End()

	start := time.Now()
	query := `
		INSERT INTO leads (name, email, phone, company, subject, message, source, locale, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, status, created_at
	`
	lead := &Lead{
		Name:      data.Name,
		Email:     data.Email,
		Phone:     data.Phone,
		Company:   data.Company,
		Subject:   data.Subject,
		Message:   data.Message,
		Source:    data.Source,
		Locale:    data.Locale,
		IPAddress: data.IPAddress,
		UserAgent: data.UserAgent,
	}
	err := r.pool.QueryRow(ctx, query,
		data.Name,
		data.Email,
		data.Phone,
		data.Company,
		data.Subject,
		data.Message,
		data.Source,
		data.Locale,
		data.IPAddress,
		data.UserAgent,
	).Scan(&lead.ID, &lead.Status, &lead.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return nil, &StoreError{Op: "create", Err: err}
	}
	span.SetAttributes(attribute.Int64("lead.id", lead.ID))

	r.track(ctx, "lead.create", start, nil)
	return lead, nil
}

// FindByID fetches a single lead.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*Lead, error) {
	ctx, span := r.tracer.Start(ctx, "lead.findById")
	defer span.End()
	span.SetAttributes(attribute.Int64("lead.id", id))

	start := time.Now()
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		span.RecordError(err)
		return nil, &QueryError{Op: "findById", Err: err}
	}

	r.track(ctx, "lead.findById", start, map[string]string{"id": strconv.FormatInt(id, 10)})
	return lead, nil
}

// FindByEmail returns all leads for an email, newest first.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) ([]*Lead, error) {
	ctx, span := r.tracer.Start(ctx, "lead.findByEmail")
	defer span.End()

	start := time.Now()
	query := `SELECT ` + leadColumns + ` FROM leads WHERE email = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		span.RecordError(err)
		return nil, &QueryError{Op: "findByEmail", Err: err}
	}
	leads, err := collectLeads(rows)
	if err != nil {
		span.RecordError(err)
		return nil, &QueryError{Op: "findByEmail", Err: err}
	}

	r.track(ctx, "lead.findByEmail", start, map[string]string{"email": email})
	return leads, nil
}

// FindAll lists leads, newest first unless the filter asks otherwise.
func (r *PostgresRepository) FindAll(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	ctx, span := r.tracer.Start(ctx, "lead.findAll")
	defer span.End()
	span.SetAttributes(attribute.String("lead.status_filter", filter.Status))

	start := time.Now()

	query := `SELECT ` + leadColumns + ` FROM leads`
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` WHERE status = $1`
	}
	if filter.OrderBy == "asc" {
		query += ` ORDER BY created_at ASC`
	} else {
		query += ` ORDER BY created_at DESC`
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, &QueryError{Op: "findAll", Err: err}
	}
	leads, err := collectLeads(rows)
	if err != nil {
		span.RecordError(err)
		return nil, &QueryError{Op: "findAll", Err: err}
	}

	r.track(ctx, "lead.findAll", start, map[string]string{
		"status": filter.Status,
		"limit":  strconv.Itoa(filter.Limit),
	})
	return leads, nil
}

// Update applies a partial update and returns the updated row.
func (r *PostgresRepository) Update(ctx context.Context, id int64, data UpdateLeadData) (*Lead, error) {
	ctx, span := r.tracer.Start(ctx, "lead.update")
	defer span.End()
	span.SetAttributes(attribute.Int64("lead.id", id))

	start := time.Now()

	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if data.Status != nil {
		add("status", *data.Status)
	}
	if data.Name != nil {
		add("name", *data.Name)
	}
	if data.Email != nil {
		add("email", *data.Email)
	}
	if data.Phone != nil {
		add("phone", *data.Phone)
	}
	if data.Company != nil {
		add("company", *data.Company)
	}
	if data.Subject != nil {
		add("subject", *data.Subject)
	}
	if data.Message != nil {
		add("message", *data.Message)
	}
	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE leads SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), leadColumns)

	lead, err := scanLead(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &StoreError{Op: "update", Err: ErrLeadNotFound}
		}
		span.RecordError(err)
		return nil, &StoreError{Op: "update", Err: err}
	}

	r.track(ctx, "lead.update", start, map[string]string{"id": strconv.FormatInt(id, 10)})
	return lead, nil
}

// UpdateStatus sets only the status field.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int64, status string) (*Lead, error) {
	return r.Update(ctx, id, UpdateLeadData{Status: &status})
}

// Delete removes a lead row.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "lead.delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("lead.id", id))

	start := time.Now()

	ct, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return &StoreError{Op: "delete", Err: err}
	}
	if ct.RowsAffected() == 0 {
		return &StoreError{Op: "delete", Err: ErrLeadNotFound}
	}

	r.track(ctx, "lead.delete", start, map[string]string{"id": strconv.FormatInt(id, 10)})
	return nil
}

// CountByStatus counts leads, optionally filtered by status.
func (r *PostgresRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "lead.countByStatus")
	defer span.End()
	span.SetAttributes(attribute.String("lead.status_filter", status))

	start := time.Now()

	query := `SELECT COUNT(*) FROM leads`
	var args []any
	if status != "" {
		args = append(args, status)
		query += ` WHERE status = $1`
	}

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		span.RecordError(err)
		return 0, &QueryError{Op: "countByStatus", Err: err}
	}

	r.track(ctx, "lead.countByStatus", start, map[string]string{"status": status})
	return count, nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Company,
		&lead.Subject,
		&lead.Message,
		&lead.Source,
		&lead.Locale,
		&lead.IPAddress,
		&lead.UserAgent,
		&lead.Status,
		&lead.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func collectLeads(rows pgx.Rows) ([]*Lead, error) {
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if leads == nil {
		leads = []*Lead{}
	}
	return leads, nil
}

var _ Repository = (*PostgresRepository)(nil)

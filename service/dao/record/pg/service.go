package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/dao"
	"github.com/viant/procureflow/service/dao/record"
)

// Schema creates the records table. Indexed columns mirror the list
// parameters; the full record is kept in document.
const Schema = `CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	record_type TEXT NOT NULL,
	group_key   TEXT NOT NULL DEFAULT '',
	partner_id  TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	revision    BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	document    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS records_tenant_group ON records (tenant_id, group_key);`

// DB is the subset of *pgxpool.Pool used by the service.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service stores records in PostgreSQL, guarding updates with
// UPDATE ... WHERE revision = expected.
type Service struct {
	db DB
}

var _ record.Service = (*Service)(nil)

var columns = map[string]string{
	dao.ParamTenantID:   "tenant_id",
	dao.ParamRecordType: "record_type",
	dao.ParamGroupKey:   "group_key",
	dao.ParamPartnerID:  "partner_id",
	dao.ParamStatus:     "status",
	dao.ParamIDs:        "id",
}

// EnsureSchema creates the records table when missing.
func (s *Service) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	return err
}

// Load reads a record.
func (s *Service) Load(ctx context.Context, id string) (*model.Record, error) {
	var document []byte
	err := s.db.QueryRow(ctx, "SELECT document FROM records WHERE id = $1", id).Scan(&document)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, record.NotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	return decode(document)
}

// Save inserts (expectedRevision == 0) or conditionally updates rec.
func (s *Service) Save(ctx context.Context, rec *model.Record, expectedRevision int64) error {
	if err := record.Check(rec); err != nil {
		return err
	}
	stored := rec.Clone()
	stored.Revision = expectedRevision + 1
	document, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	var tag pgconn.CommandTag
	if expectedRevision == 0 {
		tag, err = s.db.Exec(ctx, `INSERT INTO records (id, tenant_id, record_type, group_key, partner_id, status, revision, created_at, document)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (id) DO NOTHING`,
			stored.ID, stored.TenantID, string(stored.RecordType), stored.GroupKey, stored.PartnerID,
			string(stored.Status), stored.Revision, stored.CreatedAt, document)
	} else {
		tag, err = s.db.Exec(ctx, `UPDATE records SET tenant_id = $2, record_type = $3, group_key = $4, partner_id = $5,
status = $6, revision = $7, document = $8 WHERE id = $1 AND revision = $9`,
			stored.ID, stored.TenantID, string(stored.RecordType), stored.GroupKey, stored.PartnerID,
			string(stored.Status), stored.Revision, document, expectedRevision)
	}
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return record.StaleError(rec.ID, expectedRevision, s.revision(ctx, rec.ID))
	}
	rec.Revision = stored.Revision
	return nil
}

func (s *Service) revision(ctx context.Context, id string) int64 {
	var revision int64
	_ = s.db.QueryRow(ctx, "SELECT revision FROM records WHERE id = $1", id).Scan(&revision)
	return revision
}

// List returns records matching parameters, oldest first.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Record, error) {
	query, args := listQuery(parameters)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()
	var ret []*model.Record
	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, err
		}
		rec, err := decode(document)
		if err != nil {
			return nil, err
		}
		ret = append(ret, rec)
	}
	return ret, rows.Err()
}

func listQuery(parameters []*dao.Parameter) (string, []any) {
	var conditions []string
	var args []any
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		column, ok := columns[parameter.Name]
		if !ok {
			continue
		}
		args = append(args, parameter.Values())
		conditions = append(conditions, fmt.Sprintf("%s = ANY($%d)", column, len(args)))
	}
	query := "SELECT document FROM records"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return query + " ORDER BY created_at, id", args
}

func decode(document []byte) (*model.Record, error) {
	var rec model.Record
	if err := json.Unmarshal(document, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

// New creates a service over db, typically a *pgxpool.Pool.
func New(db DB) *Service {
	return &Service{db: db}
}

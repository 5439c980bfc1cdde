package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"asset-dashboard/internal/models"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const assetColumns = `id::text, name, code, department, staff_name, qty, condition, need_repair,
	funding_source, to_char(purchase_date, 'YYYY-MM-DD'), description, image_urls,
	depreciation, unit_cost, supplier_name, physical_location, created_at`

// Postgres reads and writes the assets table directly over SQL, for
// deployments that reach the hosted database without going through PostgREST.
type Postgres struct {
	db querier
}

// OpenPostgres opens a pgx-backed database/sql handle and verifies it
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func NewPostgres(db querier) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) FetchAll(ctx context.Context) ([]models.Asset, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY id ASC`)
	if err != nil {
		return nil, opError("fetch assets", err)
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, opError("fetch assets", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, opError("fetch assets", err)
	}
	return assets, nil
}

func (p *Postgres) UpdateFields(ctx context.Context, id models.AssetID, changes models.Changes) (*models.Asset, error) {
	type set struct {
		sql string
		val any
	}
	sets := make([]set, 0, len(changes))
	arg := 1
	for _, col := range changes.Columns() {
		f, ok := models.LookupField(col)
		if !ok {
			continue
		}
		val := changes[col]
		placeholder := fmt.Sprintf("$%d", arg)
		switch f.Kind {
		case models.KindList:
			l, _ := val.([]string)
			if l == nil {
				l = []string{}
			}
			val = pq.StringArray(l)
		case models.KindDate:
			placeholder += "::date"
		}
		sets = append(sets, set{fmt.Sprintf("%s = %s", col, placeholder), val})
		arg++
	}
	if len(sets) == 0 {
		return nil, &Error{Op: "update asset", Message: "no fields to update"}
	}

	parts := make([]string, 0, len(sets))
	args := make([]any, 0, len(sets)+1)
	for _, s := range sets {
		parts = append(parts, s.sql)
		args = append(args, s.val)
	}
	args = append(args, id.String())
	sqlStr := fmt.Sprintf("UPDATE assets SET %s WHERE id::text = $%d RETURNING %s",
		strings.Join(parts, ", "), len(args), assetColumns)

	out, err := scanAsset(p.db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		// PostgREST also reports success for a filter that matched nothing
		return nil, nil
	}
	if err != nil {
		return nil, opError("update asset", err)
	}
	return &out, nil
}

func (p *Postgres) Delete(ctx context.Context, id models.AssetID) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM assets WHERE id::text = $1`, id.String()); err != nil {
		return opError("delete asset", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (models.Asset, error) {
	var (
		a      models.Asset
		id     string
		code   sql.NullString
		dept   sql.NullString
		staff  sql.NullString
		qty    sql.NullInt64
		cond   sql.NullString
		repair sql.NullBool
		fund   sql.NullString
		bought sql.NullString
		desc   sql.NullString
		images pq.StringArray
		depr   sql.NullFloat64
		cost   sql.NullFloat64
		supp   sql.NullString
		loc    sql.NullString
	)
	if err := row.Scan(&id, &a.Name, &code, &dept, &staff, &qty, &cond, &repair,
		&fund, &bought, &desc, &images, &depr, &cost, &supp, &loc, &a.CreatedAt); err != nil {
		return a, err
	}

	a.ID = models.AssetID(id)
	a.Code = nullString(code)
	a.Department = nullString(dept)
	a.StaffName = nullString(staff)
	if qty.Valid {
		n := int(qty.Int64)
		a.Qty = &n
	}
	a.Condition = nullString(cond)
	if repair.Valid {
		a.NeedRepair = &repair.Bool
	}
	a.FundingSource = nullString(fund)
	a.PurchaseDate = nullString(bought)
	a.Description = nullString(desc)
	if len(images) > 0 {
		a.ImageURLs = []string(images)
	}
	if depr.Valid {
		a.Depreciation = &depr.Float64
	}
	if cost.Valid {
		a.UnitCost = &cost.Float64
	}
	a.SupplierName = nullString(supp)
	a.PhysicalLocation = nullString(loc)
	return a, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

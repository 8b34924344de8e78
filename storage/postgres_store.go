package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"restaurant-collector/models"
	"restaurant-collector/utils"
)

// PostgresStore persists restaurants to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, makes sure the schema
// exists, and returns a ready-to-use PostgresStore.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		if utils.SleepContext(ctx, 2*time.Second) != nil {
			break
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

// migrate creates the enums and the restaurants table when the application
// schema has not been applied yet. Existing objects are left alone.
func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		DO $$ BEGIN
			CREATE TYPE category_enum AS ENUM
				('korean', 'cafe', 'streetFood', 'bbq', 'seafood', 'dessert', 'noodles', 'chicken');
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$;

		DO $$ BEGIN
			CREATE TYPE price_enum AS ENUM ('cheap', 'moderate', 'expensive');
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$;

		CREATE TABLE IF NOT EXISTS restaurants (
			id                SERIAL PRIMARY KEY,
			name              TEXT          NOT NULL,
			name_en           TEXT,
			name_zh_tw        TEXT,
			name_zh_cn        TEXT,
			category          category_enum NOT NULL,
			address           TEXT          NOT NULL,
			address_en        TEXT,
			address_zh_tw     TEXT,
			address_zh_cn     TEXT,
			phone             VARCHAR(20),
			rating            INTEGER       NOT NULL DEFAULT 0,
			review_count      INTEGER       NOT NULL DEFAULT 0,
			price             price_enum    NOT NULL,
			hours             TEXT,
			description       TEXT,
			description_en    TEXT,
			description_zh_tw TEXT,
			description_zh_cn TEXT,
			image             TEXT,
			latitude          VARCHAR(20)   NOT NULL,
			longitude         VARCHAR(20)   NOT NULL,
			created_at        TIMESTAMP     NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMP     NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

// LoadExisting returns the id/name/address/coordinates projection of every
// stored restaurant.
func (ps *PostgresStore) LoadExisting(ctx context.Context) ([]models.ExistingRecord, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, name, address, latitude, longitude
		FROM restaurants
		ORDER BY id
	`)
	if err != nil {
		return nil, &PersistenceError{Op: "load existing", Err: err}
	}
	defer rows.Close()

	var existing []models.ExistingRecord
	for rows.Next() {
		var r models.ExistingRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Address, &r.Latitude, &r.Longitude); err != nil {
			return nil, &PersistenceError{Op: "scan existing", Err: err}
		}
		existing = append(existing, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "load existing", Err: err}
	}
	return existing, nil
}

const insertQuery = `
	INSERT INTO restaurants (
		name, name_en, name_zh_tw, name_zh_cn,
		category, address, address_en, address_zh_tw, address_zh_cn,
		phone, rating, review_count, price, hours,
		description, description_en, description_zh_tw, description_zh_cn,
		image, latitude, longitude
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9,
		$10, $11, $12, $13, $14,
		$15, $16, $17, $18,
		$19, $20, $21
	)
	RETURNING id
`

// Insert stores a new restaurant and returns its id.
func (ps *PostgresStore) Insert(ctx context.Context, c *models.Candidate) (int64, error) {
	var id int64
	err := ps.db.QueryRowContext(ctx, insertQuery, InsertArgs(c)...).Scan(&id)
	if err != nil {
		return 0, &PersistenceError{Op: "insert", Name: c.Name, Err: err}
	}
	return id, nil
}

// InsertArgs returns the positional arguments of insertQuery.
func InsertArgs(c *models.Candidate) []any {
	return []any{
		c.Name, c.NameEn, c.NameZhTw, c.NameZhCn,
		string(c.Category), c.Address, c.AddressEn, c.AddressZhTw, c.AddressZhCn,
		c.Phone, c.Rating, c.ReviewCount, string(c.Price), c.Hours,
		c.Description, c.DescriptionEn, c.DescriptionZhTw, c.DescriptionZhCn,
		c.Image, c.Latitude, c.Longitude,
	}
}

// updateQuery never replaces a stored value with NULL or zero.
const updateQuery = `
	UPDATE restaurants SET
		name_en           = COALESCE($2, name_en),
		name_zh_tw        = COALESCE($3, name_zh_tw),
		name_zh_cn        = COALESCE($4, name_zh_cn),
		category          = $5,
		address_en        = COALESCE($6, address_en),
		address_zh_tw     = COALESCE($7, address_zh_tw),
		address_zh_cn     = COALESCE($8, address_zh_cn),
		phone             = COALESCE($9, phone),
		rating            = CASE WHEN $10::integer > 0 THEN $10::integer ELSE rating END,
		review_count      = CASE WHEN $11::integer > 0 THEN $11::integer ELSE review_count END,
		price             = $12,
		hours             = COALESCE($13, hours),
		description       = COALESCE($14, description),
		description_en    = COALESCE($15, description_en),
		description_zh_tw = COALESCE($16, description_zh_tw),
		description_zh_cn = COALESCE($17, description_zh_cn),
		image             = COALESCE($18, image),
		updated_at        = NOW()
	WHERE id = $1
`

// Update merges c into the stored row id.
func (ps *PostgresStore) Update(ctx context.Context, id int64, c *models.Candidate) error {
	res, err := ps.db.ExecContext(ctx, updateQuery, UpdateArgs(id, c)...)
	if err != nil {
		return &PersistenceError{Op: "update", Name: c.Name, Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &PersistenceError{Op: "update", Name: c.Name, Err: fmt.Errorf("no restaurant with id %d", id)}
	}
	return nil
}

// UpdateArgs returns the positional arguments of updateQuery.
func UpdateArgs(id int64, c *models.Candidate) []any {
	return []any{
		id, c.NameEn, c.NameZhTw, c.NameZhCn,
		string(c.Category), c.AddressEn, c.AddressZhTw, c.AddressZhCn,
		c.Phone, c.Rating, c.ReviewCount, string(c.Price), c.Hours,
		c.Description, c.DescriptionEn, c.DescriptionZhTw, c.DescriptionZhCn,
		c.Image,
	}
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

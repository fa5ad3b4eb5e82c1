package database

import (
	"context"
	"database/sql"

	"github.com/baely/bezos/internal/common/errors"
	"github.com/baely/bezos/internal/merchant/models"
)

// Client stores merchants in a SQL database
type Client struct {
	db      *sql.DB
	dialect dialect
}

// NewClient opens the database and creates the merchant table if it is missing
func NewClient(ctx context.Context, driver, dsn string) (*Client, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, errors.Mark(errors.ErrInvalidInput, "unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open %s database", driver)
	}
	if driver == DriverSQLite {
		// one writer avoids "database is locked" and keeps :memory: on a single connection
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to %s database", driver)
	}

	if _, err := db.ExecContext(ctx, d.createTable); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create merchant table")
	}

	return &Client{
		db:      db,
		dialect: d,
	}, nil
}

// Close releases the database handle
func (c *Client) Close() error {
	return c.db.Close()
}

// FindByName returns the merchant with the given name or ErrNotFound
func (c *Client) FindByName(ctx context.Context, name string) (models.Merchant, error) {
	q := c.dialect.rebind(`SELECT id, merchant, is_bezos_related FROM merchant WHERE merchant = ?`)

	var m models.Merchant
	err := c.db.QueryRowContext(ctx, q, name).Scan(&m.ID, &m.Name, &m.IsBezosRelated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Merchant{}, errors.Wrap(errors.ErrNotFound, "merchant %q", name)
	}
	if err != nil {
		return models.Merchant{}, errors.Wrap(err, "failed to find merchant %q", name)
	}
	return m, nil
}

// Insert stores a new merchant and returns it with its assigned id
func (c *Client) Insert(ctx context.Context, m models.Merchant) (models.Merchant, error) {
	q := c.dialect.rebind(`INSERT INTO merchant (merchant, is_bezos_related) VALUES (?, ?) RETURNING id`)

	err := c.db.QueryRowContext(ctx, q, m.Name, m.IsBezosRelated).Scan(&m.ID)
	if err != nil {
		if c.dialect.isUniqueViolation(err) {
			return models.Merchant{}, errors.Wrap(errors.ErrAlreadyExists, "merchant %q", m.Name)
		}
		return models.Merchant{}, errors.Wrap(err, "failed to insert merchant %q", m.Name)
	}
	return m, nil
}

// Update overwrites the stored merchant with the same id
func (c *Client) Update(ctx context.Context, m models.Merchant) (models.Merchant, error) {
	q := c.dialect.rebind(`UPDATE merchant SET merchant = ?, is_bezos_related = ? WHERE id = ?`)

	res, err := c.db.ExecContext(ctx, q, m.Name, m.IsBezosRelated, m.ID)
	if err != nil {
		if c.dialect.isUniqueViolation(err) {
			return models.Merchant{}, errors.Wrap(errors.ErrAlreadyExists, "merchant %q", m.Name)
		}
		return models.Merchant{}, errors.Wrap(err, "failed to update merchant %d", m.ID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return models.Merchant{}, errors.Wrap(err, "failed to update merchant %d", m.ID)
	}
	if n == 0 {
		return models.Merchant{}, errors.Wrap(errors.ErrNotFound, "merchant %d", m.ID)
	}
	return m, nil
}

// ListBezosRelated returns every flagged merchant ordered by id
func (c *Client) ListBezosRelated(ctx context.Context) ([]models.Merchant, error) {
	q := c.dialect.rebind(`SELECT id, merchant, is_bezos_related FROM merchant WHERE is_bezos_related = ? ORDER BY id ASC`)

	rows, err := c.db.QueryContext(ctx, q, true)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list merchants")
	}
	defer rows.Close()

	merchants := make([]models.Merchant, 0)
	for rows.Next() {
		var m models.Merchant
		if err := rows.Scan(&m.ID, &m.Name, &m.IsBezosRelated); err != nil {
			return nil, errors.Wrap(err, "failed to scan merchant")
		}
		merchants = append(merchants, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to list merchants")
	}
	return merchants, nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/savvydealshub/SavvyDealsHub/internal/models"
	"github.com/savvydealshub/SavvyDealsHub/internal/pricing"
)

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// requiredTables are checked by the readiness probe.
var requiredTables = []string{"offers", "click_events"}

// initSchema creates the necessary tables if they don't exist.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS offers (
			id TEXT PRIMARY KEY,
			sku TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			category TEXT NOT NULL,
			price REAL,
			shipping_price REAL,
			shipping_included INTEGER NOT NULL DEFAULT 0,
			condition TEXT NOT NULL DEFAULT 'Unknown',
			membership_required INTEGER NOT NULL DEFAULT 0,
			membership_type TEXT NOT NULL DEFAULT '',
			is_sponsored INTEGER NOT NULL DEFAULT 0,
			sponsor_label TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS click_events (
			id TEXT PRIMARY KEY,
			offer_id TEXT,
			retailer TEXT NOT NULL,
			category TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			cta TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_offers_category ON offers(category)`,
		`CREATE INDEX IF NOT EXISTS idx_clicks_created_at ON click_events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_clicks_retailer ON click_events(retailer)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// UpsertOffer creates or updates an offer keyed by SKU.
func (db *DB) UpsertOffer(ctx context.Context, offer models.Offer) error {
	query := `INSERT INTO offers (
		id, sku, title, description, image_url, url, category,
		price, shipping_price, shipping_included, condition,
		membership_required, membership_type, is_sponsored, sponsor_label,
		source, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(sku) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		image_url = excluded.image_url,
		url = excluded.url,
		category = excluded.category,
		price = excluded.price,
		shipping_price = excluded.shipping_price,
		shipping_included = excluded.shipping_included,
		condition = excluded.condition,
		membership_required = excluded.membership_required,
		membership_type = excluded.membership_type,
		is_sponsored = excluded.is_sponsored,
		sponsor_label = excluded.sponsor_label,
		source = excluded.source,
		updated_at = excluded.updated_at`

	updatedAt := offer.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(
		ctx,
		query,
		offer.ID,
		offer.SKU,
		offer.Title,
		offer.Description,
		offer.ImageURL,
		offer.URL,
		offer.Category,
		amountToNull(offer.Price),
		amountToNull(offer.ShippingPrice),
		offer.ShippingIncluded,
		string(offer.Condition),
		offer.MembershipRequired,
		string(offer.MembershipType),
		offer.IsSponsored,
		offer.SponsorLabel,
		offer.Source,
		updatedAt.Format(time.RFC3339),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert offer: %w", err)
	}

	return nil
}

// OfferQuery filters ListOffers.
type OfferQuery struct {
	Category string
	Search   string
	Limit    int
}

// ListOffers returns catalog offers matching the query. Search matches
// title, description and SKU case-insensitively.
func (db *DB) ListOffers(ctx context.Context, q OfferQuery) ([]models.Offer, error) {
	query := `SELECT id, sku, title, description, image_url, url, category,
		price, shipping_price, shipping_included, condition,
		membership_required, membership_type, is_sponsored, sponsor_label,
		source, updated_at
		FROM offers`

	var (
		conds []string
		args  []interface{}
	)
	if q.Category != "" {
		conds = append(conds, "LOWER(category) = LOWER(?)")
		args = append(args, q.Category)
	}
	if q.Search != "" {
		conds = append(conds, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(sku) LIKE ?)")
		needle := "%" + strings.ToLower(q.Search) + "%"
		args = append(args, needle, needle, needle)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY updated_at DESC"

	limit := q.Limit
	if limit <= 0 {
		limit = 200
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	defer rows.Close()

	var offers []models.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offers: %w", err)
	}

	return offers, nil
}

func scanOffer(rows *sql.Rows) (models.Offer, error) {
	var (
		offer          models.Offer
		price          sql.NullFloat64
		shipping       sql.NullFloat64
		condition      string
		membershipType string
		updatedAtStr   string
	)

	err := rows.Scan(
		&offer.ID,
		&offer.SKU,
		&offer.Title,
		&offer.Description,
		&offer.ImageURL,
		&offer.URL,
		&offer.Category,
		&price,
		&shipping,
		&offer.ShippingIncluded,
		&condition,
		&offer.MembershipRequired,
		&membershipType,
		&offer.IsSponsored,
		&offer.SponsorLabel,
		&offer.Source,
		&updatedAtStr,
	)
	if err != nil {
		return models.Offer{}, fmt.Errorf("failed to scan offer: %w", err)
	}

	offer.Price = nullToAmount(price)
	offer.ShippingPrice = nullToAmount(shipping)
	offer.Condition = models.Condition(condition)
	offer.MembershipType = models.MembershipType(membershipType)

	if t, err := time.Parse(time.RFC3339, updatedAtStr); err == nil {
		offer.UpdatedAt = t
	}

	return offer, nil
}

// InsertClickEvent records one outbound click.
func (db *DB) InsertClickEvent(ctx context.Context, click models.ClickEvent) error {
	query := `INSERT INTO click_events (id, offer_id, retailer, category, source, cta, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(
		ctx,
		query,
		click.ID,
		click.OfferID,
		click.Retailer,
		click.Category,
		click.Source,
		click.CTA,
		click.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert click event: %w", err)
	}

	return nil
}

// CountClicksSince returns the total click count in the window.
func (db *DB) CountClicksSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := db.conn.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM click_events WHERE created_at >= ?`,
		since.UTC().Format(time.RFC3339),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}

// clickGroupColumns limits GroupClicksSince to real columns; the column
// name is interpolated, so it must come from this set.
var clickGroupColumns = map[string]bool{
	"retailer": true,
	"category": true,
	"source":   true,
	"cta":      true,
}

// GroupClicksSince groups clicks in the window by one column, most
// clicked first.
func (db *DB) GroupClicksSince(ctx context.Context, column string, since time.Time, limit int) ([]models.NameCount, error) {
	if !clickGroupColumns[column] {
		return nil, fmt.Errorf("cannot group clicks by %q", column)
	}
	if limit <= 0 {
		limit = 10
	}

	query := fmt.Sprintf(
		`SELECT %s, COUNT(*) AS clicks FROM click_events
		WHERE created_at >= ?
		GROUP BY %s
		ORDER BY clicks DESC, %s ASC
		LIMIT ?`,
		column, column, column,
	)

	rows, err := db.conn.QueryContext(ctx, query, since.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to group clicks by %s: %w", column, err)
	}
	defer rows.Close()

	var result []models.NameCount
	for rows.Next() {
		var nc models.NameCount
		if err := rows.Scan(&nc.Name, &nc.Clicks); err != nil {
			return nil, fmt.Errorf("failed to scan click group: %w", err)
		}
		if nc.Name == "" {
			nc.Name = "unknown"
		}
		result = append(result, nc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating click groups: %w", err)
	}

	return result, nil
}

// GroupClicksByRetailerBetween counts clicks per retailer in [from, to).
func (db *DB) GroupClicksByRetailerBetween(ctx context.Context, from, to time.Time) (map[string]int, error) {
	rows, err := db.conn.QueryContext(
		ctx,
		`SELECT retailer, COUNT(*) FROM click_events
		WHERE created_at >= ? AND created_at < ?
		GROUP BY retailer`,
		from.UTC().Format(time.RFC3339),
		to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to group clicks by retailer: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var (
			retailer string
			count    int
		)
		if err := rows.Scan(&retailer, &count); err != nil {
			return nil, fmt.Errorf("failed to scan retailer clicks: %w", err)
		}
		result[retailer] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating retailer clicks: %w", err)
	}

	return result, nil
}

// Readiness reports whether the database is reachable and the schema is
// applied. A reachable database with missing tables means migrations did
// not run or the wrong database is configured.
func (db *DB) Readiness(ctx context.Context) models.HealthStatus {
	tables := make(map[string]bool, len(requiredTables))
	for _, t := range requiredTables {
		tables[t] = false
	}

	if err := db.conn.PingContext(ctx); err != nil {
		return models.HealthStatus{OK: false, Ready: false, Tables: tables, Error: err.Error()}
	}

	rows, err := db.conn.QueryContext(
		ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table'`,
	)
	if err != nil {
		return models.HealthStatus{OK: false, Ready: false, Tables: tables, Error: err.Error()}
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return models.HealthStatus{OK: false, Ready: false, Tables: tables, Error: err.Error()}
		}
		if _, required := tables[name]; required {
			tables[name] = true
		}
	}

	ready := true
	for _, present := range tables {
		if !present {
			ready = false
			break
		}
	}

	return models.HealthStatus{OK: true, Ready: ready, Tables: tables}
}

func amountToNull(a pricing.Amount) sql.NullFloat64 {
	return sql.NullFloat64{Float64: a.Value, Valid: a.Valid}
}

func nullToAmount(n sql.NullFloat64) pricing.Amount {
	if !n.Valid {
		return pricing.Amount{}
	}
	return pricing.AmountOf(n.Float64)
}

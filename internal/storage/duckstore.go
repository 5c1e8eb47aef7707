package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/machine-analytics/backend/internal/models"
	"github.com/marcboeker/go-duckdb"
	"github.com/vmihailenco/msgpack/v5"
)

// DuckOptions tunes the DuckDB connection.
type DuckOptions struct {
	Threads     int
	MemoryLimit string
	// MaxConcurrentQueries bounds simultaneous read queries.
	MaxConcurrentQueries int
}

// DuckStore implements Repository on a DuckDB file.
type DuckStore struct {
	db  *sql.DB
	log *slog.Logger

	// Semaphore to limit concurrent queries
	querySem chan struct{}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS machine (
		id                VARCHAR PRIMARY KEY,
		name              VARCHAR NOT NULL,
		status_name       VARCHAR,
		machine_type      VARCHAR,
		data_updated_time TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS bearing (
		id            VARCHAR PRIMARY KEY,
		machine_id    VARCHAR NOT NULL,
		location_type VARCHAR,
		status_name   VARCHAR,
		name          VARCHAR,
		location      VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS data (
		id         VARCHAR PRIMARY KEY,
		bearing_id VARCHAR NOT NULL,
		ts         BIGINT NOT NULL,
		rpm        DOUBLE NOT NULL,
		raw_data   BLOB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_data_bearing_ts ON data(bearing_id, ts)`,
}

// OpenDuckStore opens (or creates) the DuckDB file at dbPath and ensures the schema.
func OpenDuckStore(dbPath string, opts DuckOptions, log *slog.Logger) (*DuckStore, error) {
	if opts.Threads <= 0 {
		opts.Threads = 4
	}
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = "1GB"
	}

	log.Info("opening duckdb", "path", dbPath, "threads", opts.Threads, "memory_limit", opts.MemoryLimit)

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	ds := NewDuckStoreFromDB(sql.OpenDB(connector), opts.MaxConcurrentQueries, log)
	if err := ds.ensureSchema(context.Background()); err != nil {
		ds.db.Close()
		return nil, err
	}
	return ds, nil
}

// NewDuckStoreFromDB wraps an already-open database whose schema exists.
func NewDuckStoreFromDB(db *sql.DB, maxConcurrent int, log *slog.Logger) *DuckStore {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &DuckStore{
		db:       db,
		log:      log.With("component", "duckstore"),
		querySem: make(chan struct{}, maxConcurrent),
	}
}

func (ds *DuckStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := ds.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// acquire blocks until a query slot is free or ctx is done.
func (ds *DuckStore) acquire(ctx context.Context) (func(), error) {
	select {
	case ds.querySem <- struct{}{}:
		return func() { <-ds.querySem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

const machineColumns = `id, name, status_name, machine_type, data_updated_time`

// ListMachines returns all machines ordered by name.
func (ds *DuckStore) ListMachines(ctx context.Context) ([]models.Machine, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := ds.db.QueryContext(ctx, `SELECT `+machineColumns+` FROM machine ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	defer rows.Close()

	machines := make([]models.Machine, 0)
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, err
		}
		machines = append(machines, m)
	}
	return machines, rows.Err()
}

// GetMachine retrieves a machine by ID.
func (ds *DuckStore) GetMachine(ctx context.Context, id string) (models.Machine, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return models.Machine{}, err
	}
	defer release()

	row := ds.db.QueryRowContext(ctx, `SELECT `+machineColumns+` FROM machine WHERE id = ?`, id)
	m, err := scanMachine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Machine{}, fmt.Errorf("machine %s: %w", id, ErrNotFound)
	}
	return m, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMachine(row rowScanner) (models.Machine, error) {
	var (
		m         models.Machine
		status    sql.NullString
		machType  sql.NullString
		updatedAt sql.NullTime
	)
	if err := row.Scan(&m.ID, &m.Name, &status, &machType, &updatedAt); err != nil {
		return models.Machine{}, err
	}
	m.StatusName = status.String
	m.MachineType = machType.String
	if updatedAt.Valid {
		t := updatedAt.Time
		m.DataUpdatedTime = &t
	}
	return m, nil
}

// ListBearings returns the bearings of a machine ordered by ID.
func (ds *DuckStore) ListBearings(ctx context.Context, machineID string) ([]models.Bearing, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := ds.db.QueryContext(ctx, `SELECT id, machine_id, location_type, status_name, name, location FROM bearing WHERE machine_id = ? ORDER BY id`, machineID)
	if err != nil {
		return nil, fmt.Errorf("list bearings: %w", err)
	}
	defer rows.Close()

	bearings := make([]models.Bearing, 0)
	for rows.Next() {
		var (
			b                               models.Bearing
			locType, status, name, location sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.MachineID, &locType, &status, &name, &location); err != nil {
			return nil, err
		}
		b.BearingLocationType = locType.String
		b.StatusName = status.String
		b.Name = name.String
		b.Location = location.String
		bearings = append(bearings, b)
	}
	return bearings, rows.Err()
}

// ListReadings returns a bearing's readings ordered by timestamp.
func (ds *DuckStore) ListReadings(ctx context.Context, bearingID string) ([]models.Reading, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := ds.db.QueryContext(ctx, `SELECT id, bearing_id, ts, rpm, raw_data FROM data WHERE bearing_id = ? ORDER BY ts, id`, bearingID)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	defer rows.Close()

	readings := make([]models.Reading, 0)
	for rows.Next() {
		var (
			r   models.Reading
			ts  int64
			raw []byte
		)
		if err := rows.Scan(&r.ID, &r.BearingID, &ts, &r.RPM, &raw); err != nil {
			return nil, err
		}
		r.Timestamp = &ts
		if r.RawData, err = decodeSamples(raw); err != nil {
			return nil, fmt.Errorf("reading %s: %w", r.ID, err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// SaveMachines inserts or replaces machines in one transaction.
func (ds *DuckStore) SaveMachines(ctx context.Context, machines []models.Machine) error {
	if len(machines) == 0 {
		return nil
	}
	return ds.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO machine (`+machineColumns+`) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, m := range machines {
			var updated any
			if m.DataUpdatedTime != nil {
				updated = *m.DataUpdatedTime
			}
			if _, err := stmt.ExecContext(ctx, m.ID, m.Name, m.StatusName, m.MachineType, updated); err != nil {
				return fmt.Errorf("save machine %s: %w", m.ID, err)
			}
		}
		return nil
	})
}

// SaveBearings inserts or replaces bearings in one transaction.
func (ds *DuckStore) SaveBearings(ctx context.Context, bearings []models.Bearing) error {
	if len(bearings) == 0 {
		return nil
	}
	return ds.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO bearing (id, machine_id, location_type, status_name, name, location) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range bearings {
			if _, err := stmt.ExecContext(ctx, b.ID, b.MachineID, b.BearingLocationType, b.StatusName, b.Name, b.Location); err != nil {
				return fmt.Errorf("save bearing %s: %w", b.ID, err)
			}
		}
		return nil
	})
}

// AppendReadings writes readings using the native Appender API when the
// underlying connection is DuckDB, and batched INSERTs otherwise. Readings
// whose ID is already stored are skipped; the count covers new rows only.
func (ds *DuckStore) AppendReadings(ctx context.Context, readings []models.Reading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	rows := make([][]driver.Value, 0, len(readings))
	seen := make(map[string]struct{}, len(readings))
	for i, r := range readings {
		if r.Timestamp == nil {
			return 0, fmt.Errorf("reading %d: %w", i, ErrMissingTimestamp)
		}
		raw, err := encodeSamples(r.RawData)
		if err != nil {
			return 0, fmt.Errorf("reading %d: %w", i, err)
		}
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, []driver.Value{id, r.BearingID, *r.Timestamp, r.RPM, raw})
	}

	start := time.Now()
	conn, err := ds.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	native := false
	if err := conn.Raw(func(driverConn any) error {
		_, native = driverConn.(*duckdb.Conn)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("failed to inspect connection: %w", err)
	}

	var stored int
	if native {
		stored, err = ds.appendStaged(ctx, conn, rows)
	} else {
		stored, err = insertRows(ctx, conn, rows)
	}
	if err != nil {
		return 0, err
	}

	ds.log.Debug("readings appended", "count", stored, "skipped", len(readings)-stored, "elapsed", time.Since(start), "appender", native)
	return stored, nil
}

// appendStaged bulk-loads rows into a scratch table with the Appender, then
// merges them into data, leaving rows with an existing ID untouched.
func (ds *DuckStore) appendStaged(ctx context.Context, conn *sql.Conn, rows [][]driver.Value) (int, error) {
	stage := "data_stage_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	if _, err := conn.ExecContext(ctx, `CREATE TABLE `+stage+` (id VARCHAR, bearing_id VARCHAR, ts BIGINT, rpm DOUBLE, raw_data BLOB)`); err != nil {
		return 0, fmt.Errorf("failed to create staging table: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), `DROP TABLE IF EXISTS `+stage); err != nil {
			ds.log.Warn("failed to drop staging table", "table", stage, "error", err)
		}
	}()

	err := conn.Raw(func(driverConn any) error {
		appender, err := duckdb.NewAppenderFromConn(driverConn.(*duckdb.Conn), "", stage)
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i, row := range rows {
			if err := appender.AppendRow(row...); err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return 0, fmt.Errorf("appender error: %w", err)
	}

	var existing int
	if err := conn.QueryRowContext(ctx, `SELECT count(*) FROM `+stage+` s JOIN data d ON d.id = s.id`).Scan(&existing); err != nil {
		return 0, fmt.Errorf("failed to count existing readings: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `INSERT OR IGNORE INTO data SELECT id, bearing_id, ts, rpm, raw_data FROM `+stage); err != nil {
		return 0, fmt.Errorf("failed to merge readings: %w", err)
	}
	return len(rows) - existing, nil
}

func insertRows(ctx context.Context, conn *sql.Conn, rows [][]driver.Value) (int, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO data (id, bearing_id, ts, rpm, raw_data) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	stored := 0
	for i, row := range rows {
		args := make([]any, len(row))
		for j, v := range row {
			args[j] = v
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert reading %d: %w", i, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			stored += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return stored, nil
}

func (ds *DuckStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database.
func (ds *DuckStore) Close() error {
	return ds.db.Close()
}

func encodeSamples(samples []float64) ([]byte, error) {
	if samples == nil {
		samples = []float64{}
	}
	return msgpack.Marshal(samples)
}

func decodeSamples(raw []byte) ([]float64, error) {
	samples := []float64{}
	if len(raw) == 0 {
		return samples, nil
	}
	if err := msgpack.Unmarshal(raw, &samples); err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}
	return samples, nil
}

var _ Repository = (*DuckStore)(nil)

package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/zwickfi/zwickfi/internal/logger"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// MigrationsTable records applied migrations inside the analytics dataset.
const MigrationsTable = "schema_migrations"

var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is a single versioned SQL file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of the migrations table.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// MigrationVars fill the placeholders of migration files. ForecastView is a
// dataset.view name; its dataset also holds the migrations table.
type MigrationVars struct {
	Project       string
	MonarchSchema string
	ForecastView  string
}

// AnalyticsSchema is the dataset part of ForecastView.
func (v MigrationVars) AnalyticsSchema() string {
	schema, _, _ := strings.Cut(v.view(), ".")
	return schema
}

func (v MigrationVars) view() string {
	if v.ForecastView == "" {
		return DefaultForecastView
	}
	return v.ForecastView
}

func (v MigrationVars) validate() error {
	if v.Project == "" || v.MonarchSchema == "" {
		return fmt.Errorf("project and monarch schema are required")
	}
	if !viewPattern.MatchString(v.view()) {
		return fmt.Errorf("invalid view name %q, want dataset.view", v.view())
	}
	return nil
}

func (v MigrationVars) expand(sql string) string {
	return strings.NewReplacer(
		"{{PROJECT_ID}}", v.Project,
		"{{MONARCH_SCHEMA}}", v.MonarchSchema,
		"{{ANALYTICS_SCHEMA}}", v.AnalyticsSchema(),
		"{{FORECAST_VIEW}}", v.view(),
	).Replace(sql)
}

// EmbeddedMigrations returns the migrations shipped with the binary.
func EmbeddedMigrations(vars MigrationVars) ([]Migration, error) {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("EmbeddedMigrations: %w", err)
	}
	return ReadMigrations(sub, vars)
}

// ReadMigrations reads NNNN_name.sql files from fsys in version order. The
// checksum covers the file before placeholder expansion.
func ReadMigrations(fsys fs.FS, vars MigrationVars) ([]Migration, error) {
	if err := vars.validate(); err != nil {
		return nil, fmt.Errorf("ReadMigrations: %w", err)
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("ReadMigrations: reading directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := migrationPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		version, _ := strconv.Atoi(m[1])
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("ReadMigrations: version %04d used by %s and %s", version, prev, e.Name())
		}
		seen[version] = e.Name()

		content, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("ReadMigrations: reading %s: %w", e.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     m[2],
			Filename: e.Name(),
			SQL:      vars.expand(string(content)),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Pending returns the migrations whose version has not been applied. A
// changed checksum on an applied version is an error.
func Pending(all []Migration, applied []AppliedMigration) ([]Migration, error) {
	done := make(map[int]AppliedMigration, len(applied))
	for _, a := range applied {
		done[a.Version] = a
	}

	var pending []Migration
	for _, m := range all {
		a, ok := done[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if a.Checksum != "" && a.Checksum != m.Checksum {
			return nil, fmt.Errorf("Pending: migration %04d_%s changed since it was applied", m.Version, m.Name)
		}
	}
	return pending, nil
}

// ApplyMigrationsWithClient runs every pending migration in order and records
// it, returning the number applied.
func ApplyMigrationsWithClient(ctx context.Context, client *bigquery.Client, vars MigrationVars, migrations []Migration, appliedBy string) (int, error) {
	log := logger.FromContext(ctx)

	if err := vars.validate(); err != nil {
		return 0, fmt.Errorf("ApplyMigrationsWithClient: %w", err)
	}
	if err := ensureMigrationsTable(ctx, client, vars); err != nil {
		return 0, fmt.Errorf("ApplyMigrationsWithClient: %w", err)
	}
	applied, err := appliedMigrations(ctx, client, vars)
	if err != nil {
		return 0, fmt.Errorf("ApplyMigrationsWithClient: %w", err)
	}
	pending, err := Pending(migrations, applied)
	if err != nil {
		return 0, fmt.Errorf("ApplyMigrationsWithClient: %w", err)
	}

	for _, m := range pending {
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applying migration")
		if err := runQuery(ctx, client.Query(m.SQL)); err != nil {
			return 0, fmt.Errorf("ApplyMigrationsWithClient: %04d_%s: %w", m.Version, m.Name, err)
		}
		if err := recordMigration(ctx, client, vars, m, appliedBy); err != nil {
			return 0, fmt.Errorf("ApplyMigrationsWithClient: recording %04d_%s: %w", m.Version, m.Name, err)
		}
	}
	return len(pending), nil
}

func migrationsTableRef(vars MigrationVars) string {
	return "`" + vars.Project + "." + vars.AnalyticsSchema() + "." + MigrationsTable + "`"
}

func ensureMigrationsTable(ctx context.Context, client *bigquery.Client, vars MigrationVars) error {
	q := client.Query(`
		CREATE TABLE IF NOT EXISTS ` + migrationsTableRef(vars) + ` (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)`)
	if err := runQuery(ctx, q); err != nil {
		return fmt.Errorf("creating %s: %w", MigrationsTable, err)
	}
	return nil
}

func appliedMigrations(ctx context.Context, client *bigquery.Client, vars MigrationVars) ([]AppliedMigration, error) {
	q := client.Query(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM ` + migrationsTableRef(vars) + `
		ORDER BY version ASC`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, vars MigrationVars, m Migration, appliedBy string) error {
	q := client.Query(`
		INSERT INTO ` + migrationsTableRef(vars) + `
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	return runQuery(ctx, q)
}

func runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

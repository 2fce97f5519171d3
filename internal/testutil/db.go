// internal/testutil/db.go
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB holds the test database connection and container
type TestDB struct {
	DB        *sqlx.DB
	ConnStr   string
	container testcontainers.Container
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SetupTestDB starts a PostgreSQL container with the orchestrator schema applied.
// The test is skipped under -short or when no container runtime is reachable.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	ctx := context.Background()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		t.Logf("No .env file found or failed to load: %v. Proceeding with environment variables.", err)
	}

	dbUsername := envOr("DB_USERNAME", "kyubey")
	dbPassword := envOr("DB_PASSWORD", "kyubey")
	dbName := envOr("DB_NAME", "airflow")
	dbHost := envOr("DB_HOST", "localhost")

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     dbUsername,
			"POSTGRES_PASSWORD": dbPassword,
			"POSTGRES_DB":       dbName,
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}

	fail := func(format string, args ...interface{}) {
		if errTerminateCnt := pgContainer.Terminate(ctx); errTerminateCnt != nil {
			t.Logf("Failed to terminate container: %v", errTerminateCnt)
		}
		t.Fatalf(format, args...)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		fail("Failed to resolve mapped port: %v", err)
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUsername, dbPassword, dbHost, port.Port(), dbName)

	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		fail("Failed to connect to test DB: %v", err)
	}

	// Wait for DB to be ready
	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 9 {
			fail("Failed to ping test DB after retries: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}

	m, err := migrate.New("file://../../migrations", connStr)
	if err != nil {
		fail("Failed to initialize migrations: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		fail("Failed to apply migrations: %v", err)
	}

	return &TestDB{
		DB:        db,
		ConnStr:   connStr,
		container: pgContainer,
	}
}

// Teardown cleans up the test database and container
func (td *TestDB) Teardown(t *testing.T) {
	if err := td.DB.Close(); err != nil {
		t.Errorf("Failed to close DB connection: %v", err)
	}
	if err := td.container.Terminate(context.Background()); err != nil {
		t.Fatalf("Failed to terminate container: %v", err)
	}
}

// Trigger is one api_trigger fixture. Nil detail fields are omitted from the JSON blob.
type Trigger struct {
	DagID         string
	RunID         string
	ExecutionDate time.Time
	Details       map[string]*string
}

// CompleteDetails returns a details blob with all six descriptive fields set.
func CompleteDetails(systemID string) map[string]*string {
	s := func(v string) *string { return &v }
	return map[string]*string{
		"client_name": s("client " + systemID),
		"client_id":   s("client-" + systemID),
		"system_name": s("system " + systemID),
		"system_id":   s(systemID),
		"team_name":   s("team " + systemID),
		"team_id":     s("team-" + systemID),
	}
}

func (td *TestDB) InsertTrigger(t *testing.T, tr Trigger) {
	t.Helper()
	details := map[string]string{}
	for k, v := range tr.Details {
		if v != nil {
			details[k] = *v
		}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		t.Fatalf("Failed to marshal trigger details: %v", err)
	}
	_, err = td.DB.Exec(
		`INSERT INTO api_trigger (dag_id, run_id, execution_date, details) VALUES ($1, $2, $3, $4)`,
		tr.DagID, tr.RunID, tr.ExecutionDate, string(raw))
	if err != nil {
		t.Fatalf("Failed to insert trigger: %v", err)
	}
}

// DagRun is one dag_run fixture.
type DagRun struct {
	DagID         string
	RunID         string
	ExecutionDate time.Time
	State         *string
	StartDate     *time.Time
	EndDate       *time.Time
}

func (td *TestDB) InsertDagRun(t *testing.T, r DagRun) {
	t.Helper()
	_, err := td.DB.Exec(
		`INSERT INTO dag_run (dag_id, run_id, execution_date, state, start_date, end_date) VALUES ($1, $2, $3, $4, $5, $6)`,
		r.DagID, r.RunID, r.ExecutionDate, r.State, r.StartDate, r.EndDate)
	if err != nil {
		t.Fatalf("Failed to insert dag run: %v", err)
	}
}

// TaskInstance is one task_instance fixture.
type TaskInstance struct {
	TaskID         string
	DagID          string
	RunID          string
	MapIndex       int
	State          *string
	StartDate      *time.Time
	EndDate        *time.Time
	TryNumber      *int64
	PriorityWeight int
}

func (td *TestDB) InsertTaskInstance(t *testing.T, ti TaskInstance) {
	t.Helper()
	_, err := td.DB.Exec(
		`INSERT INTO task_instance (task_id, dag_id, run_id, map_index, state, start_date, end_date, try_number, priority_weight)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ti.TaskID, ti.DagID, ti.RunID, ti.MapIndex, ti.State, ti.StartDate, ti.EndDate, ti.TryNumber, ti.PriorityWeight)
	if err != nil {
		t.Fatalf("Failed to insert task instance: %v", err)
	}
}

// Truncate empties every orchestrator table.
func (td *TestDB) Truncate(t *testing.T) {
	t.Helper()
	if _, err := td.DB.Exec(`TRUNCATE api_trigger, dag_run, task_instance`); err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
}

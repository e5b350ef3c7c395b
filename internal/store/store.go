package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/pkg/model"
)

const lastRunKey = "personio:sync:last_run"

// Store defines the contract for caching run state and persisting sync output.
type Store interface {
	SaveRunReport(ctx context.Context, report model.RunReport) error
	LastRunReport(ctx context.Context) (*model.RunReport, error)
	UpsertEmployeeSnapshot(ctx context.Context, records []model.EmployeeRecord) error
	UpsertDepartmentSummaries(ctx context.Context, summaries []model.DepartmentSummary) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// HybridStore keeps run state in Redis and, when a Postgres URL is
// configured, mirrors the latest employee snapshot and department summary
// there. An empty pgURL means CSV files are the only durable output.
type HybridStore struct {
	redis  *redis.Client
	PG     *pgxpool.Pool
	logger *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis-first, Postgres-backed store.
func NewHybrid(redisAddr string, redisDB int, pgURL string, pgPoolConfig PGPoolConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, logger: logger}, nil
}

// SaveRunReport stores the most recent run report. Reports are kept without
// a TTL so the /api/v1/report endpoint can serve the last result across
// restarts.
func (s *HybridStore) SaveRunReport(ctx context.Context, report model.RunReport) error {
	return s.SetJSON(ctx, lastRunKey, report, 0)
}

// LastRunReport returns the most recent run report, or nil when no run has
// completed yet.
func (s *HybridStore) LastRunReport(ctx context.Context) (*model.RunReport, error) {
	var report model.RunReport
	err := s.GetJSON(ctx, lastRunKey, &report)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// UpsertEmployeeSnapshot mirrors the transformed employee rows into the
// hr.employee_snapshot projection table. No-op without Postgres.
func (s *HybridStore) UpsertEmployeeSnapshot(ctx context.Context, records []model.EmployeeRecord) error {
	if s.PG == nil {
		return nil
	}
	for _, r := range records {
		_, err := s.PG.Exec(ctx, `
			INSERT INTO hr.employee_snapshot (
				employee_id, first_name, last_name, email, status,
				hire_date, termination_date, position, department_id, department,
				team, supervisor_name, location, weekly_hours, employment_type,
				cost_centers, monthly_salary, last_modified, synced_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
				$11, $12, $13, $14, $15, $16, $17, $18, NOW())
			ON CONFLICT (employee_id)
			DO UPDATE SET
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				email = EXCLUDED.email,
				status = EXCLUDED.status,
				hire_date = EXCLUDED.hire_date,
				termination_date = EXCLUDED.termination_date,
				position = EXCLUDED.position,
				department_id = EXCLUDED.department_id,
				department = EXCLUDED.department,
				team = EXCLUDED.team,
				supervisor_name = EXCLUDED.supervisor_name,
				location = EXCLUDED.location,
				weekly_hours = EXCLUDED.weekly_hours,
				employment_type = EXCLUDED.employment_type,
				cost_centers = EXCLUDED.cost_centers,
				monthly_salary = EXCLUDED.monthly_salary,
				last_modified = EXCLUDED.last_modified,
				synced_at = NOW();
		`, r.EmployeeID, r.FirstName, r.LastName, r.Email, r.Status,
			r.HireDate, r.TerminationDate, r.Position, r.DepartmentID, r.Department,
			r.Team, r.SupervisorName, r.Location, r.WeeklyHours, r.EmploymentType,
			r.CostCenters, r.MonthlySalary, r.LastModified)
		if err != nil {
			s.logger.Error("store.pg.employee_upsert_failed",
				zap.String("employee_id", r.EmployeeID), zap.Error(err))
			return err
		}
	}
	return nil
}

// UpsertDepartmentSummaries mirrors the aggregated department rows into
// hr.department_summary. No-op without Postgres.
func (s *HybridStore) UpsertDepartmentSummaries(ctx context.Context, summaries []model.DepartmentSummary) error {
	if s.PG == nil {
		return nil
	}
	for _, d := range summaries {
		_, err := s.PG.Exec(ctx, `
			INSERT INTO hr.department_summary (
				department_id, department_name, employee_count, average_base_salary, as_of
			)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (department_id, department_name)
			DO UPDATE SET
				employee_count = EXCLUDED.employee_count,
				average_base_salary = EXCLUDED.average_base_salary,
				as_of = NOW();
		`, d.DepartmentID, d.Department, d.EmployeeCount, d.AverageSalary)
		if err != nil {
			s.logger.Error("store.pg.summary_upsert_failed",
				zap.String("department", d.Department), zap.Error(err))
			return err
		}
	}
	return nil
}

func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/edumanager-api/internal/repository"
	"github.com/noah-isme/edumanager-api/internal/service"
	"github.com/noah-isme/edumanager-api/pkg/cache"
	"github.com/noah-isme/edumanager-api/pkg/config"
	"github.com/noah-isme/edumanager-api/pkg/database"
	"github.com/noah-isme/edumanager-api/pkg/scheduler"
	"github.com/noah-isme/edumanager-api/pkg/storage"
)

// Container holds the long lived dependencies shared by the HTTP server and the CLI.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Uploads   *storage.LocalStorage
	Generated *storage.LocalStorage

	Metrics     *service.MetricsService
	Cache       *service.CacheService
	Auth        *service.AuthService
	Subjects    *service.SubjectService
	Departments *service.DepartmentService
	Teachers    *service.TeacherService
	Importer    *service.ImportService
	Exporter    *service.ExportService
	Scheduler   *service.SchedulerService
	Timetables  *service.TimetableService
}

// New connects to Postgres and, when enabled, Redis and builds every service. Redis
// failures are logged and the cache is disabled.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.NewPostgres(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logger); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	c, err := Build(cfg, logger, db, redisClient)
	if err != nil {
		_ = db.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}
	return c, nil
}

// Build wires services over already opened connections. redisClient may be nil.
func Build(cfg *config.Config, logger *zap.Logger, db *sqlx.DB, redisClient *redis.Client) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		return nil, fmt.Errorf("init upload storage: %w", err)
	}
	generated, err := storage.NewLocalStorage(cfg.Storage.GeneratedDir)
	if err != nil {
		return nil, fmt.Errorf("init generated storage: %w", err)
	}

	runner, err := newRunner(cfg.Scheduler, generated.Dir())
	if err != nil {
		return nil, err
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Cache.TTL, logger, cfg.Cache.Enabled && redisClient != nil)

	subjectRepo := repository.NewSubjectRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	userRepo := repository.NewUserRepository(db)

	subjects := service.NewSubjectService(subjectRepo, cacheSvc, validate, logger)
	departments := service.NewDepartmentService(departmentRepo, subjectRepo, cacheSvc, validate, logger)
	teachers := service.NewTeacherService(teacherRepo, cacheSvc, validate, logger)
	exporter := service.NewExportService(departmentRepo, subjectRepo, teacherRepo, cacheSvc, logger)

	prefix := cfg.APIPrefix
	return &Container{
		Config:      cfg,
		Logger:      logger,
		DB:          db,
		Redis:       redisClient,
		Uploads:     uploads,
		Generated:   generated,
		Metrics:     metrics,
		Cache:       cacheSvc,
		Auth:        service.NewAuthService(userRepo, validate, logger, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, AccessTokenExpiry: cfg.JWT.Expiration, Issuer: cfg.JWT.Issuer}),
		Subjects:    subjects,
		Departments: departments,
		Teachers:    teachers,
		Importer:    service.NewImportService(subjectRepo, departmentRepo, teacherRepo, cacheSvc, metrics, logger),
		Exporter:    exporter,
		Scheduler:   service.NewSchedulerService(runner, uploads, exporter, metrics, logger, prefix+"/departments/download/"),
		Timetables:  service.NewTimetableService(teachers, subjectRepo, generated, logger, prefix+"/timetable/download/"),
	}, nil
}

// Close releases the database and Redis connections.
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("close database", zap.Error(err))
		}
	}
}

// newRunner resolves the script path so the generator can run inside its work
// directory. Output files land in the work directory, which defaults to the
// generated files directory served by the download endpoints.
func newRunner(cfg config.SchedulerConfig, generatedDir string) (*scheduler.Runner, error) {
	script, err := filepath.Abs(cfg.Script)
	if err != nil {
		return nil, fmt.Errorf("resolve scheduler script: %w", err)
	}
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = generatedDir
	}
	return scheduler.NewRunner(scheduler.Config{
		Interpreter: cfg.Interpreter,
		Script:      script,
		WorkDir:     workDir,
		Timeout:     cfg.Timeout,
	}), nil
}

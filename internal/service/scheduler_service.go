package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edumanager-api/internal/dto"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
	"github.com/noah-isme/edumanager-api/pkg/logger"
	"github.com/noah-isme/edumanager-api/pkg/scheduler"
	"github.com/noah-isme/edumanager-api/pkg/sheet"
)

const (
	schedulerInputFilename = "timetable_input.xlsx"
	defaultDownloadPrefix  = "/api/departments/download/"

	msgGeneratedFromDB    = "Timetable generated successfully!"
	msgGeneratedFromExcel = "Timetable generated successfully from Excel!"
)

type schedulerRunner interface {
	Run(ctx context.Context, inputPath string) (*scheduler.Result, error)
}

type uploadStore interface {
	Save(name string, data []byte) (string, error)
	SaveStream(name string, r io.Reader) (string, error)
	Delete(name string) error
}

type workloadExporter interface {
	Rows(ctx context.Context) ([]dto.WorkloadRow, error)
	Render(rows []dto.WorkloadRow, format sheet.Format, sheetName string) (*ExportFile, error)
}

// SchedulerService feeds workload workbooks to the external timetable generator.
type SchedulerService struct {
	runner         schedulerRunner
	uploads        uploadStore
	exporter       workloadExporter
	metrics        *MetricsService
	logger         *zap.Logger
	downloadPrefix string
}

// NewSchedulerService constructs the scheduler bridge. downloadPrefix is the URL path
// under which generated csv files are served.
func NewSchedulerService(runner schedulerRunner, uploads uploadStore, exporter workloadExporter, metrics *MetricsService, logger *zap.Logger, downloadPrefix string) *SchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if downloadPrefix == "" {
		downloadPrefix = defaultDownloadPrefix
	}
	if !strings.HasSuffix(downloadPrefix, "/") {
		downloadPrefix += "/"
	}
	return &SchedulerService{
		runner:         runner,
		uploads:        uploads,
		exporter:       exporter,
		metrics:        metrics,
		logger:         logger,
		downloadPrefix: downloadPrefix,
	}
}

// GenerateFromDatabase exports the stored workload to the scheduler input workbook and
// runs the generator on it.
func (s *SchedulerService) GenerateFromDatabase(ctx context.Context) (*dto.GenerationResponse, error) {
	rows, err := s.exporter.Rows(ctx)
	if err != nil {
		return nil, err
	}
	file, err := s.exporter.Render(rows, sheet.FormatXLSX, "")
	if err != nil {
		return nil, err
	}
	path, err := s.uploads.Save(schedulerInputFilename, file.Payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write scheduler input")
	}
	s.logger.Info("scheduler input written", zap.String("path", path), zap.Int("rows", len(rows)))

	result, err := s.run(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.generationResponse(msgGeneratedFromDB, result), nil
}

// GenerateFromUpload runs the generator on an uploaded workbook. The upload is removed
// once the generator exits.
func (s *SchedulerService) GenerateFromUpload(ctx context.Context, r io.Reader, filename string) (*dto.GenerationResponse, error) {
	result, err := s.runUpload(ctx, r, filename)
	if err != nil {
		return nil, err
	}
	return s.generationResponse(msgGeneratedFromExcel, result), nil
}

// ProcessTimetableUpload runs the generator on an uploaded workbook and requires the
// run to report stats.
func (s *SchedulerService) ProcessTimetableUpload(ctx context.Context, r io.Reader, filename string) (*dto.UploadTimetableResponse, error) {
	result, err := s.runUpload(ctx, r, filename)
	if err != nil {
		return nil, err
	}
	stats, err := scheduler.ParseStats(result.Stdout)
	if err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrSchedulerStats, err, map[string]interface{}{
			"output": result.Stdout,
			"cause":  err.Error(),
		})
	}
	return &dto.UploadTimetableResponse{Status: "success", Stats: stats}, nil
}

func (s *SchedulerService) runUpload(ctx context.Context, r io.Reader, filename string) (*scheduler.Result, error) {
	name := uploadName(filename)
	path, err := s.uploads.SaveStream(name, r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}
	defer func() {
		if err := s.uploads.Delete(name); err != nil {
			s.logger.Warn("failed to remove upload", zap.String("file", name), zap.Error(err))
		}
	}()
	return s.run(ctx, path)
}

func (s *SchedulerService) run(ctx context.Context, inputPath string) (*scheduler.Result, error) {
	if abs, err := filepath.Abs(inputPath); err == nil {
		inputPath = abs
	}

	log := logger.FromContext(ctx, s.logger)
	result, err := s.runner.Run(ctx, inputPath)
	var (
		exitErr  *scheduler.ExitError
		spawnErr *scheduler.SpawnError
	)
	switch {
	case err == nil:
		s.metrics.ObserveSchedulerRun("success", result.Duration)
		log.Info("scheduler finished", zap.String("input", inputPath), zap.Duration("duration", result.Duration))
		return result, nil
	case errors.As(err, &spawnErr):
		s.metrics.ObserveSchedulerRun("spawn_error", 0)
		log.Error("scheduler could not start", zap.Error(err))
		return nil, appErrors.WithDetails(appErrors.ErrSchedulerSpawn, err, map[string]interface{}{"cause": spawnErr.Err.Error()})
	case errors.As(err, &exitErr):
		if result != nil {
			s.metrics.ObserveSchedulerRun("failed", result.Duration)
		}
		log.Error("scheduler failed",
			zap.Int("exit_code", exitErr.Code),
			zap.Bool("timed_out", exitErr.TimedOut),
			zap.String("stderr", exitErr.Stderr),
		)
		stderr := exitErr.Stderr
		if strings.TrimSpace(stderr) == "" {
			stderr = "Unknown error occurred"
		}
		return nil, appErrors.WithDetails(appErrors.ErrSchedulerFailed, err, dto.SchedulerFailure{
			ExitCode: exitErr.Code,
			TimedOut: exitErr.TimedOut,
			Stderr:   stderr,
			Output:   exitErr.Stdout,
		})
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to run scheduler")
	}
}

// generationResponse parses stats leniently: a missing or malformed stats line leaves
// Stats nil.
func (s *SchedulerService) generationResponse(message string, result *scheduler.Result) *dto.GenerationResponse {
	stats, err := scheduler.ParseStats(result.Stdout)
	if err != nil {
		s.logger.Warn("scheduler stats unavailable", zap.Error(err))
		stats = nil
	}
	return &dto.GenerationResponse{
		Message: message,
		Output:  result.Stdout,
		Stats:   stats,
		DownloadLinks: dto.DownloadLinks{
			Faculty: s.downloadPrefix + "faculty_timetable.csv",
			Class:   s.downloadPrefix + "class_timetable.csv",
			Summary: s.downloadPrefix + "department_summary.csv",
		},
	}
}

// uploadName gives each upload a unique flat name, keeping a recognised extension so
// the generator can tell csv from xlsx.
func uploadName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	switch ext {
	case ".xlsx", ".xls", ".csv":
	default:
		ext = ""
	}
	return "upload-" + uuid.NewString() + ext
}

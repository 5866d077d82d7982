package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/craftled/contentops/internal/agent"
	agentrepo "github.com/craftled/contentops/internal/agent/repositoryimpl"
	"github.com/craftled/contentops/internal/ai"
	"github.com/craftled/contentops/internal/batch"
	batchrepo "github.com/craftled/contentops/internal/batch/repositoryimpl"
	"github.com/craftled/contentops/internal/config"
	"github.com/craftled/contentops/internal/content"
	contentrepo "github.com/craftled/contentops/internal/content/repositoryimpl"
	"github.com/craftled/contentops/internal/db"
	"github.com/craftled/contentops/internal/editorial"
	editorialrepo "github.com/craftled/contentops/internal/editorial/repositoryimpl"
	"github.com/craftled/contentops/internal/eventbus"
	"github.com/craftled/contentops/internal/generation"
	generationrepo "github.com/craftled/contentops/internal/generation/repositoryimpl"
	"github.com/craftled/contentops/internal/question"
	questionrepo "github.com/craftled/contentops/internal/question/repositoryimpl"
	"github.com/craftled/contentops/internal/schedule"
	schedulerepo "github.com/craftled/contentops/internal/schedule/repositoryimpl"
	"github.com/craftled/contentops/internal/section"
	sectionrepo "github.com/craftled/contentops/internal/section/repositoryimpl"
	"github.com/craftled/contentops/internal/transition"
	transitionrepo "github.com/craftled/contentops/internal/transition/repositoryimpl"
	"github.com/craftled/contentops/internal/workflowengine"
	"github.com/craftled/contentops/pkg/clog"

	server "github.com/craftled/contentops/internal"
)

type repositories struct {
	audit      transition.AuditRepository
	tasks      editorial.Repository
	contents   content.Repository
	questions  question.Repository
	agents     agent.Repository
	sections   section.Repository
	schedules  schedule.ScheduleRepository
	executions schedule.ExecutionRepository
	batchJobs  batch.JobRepository
	items      batch.CollectionStore
	genJobs    generation.JobRepository
}

// memoryRepositories is the local-development wiring; an empty DATABASE_DSN
// selects it.
func memoryRepositories() *repositories {
	return &repositories{
		audit:      transitionrepo.NewMemoryAuditRepository(),
		tasks:      editorialrepo.NewMemoryRepository(),
		contents:   contentrepo.NewMemoryRepository(),
		questions:  questionrepo.NewMemoryRepository(),
		agents:     agentrepo.NewMemoryRepository(),
		sections:   sectionrepo.NewMemoryRepository(),
		schedules:  schedulerepo.NewMemoryScheduleRepository(),
		executions: schedulerepo.NewMemoryExecutionRepository(),
		batchJobs:  batchrepo.NewMemoryJobRepository(),
		items:      batchrepo.NewMemoryCollectionStore(),
		genJobs:    generationrepo.NewMemoryJobRepository(),
	}
}

func postgresRepositories(conn *sqlx.DB) *repositories {
	return &repositories{
		audit:      transitionrepo.NewPostgresAuditRepository(conn),
		tasks:      editorialrepo.NewPostgresRepository(conn),
		contents:   contentrepo.NewPostgresRepository(conn),
		questions:  questionrepo.NewPostgresRepository(conn),
		agents:     agentrepo.NewPostgresRepository(conn),
		sections:   sectionrepo.NewPostgresRepository(conn),
		schedules:  schedulerepo.NewPostgresScheduleRepository(conn),
		executions: schedulerepo.NewPostgresExecutionRepository(conn),
		batchJobs:  batchrepo.NewPostgresJobRepository(conn),
		items:      batchrepo.NewPostgresCollectionStore(conn),
		genJobs:    generationrepo.NewPostgresJobRepository(conn),
	}
}

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Setup storage
	var repos *repositories
	if env.DatabaseDSN == "" {
		slog.Info("no database configured, using in-memory repositories")
		repos = memoryRepositories()
	} else {
		conn, err := db.Open(ctx, env.DatabaseDSN)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		repos = postgresRepositories(conn)
	}

	bus := eventbus.New()
	engine := transition.NewEngine(repos.audit)
	planner := editorial.NewPlanner(repos.tasks)
	aiClient := ai.NewClient(env.AIEnv)

	// The durable workflow runtime is external; without one configured the
	// schedule manager runs in degraded mode against persisted state.
	var workflows workflowengine.Engine = workflowengine.NewDisconnected()

	manager := schedule.NewManager(repos.schedules, repos.executions, workflows)
	tracker := batch.NewTracker(repos.batchJobs, repos.items, aiClient)
	orchestrator := generation.NewOrchestrator(generation.Deps{
		Jobs:      repos.genJobs,
		Tasks:     repos.tasks,
		Planner:   planner,
		Contents:  repos.contents,
		Agents:    repos.agents,
		Sections:  repos.sections,
		Provider:  aiClient,
		Engine:    engine,
		Workflows: workflows,
		Bus:       bus,
	})

	srv := server.NewServer(
		env,
		editorial.NewServer(repos.tasks, planner, engine, bus),
		content.NewServer(repos.contents, engine),
		question.NewServer(repos.questions, engine),
		agent.NewServer(repos.agents),
		section.NewServer(repos.sections),
		schedule.NewServer(manager),
		batch.NewServer(tracker, repos.items),
		generation.NewServer(orchestrator),
	)

	// Background loops: schedule sync reconciliation, execution retention,
	// and the YAML task source watcher.
	go manager.RunReconciler(ctx, env.ReconcileInterval)
	go manager.RunRetention(ctx, env.ExecutionRetention)
	if env.TaskSourceDir != "" {
		syncer := editorial.NewSyncer(repos.tasks)
		if err := syncer.ImportDir(ctx, env.TaskSourceDir); err != nil {
			slog.Error("initial task source import failed", "dir", env.TaskSourceDir, "error", err)
		}
		go func() {
			if err := syncer.Watch(ctx, env.TaskSourceDir); err != nil {
				slog.Error("task source watcher stopped", "error", err)
			}
		}()
	}

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

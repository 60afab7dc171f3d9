package ingest

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/DanielHaim/PanicDeck/app/models"
	"github.com/DanielHaim/PanicDeck/internal/pkg/fingerprint"
	"github.com/DanielHaim/PanicDeck/internal/pkg/keylock"
	"github.com/DanielHaim/PanicDeck/internal/pkg/metrics/counter"
	"github.com/DanielHaim/PanicDeck/internal/pkg/notify"
	"github.com/DanielHaim/PanicDeck/internal/pkg/quota"
	"github.com/DanielHaim/PanicDeck/internal/pkg/statistics"
	"github.com/DanielHaim/PanicDeck/internal/pkg/taskpool"
)

// App bundles everything the ingestion pipeline touches. Built once in
// main, immutable afterwards, injected into the handler and every
// background task instead of living in process-wide globals.
type App struct {
	DB         *gorm.DB
	Locks      *keylock.KeyLock
	Pool       *taskpool.Pool
	Dispatcher *notify.Dispatcher
	Quota      *quota.Guard
}

func NewApp(db *gorm.DB, pool *taskpool.Pool, dispatcher *notify.Dispatcher, guard *quota.Guard) *App {
	return &App{
		DB:         db,
		Locks:      keylock.New(),
		Pool:       pool,
		Dispatcher: dispatcher,
		Quota:      guard,
	}
}

// Accept runs the synchronous part of the pipeline for a validated
// submission: take the project lock, apply the quota guard, then detach
// the rest onto the task pool while still holding the lock. The lock is
// released when the background unit finishes, so occurrences for one
// project stay fully linearized from quota through stats.
//
// A quota rejection is returned to the caller; everything after Accept
// returns nil is invisible to the client.
func (a *App) Accept(project *models.Project, org *models.Organization, sub *Submission) error {
	now := time.Now()

	a.Locks.Lock(project.ID)

	if err := a.Quota.Check(org, now); err != nil {
		a.Locks.Unlock(project.ID)
		if err == quota.ErrQuotaExceeded {
			if cerr := counter.AddProjectDropped(project.ID); cerr != nil {
				log.Debugf("[Ingest] Dropped counter for project %d failed: %v", project.ID, cerr)
			}
		}
		return err
	}

	submitErr := a.Pool.Submit(func() {
		defer a.Locks.Unlock(project.ID)
		a.processLocked(project, org, sub, now)
	})

	if submitErr != nil {
		// at-most-once, best-effort: the occurrence is lost, the client
		// already got its answer
		a.Locks.Unlock(project.ID)
		log.Errorf("[Ingest] Detach for project %d failed: %v", project.ID, submitErr)
		if cerr := counter.AddProjectDropped(project.ID); cerr != nil {
			log.Debugf("[Ingest] Dropped counter for project %d failed: %v", project.ID, cerr)
		}
	}

	return nil
}

// processLocked is the background half of the pipeline. The project lock
// is held for the whole call. Failures here are internal: logged and
// swallowed, never client-visible.
func (a *App) processLocked(project *models.Project, org *models.Organization, sub *Submission, now time.Time) {
	var environment *models.Environment
	if envName := sub.EnvironmentName(); envName != "" {
		var err error
		environment, err = models.FindOrCreateEnvironment(a.DB, project.ID, envName)
		if err != nil {
			log.Errorf("[Ingest] Environment lookup for project %d failed: %v", project.ID, err)
			return
		}
	}

	composedTitle := fingerprint.ComposeTitle(sub.Data.Title, sub.FingerprintLocation())
	normalized := fingerprint.Normalize(composedTitle)
	uid := fingerprint.Uid(project.ID, sub.EnvironmentName(), normalized)

	report, status, err := a.upsertReport(project, environment, uid, composedTitle, now)
	if err != nil {
		log.Errorf("[Ingest] Report upsert for project %d failed: %v", project.ID, err)
		return
	}

	event, err := a.appendEvent(report, sub)
	if err != nil {
		log.Errorf("[Ingest] Event insert for report %d failed: %v", report.ID, err)
		return
	}

	statistics.RecordOccurrenceStats(a.DB, report.ID, sub.Data.OS, sub.Data.Arch, sub.Version(), now, status == notify.StatusNew)

	if status == notify.StatusNew {
		err := statistics.IncrementOrganizationStat(
			a.DB, org.ID, models.ORG_STAT_NEW_PROJECT_REPORT,
			strconv.FormatUint(uint64(project.ID), 10), now,
		)
		if err != nil {
			log.Errorf("[Ingest] New-report stat for org %d failed: %v", org.ID, err)
		}
	}

	if err := counter.AddProjectEvent(project.ID); err != nil {
		log.Debugf("[Ingest] Event counter for project %d failed: %v", project.ID, err)
	}

	if status != "" {
		a.Dispatcher.Enqueue(notify.Notification{
			Status:      status,
			Project:     *project,
			Environment: environment,
			Report:      *report,
			Event:       *event,
		})
	}
}

// upsertReport applies the report state machine for one occurrence and
// returns the resulting row plus the status to emit ("" for no transition)
func (a *App) upsertReport(project *models.Project, environment *models.Environment, uid string, title string, now time.Time) (*models.Report, notify.ReportStatus, error) {
	report, err := models.FindReportByUid(a.DB, uid)
	if err != nil {
		return nil, "", err
	}

	if report == nil {
		report = &models.Report{
			ProjectID: project.ID,
			Uid:       uid,
			Title:     title,
			LastSeen:  now,
		}
		if environment != nil {
			report.EnvironmentID = &environment.ID
		}
		if err := a.DB.Create(report).Error; err != nil {
			return nil, "", err
		}
		return report, notify.StatusNew, nil
	}

	var status notify.ReportStatus
	updates := map[string]interface{}{
		"last_seen": now,
		"title":     title,
	}

	if report.IsResolved {
		// resolved report reappearing is a regression
		status = notify.StatusRegressed
		updates["is_resolved"] = false
		updates["is_seen"] = false
	}

	if err := a.DB.Model(report).Updates(updates).Error; err != nil {
		return nil, "", err
	}

	report.LastSeen = now
	report.Title = title
	if status == notify.StatusRegressed {
		report.IsResolved = false
		report.IsSeen = false
	}

	return report, status, nil
}

// appendEvent stores the raw occurrence and eagerly enforces the retention
// cap in the same logical step
func (a *App) appendEvent(report *models.Report, sub *Submission) (*models.ReportEvent, error) {
	logData, err := PackLogMessages(sub.Data.LogMessages)
	if err != nil {
		return nil, err
	}

	event := models.ReportEvent{
		ReportID:  report.ID,
		Backtrace: TruncateBacktrace(sub.Data.Backtrace),
		Log:       logData,
	}
	if err := a.DB.Create(&event).Error; err != nil {
		return nil, err
	}

	if err := models.TrimReportEvents(a.DB, report.ID); err != nil {
		return nil, err
	}

	return &event, nil
}

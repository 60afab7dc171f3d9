package statistics

import (
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DanielHaim/PanicDeck/app/models"
)

// IncrementReportStat bumps the hour-bucketed counter for one report,
// category and name. The write is a single atomic insert-or-increment on
// the composite unique key, safe even outside the project lock.
func IncrementReportStat(db *gorm.DB, reportID uint, category string, name string, at time.Time, isFirst bool) error {
	stat := models.ReportStat{
		ReportID: reportID,
		Category: category,
		Name:     name,
		Count:    1,
		IsFirst:  isFirst,
		Date:     models.HourBucket(at),
	}

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "report_id"}, {Name: "category"}, {Name: "name"}, {Name: "date"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count": gorm.Expr("count + 1"),
		}),
	}).Create(&stat).Error
}

// IncrementOrganizationStat bumps the day-bucketed counter for one
// organization, category and name, same upsert discipline as report stats
func IncrementOrganizationStat(db *gorm.DB, orgID uint, category string, name string, at time.Time) error {
	stat := models.OrganizationStat{
		OrganizationID: orgID,
		Category:       category,
		Name:           name,
		Count:          1,
		Date:           models.DayBucket(at),
	}

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"}, {Name: "category"}, {Name: "name"}, {Name: "date"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count": gorm.Expr("count + 1"),
		}),
	}).Create(&stat).Error
}

// RecordOccurrenceStats writes the per-report hour buckets for one accepted
// occurrence: the event counter plus os, arch and version breakdowns.
func RecordOccurrenceStats(db *gorm.DB, reportID uint, os string, arch string, version string, at time.Time, isFirst bool) {
	increments := []struct {
		category string
		name     string
	}{
		{models.REPORT_STAT_EVENT, models.REPORT_STAT_EVENT},
		{models.REPORT_STAT_OS, os},
		{models.REPORT_STAT_ARCH, arch},
		{models.REPORT_STAT_VERSION, version},
	}

	for _, inc := range increments {
		if inc.name == "" {
			continue
		}
		if err := IncrementReportStat(db, reportID, inc.category, inc.name, at, isFirst); err != nil {
			// stats are best-effort, an occurrence is never failed over them
			log.Errorf("[Statistics] Increment %s stat for report %d failed: %v", inc.category, reportID, err)
		}
	}
}

package models

import (
	"time"
)

// Stat categories for per-report hour buckets
const (
	REPORT_STAT_EVENT   = "event"
	REPORT_STAT_OS      = "os"
	REPORT_STAT_ARCH    = "arch"
	REPORT_STAT_VERSION = "version"
)

// Stat categories for per-organization day buckets
const (
	ORG_STAT_EVENT              = "event"
	ORG_STAT_NEW_PROJECT_REPORT = "new_project_report"
)

// ReportStat is an hour-bucketed counter per report, category and name.
// The composite unique index makes the insert-or-increment upsert
// well-defined.
type ReportStat struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	ReportID uint      `gorm:"uniqueIndex:idx_report_stats_1" json:"report_id"`
	Category string    `gorm:"uniqueIndex:idx_report_stats_1;type:varchar(255)" json:"category"`
	Name     string    `gorm:"uniqueIndex:idx_report_stats_1;type:varchar(255)" json:"name"`
	Count    uint      `gorm:"default:0" json:"count"`
	IsFirst  bool      `gorm:"default:false" json:"is_first"`
	Date     time.Time `gorm:"uniqueIndex:idx_report_stats_1" json:"date"`
}

// OrganizationStat is a day-bucketed counter per organization, category
// and name, same uniqueness discipline as ReportStat.
type OrganizationStat struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"uniqueIndex:idx_organization_stats_1" json:"organization_id"`
	Category       string    `gorm:"uniqueIndex:idx_organization_stats_1;type:varchar(255)" json:"category"`
	Name           string    `gorm:"uniqueIndex:idx_organization_stats_1;type:varchar(255)" json:"name"`
	Count          uint      `gorm:"default:0" json:"count"`
	Date           time.Time `gorm:"uniqueIndex:idx_organization_stats_1" json:"date"`
}

// HourBucket truncates a timestamp to its hour, in UTC
func HourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// DayBucket truncates a timestamp to its day, in UTC
func DayBucket(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

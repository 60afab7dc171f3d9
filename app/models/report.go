package models

import (
	"time"

	"gorm.io/gorm"
)

// Report is a deduplicated error signature tracked over time for one
// project/environment pair. The Uid is the stable fingerprint; occurrences
// hashing to the same Uid land on the same row.
type Report struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ProjectID     uint      `gorm:"index" json:"project_id"`
	EnvironmentID *uint     `gorm:"default:null" json:"environment_id"`
	Uid           string    `gorm:"uniqueIndex:idx_reports_1;type:char(64)" json:"uid"`
	Title         string    `gorm:"type:varchar(500)" json:"title"`
	LastSeen      time.Time `json:"last_seen"`
	IsResolved    bool      `gorm:"default:false" json:"is_resolved"`
	IsSeen        bool      `gorm:"default:false" json:"is_seen"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FindReportByUid loads the report for a fingerprint, or nil when this is
// the first occurrence
func FindReportByUid(db *gorm.DB, uid string) (*Report, error) {
	var report Report
	err := db.Where("uid = ?", uid).First(&report).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ReportEvent is one raw submitted occurrence belonging to a report
type ReportEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReportID  uint      `gorm:"index" json:"report_id"`
	Backtrace string    `gorm:"type:mediumtext" json:"backtrace"`
	Log       string    `gorm:"type:mediumtext" json:"log"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// MaxEventsPerReport caps how many raw occurrences are retained per report
const MaxEventsPerReport = 5

// TrimReportEvents deletes everything beyond the newest MaxEventsPerReport
// rows for a report. Called in the same logical step as the insert, so the
// cap is enforced eagerly.
func TrimReportEvents(db *gorm.DB, reportID uint) error {
	var staleIDs []uint
	err := db.Model(&ReportEvent{}).
		Where("report_id = ?", reportID).
		Order("id DESC").
		Offset(MaxEventsPerReport).
		Limit(1000).
		Pluck("id", &staleIDs).Error
	if err != nil {
		return err
	}

	if len(staleIDs) == 0 {
		return nil
	}

	return db.Delete(&ReportEvent{}, staleIDs).Error
}

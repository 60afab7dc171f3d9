package models

import (
	"time"

	"gorm.io/gorm"
)

const ROLE_OWNER = "owner"
const ROLE_MEMBER = "member"

// QuotaWindow is the rolling period bounding an organization's ingestion volume
const QuotaWindow = 30 * 24 * time.Hour

type Organization struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	Name                   string     `gorm:"type:varchar(150)" json:"name" validate:"required,min=2,max=150"`
	Enabled                bool       `gorm:"default:true" json:"enabled"`
	RequestsLimit          *uint      `json:"requests_limit"`
	RequestsCount          uint       `gorm:"default:0" json:"requests_count"`
	RequestsCountStart     *time.Time `gorm:"type:timestamp;default:null" json:"requests_count_start"`
	RequestsAlertThreshold *uint      `json:"requests_alert_threshold"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrganizationUser links users to organizations with a role
type OrganizationUser struct {
	OrganizationID uint      `gorm:"primaryKey" json:"organization_id"`
	UserID         uint      `gorm:"primaryKey" json:"user_id"`
	Role           string    `gorm:"type:varchar(50);default:'member'" json:"role"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// QuotaWindowExpired reports whether the rolling counter window has run out
// and the counter must be reset before the next check
func (o *Organization) QuotaWindowExpired(now time.Time) bool {
	if o.RequestsCountStart == nil {
		return o.RequestsLimit != nil
	}
	return now.Sub(*o.RequestsCountStart) > QuotaWindow
}

// QuotaExhausted reports whether the organization already used up its
// request budget for the current window
func (o *Organization) QuotaExhausted() bool {
	return o.RequestsLimit != nil && o.RequestsCount >= *o.RequestsLimit
}

// AtQuotaAlertMark reports whether the counter sits exactly at 90% of the
// limit (integer division). With single increments this is hit at most once
// per window.
func (o *Organization) AtQuotaAlertMark() bool {
	return o.RequestsLimit != nil && *o.RequestsLimit > 0 && o.RequestsCount == *o.RequestsLimit*90/100
}

// ResetQuotaWindow zeroes the counter and restarts the window at now
func (o *Organization) ResetQuotaWindow(now time.Time) {
	o.RequestsCount = 0
	o.RequestsCountStart = &now
}

// FindOrganizationByID loads one organization
func FindOrganizationByID(db *gorm.DB, id uint) (*Organization, error) {
	var org Organization
	if err := db.First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// OrganizationOwners returns the users holding the owner role
func OrganizationOwners(db *gorm.DB, orgID uint) ([]User, error) {
	var users []User
	err := db.
		Joins("JOIN organization_users ON organization_users.user_id = users.id").
		Where("organization_users.organization_id = ? AND organization_users.role = ?", orgID, ROLE_OWNER).
		Find(&users).Error
	return users, err
}

package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Name            string     `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email           string     `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password        string     `gorm:"type:text" json:"-"`
	Status          string     `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	PushoverUserKey *string    `gorm:"type:varchar(100);default:null" json:"-"`
	LastLoginAt     *time.Time `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// HasPushoverKey reports whether the user registered a push identity
func (u *User) HasPushoverKey() bool {
	return u.PushoverUserKey != nil && *u.PushoverUserKey != ""
}

// ProjectUserSetting stores per-project notification preferences for a user
type ProjectUserSetting struct {
	ProjectID      uint      `gorm:"primaryKey" json:"project_id"`
	UserID         uint      `gorm:"primaryKey" json:"user_id"`
	NotifyEmail    bool      `gorm:"default:true" json:"notify_email"`
	NotifyPushover bool      `gorm:"default:false" json:"notify_pushover"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProjectSubscriber pairs a user with their notification settings for a project
type ProjectSubscriber struct {
	User    User
	Setting ProjectUserSetting
}

// ProjectSubscribers returns all users with notification settings for a project
func ProjectSubscribers(db *gorm.DB, projectID uint) ([]ProjectSubscriber, error) {
	var settings []ProjectUserSetting
	if err := db.Where("project_id = ?", projectID).Find(&settings).Error; err != nil {
		return nil, err
	}

	subscribers := make([]ProjectSubscriber, 0, len(settings))
	for _, setting := range settings {
		var user User
		if err := db.First(&user, setting.UserID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return nil, err
		}
		subscribers = append(subscribers, ProjectSubscriber{User: user, Setting: setting})
	}

	return subscribers, nil
}

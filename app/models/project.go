package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Project struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OrganizationID  uint      `gorm:"index" json:"organization_id"`
	Name            string    `gorm:"type:varchar(150)" json:"name" validate:"required,min=2,max=150"`
	APIKey          string    `gorm:"uniqueIndex;type:varchar(64)" json:"api_key"`
	SlackBotToken   *string   `gorm:"type:varchar(255);default:null" json:"-"`
	SlackChannel    *string   `gorm:"type:varchar(255);default:null" json:"slack_channel"`
	SlackWebhookURL *string   `gorm:"type:varchar(512);default:null" json:"-"`
	TeamsWebhookURL *string   `gorm:"type:varchar(512);default:null" json:"-"`
	WebhookURL      *string   `gorm:"type:varchar(512);default:null" json:"-"`
	EventCount      uint64    `gorm:"default:0" json:"event_count"`
	DroppedCount    uint64    `gorm:"default:0" json:"dropped_count"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate generates the ingestion API key for new projects
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.APIKey == "" {
		p.APIKey = strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	}
	return nil
}

// HasSlackBot reports whether the Slack bot channel is fully configured
func (p *Project) HasSlackBot() bool {
	return p.SlackBotToken != nil && *p.SlackBotToken != "" &&
		p.SlackChannel != nil && *p.SlackChannel != ""
}

// FindProjectByAPIKey resolves the project that owns an ingestion key
func FindProjectByAPIKey(db *gorm.DB, apiKey string) (*Project, error) {
	var project Project
	if err := db.Where("api_key = ?", apiKey).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Environment is created lazily on first sighting of a new name per project
type Environment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_project_environments_1" json:"project_id"`
	Name      string    `gorm:"uniqueIndex:idx_project_environments_1;type:varchar(255)" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// FindOrCreateEnvironment returns the environment row for a name, creating it
// on first sighting
func FindOrCreateEnvironment(db *gorm.DB, projectID uint, name string) (*Environment, error) {
	var environment Environment
	err := db.Where("project_id = ? AND name = ?", projectID, name).First(&environment).Error
	if err == nil {
		return &environment, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	environment = Environment{ProjectID: projectID, Name: name}
	if err := db.Create(&environment).Error; err != nil {
		return nil, err
	}
	return &environment, nil
}

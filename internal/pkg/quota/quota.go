package quota

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/DanielHaim/PanicDeck/app/models"
	"github.com/DanielHaim/PanicDeck/internal/pkg/cache"
	"github.com/DanielHaim/PanicDeck/internal/pkg/mail"
	"github.com/DanielHaim/PanicDeck/internal/pkg/statistics"
)

// ErrQuotaExceeded rejects an occurrence once the organization used up its
// rolling monthly request budget
var ErrQuotaExceeded = errors.New("organization request quota exceeded")

// alertFlagTTL outlives the quota window so the once-flag never expires
// before the window it guards
const alertFlagTTL = 31 * 24 * time.Hour

// Guard enforces the rolling 30-day request budget per organization.
// Callers must hold the project lock, Guard does not serialize on its own.
type Guard struct {
	db      *gorm.DB
	baseURL string

	// alert is swapped out in tests
	alert func(org *models.Organization)
}

func NewGuard(db *gorm.DB, baseURL string) *Guard {
	g := &Guard{db: db, baseURL: baseURL}
	g.alert = g.sendApproachingLimitAlert
	return g
}

// Check applies the quota state machine for one incoming occurrence:
// window reset after 30 days, rejection at the limit, a one-time owner
// alert at exactly 90% of the limit, then a counter increment. The daily
// organization usage stat is recorded for every accepted occurrence,
// limit configured or not.
//
// The caller's organization copy was loaded before the project lock was
// taken, so the row is re-read here, under the lock, before any decision
// is made on it. Without the re-read two serialized occurrences both see
// the pre-lock counter and the later write erases the earlier increment.
func (g *Guard) Check(org *models.Organization, now time.Time) error {
	fresh, err := models.FindOrganizationByID(g.db, org.ID)
	if err != nil {
		return err
	}
	*org = *fresh

	if org.RequestsLimit != nil {
		if org.QuotaWindowExpired(now) {
			org.ResetQuotaWindow(now)
			err := g.db.Model(org).Updates(map[string]interface{}{
				"requests_count":       org.RequestsCount,
				"requests_count_start": org.RequestsCountStart,
			}).Error
			if err != nil {
				return err
			}
		}

		if org.QuotaExhausted() {
			return ErrQuotaExceeded
		}

		if org.AtQuotaAlertMark() {
			g.fireAlertOnce(org)
		}

		org.RequestsCount++
		err := g.db.Model(org).Update("requests_count", gorm.Expr("requests_count + ?", 1)).Error
		if err != nil {
			return err
		}
	}

	if err := statistics.IncrementOrganizationStat(g.db, org.ID, models.ORG_STAT_EVENT, models.ORG_STAT_EVENT, now); err != nil {
		log.Errorf("[Quota] Increment usage stat for org %d failed: %v", org.ID, err)
	}

	return nil
}

// fireAlertOnce dispatches the approaching-limit alert asynchronously,
// guarded by a redis once-flag keyed on the organization and its current
// window, so the owners see it at most once per window
func (g *Guard) fireAlertOnce(org *models.Organization) {
	windowStart := int64(0)
	if org.RequestsCountStart != nil {
		windowStart = org.RequestsCountStart.Unix()
	}

	flagKey := fmt.Sprintf("quota:alert:%d:%d", org.ID, windowStart)
	ok, err := cache.SetNX(flagKey, 1, alertFlagTTL)
	if err != nil {
		log.Errorf("[Quota] Alert flag for org %d failed: %v", org.ID, err)
		// fall through and alert anyway, a duplicate beats silence
		ok = true
	}
	if !ok {
		return
	}

	orgCopy := *org
	go g.alert(&orgCopy)
}

func (g *Guard) sendApproachingLimitAlert(org *models.Organization) {
	owners, err := models.OrganizationOwners(g.db, org.ID)
	if err != nil {
		log.Errorf("[Quota] Owner lookup for org %d failed: %v", org.ID, err)
		return
	}

	limit := uint(0)
	if org.RequestsLimit != nil {
		limit = *org.RequestsLimit
	}

	settingsURL := fmt.Sprintf("%s/organizations/%d/settings", g.baseURL, org.ID)

	for _, owner := range owners {
		if err := mail.SendQuotaAlert(owner.Email, org.Name, org.RequestsCount, limit, settingsURL); err != nil {
			log.Errorf("[Quota] Alert mail to %s failed: %v", owner.Email, err)
		}
	}
}

package notify

import (
	"fmt"

	"github.com/DanielHaim/PanicDeck/app/models"
)

// ReportStatus marks the state transition that triggered a notification
type ReportStatus string

const (
	StatusNew       ReportStatus = "new"
	StatusRegressed ReportStatus = "regressed"
)

// Notification is the transient message handed to the dispatcher when a
// report is created or regresses. It is never persisted; the dispatcher
// owns it exclusively until all channels were attempted.
type Notification struct {
	Status      ReportStatus
	Project     models.Project
	Environment *models.Environment
	Report      models.Report
	Event       models.ReportEvent
}

// Headline renders the one-line human summary shared by all channels
func (n *Notification) Headline() string {
	var headline string
	if n.Status == StatusNew {
		headline = fmt.Sprintf("New report on %s received '%s'", n.Project.Name, n.Report.Title)
	} else {
		headline = fmt.Sprintf("Resolved report on %s reappeared: '%s'", n.Project.Name, n.Report.Title)
	}

	if n.Environment != nil {
		headline += fmt.Sprintf(" in %s", n.Environment.Name)
	}

	return headline
}

// EnvironmentName returns the environment label or a placeholder
func (n *Notification) EnvironmentName() string {
	if n.Environment == nil {
		return "Not Set"
	}
	return n.Environment.Name
}

package deployment

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Status mirrors the deployment states reported by the deployment service.
type Status string

const (
	StatusCreated    Status = "Created"
	StatusQueued     Status = "Queued"
	StatusInProgress Status = "InProgress"
	StatusBaking     Status = "Baking"
	StatusReady      Status = "Ready"
	StatusSucceeded  Status = "Succeeded"
	StatusFailed     Status = "Failed"
	StatusStopped    Status = "Stopped"
)

func (s Status) String() string {
	return string(s)
}

type Deployment struct {
	ID          string
	Application string
	Group       string
	Status      Status
	CreateTime  time.Time
}

func (d Deployment) Ready() bool {
	return d.Status == StatusReady
}

func (d Deployment) LogFields() log.Fields {
	return log.Fields{
		"deployment_id":     d.ID,
		"deployment_status": d.Status,
		"application":       d.Application,
		"deployment_group":  d.Group,
	}
}

// Page is one chunk of a paginated deployment listing.
// An empty NextToken means there are no more pages.
type Page struct {
	Deployments []Deployment
	NextToken   string
}

func (p *Page) Last() bool {
	return p == nil || len(p.NextToken) == 0
}

//go:generate mockery --name=Service --inpackage --case=underscore

// Service is the external deployment service. This program is strictly a client of it.
type Service interface {
	// Return one page of deployments, starting at nextToken. An empty token requests the first page.
	ListDeployments(ctx context.Context, nextToken string) (*Page, error)

	// Return current details for a single deployment.
	GetDeployment(ctx context.Context, id string) (*Deployment, error)

	// Ask the service to move a deployment into the target status.
	UpdateStatus(ctx context.Context, id string, target Status) error
}

// ListAll consumes every page of the listing. Any error aborts the listing and discards what was read so far.
func ListAll(ctx context.Context, service Service) ([]Deployment, error) {
	deployments := make([]Deployment, 0)
	token := ""

	for {
		page, err := service.ListDeployments(ctx, token)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}
		deployments = append(deployments, page.Deployments...)
		if page.Last() {
			break
		}
		token = page.NextToken
	}

	return deployments, nil
}

// FilterStatus returns the deployments that are exactly in the given status, in their original order.
func FilterStatus(deployments []Deployment, status Status) []Deployment {
	filtered := make([]Deployment, 0, len(deployments))
	for _, d := range deployments {
		if d.Status == status {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

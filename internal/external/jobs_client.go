package external

import (
	"context"
	"fmt"

	"feedhub/internal/models"
)

// JobsClient talks to the execution engine. It resolves job display names
// (the name of the app the job ran) and expands job notifications to the
// job owner.
type JobsClient struct {
	client *Client
}

// NewJobsClient creates an execution engine client.
func NewJobsClient(baseURL string, token TokenProvider) *JobsClient {
	return &JobsClient{client: NewClient(baseURL, token)}
}

type jobInfo struct {
	ID      string `json:"job_id"`
	AppName string `json:"app_name"`
	Owner   string `json:"user"`
}

// ResolveName resolves one job's display name.
func (j *JobsClient) ResolveName(ctx context.Context, id string) (string, error) {
	names, err := j.ResolveNames(ctx, []string{id})
	if err != nil {
		return "", err
	}
	return names[id], nil
}

// ResolveNames resolves job display names in bulk.
func (j *JobsClient) ResolveNames(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	jobs, err := j.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(jobs))
	for _, job := range jobs {
		names[job.ID] = job.AppName
	}
	return names, nil
}

// ExpandAudience widens a job notification to the owner of each job in the
// target list. Implements AudienceExpander.
func (j *JobsClient) ExpandAudience(ctx context.Context, note *models.Notification) ([]models.Entity, error) {
	var jobIDs []string
	for _, target := range note.Target {
		if target.Type == models.EntityJob {
			jobIDs = append(jobIDs, target.ID)
		}
	}
	if len(jobIDs) == 0 {
		return nil, nil
	}

	jobs, err := j.lookup(ctx, jobIDs)
	if err != nil {
		return nil, err
	}
	var owners []models.Entity
	for _, job := range jobs {
		if job.Owner == "" {
			continue
		}
		entity, err := models.NewEntity(job.Owner, models.EntityUser)
		if err != nil {
			continue
		}
		owners = append(owners, entity)
	}
	return owners, nil
}

func (j *JobsClient) lookup(ctx context.Context, ids []string) ([]jobInfo, error) {
	req := struct {
		IDs []string `json:"job_ids"`
	}{IDs: ids}

	var resp struct {
		Jobs []jobInfo `json:"jobs"`
	}
	if err := j.client.PostJSON(ctx, "/api/V1/jobs/info", req, &resp); err != nil {
		return nil, fmt.Errorf("job info lookup failed: %w", err)
	}
	return resp.Jobs, nil
}

package service

import (
	"context"
	"net/url"

	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/core"
	"github.com/layer-3/cobic/ports"
)

// TaskService wraps the reward task endpoints
type TaskService struct {
	client  Requester
	profile ports.ProfileUpdater
}

// NewTaskService creates a task service. profile may be nil.
func NewTaskService(client Requester, profile ports.ProfileUpdater) *TaskService {
	return &TaskService{client: client, profile: profile}
}

type taskFilter struct {
	Type core.TaskType `json:"type" validate:"omitempty,oneof=daily weekly one_time special"`
}

// List returns the available tasks, optionally of one type
func (s *TaskService) List(ctx context.Context, taskType core.TaskType) ([]core.Task, error) {
	f := taskFilter{Type: taskType}
	if err := validateStruct(&f); err != nil {
		return nil, err
	}

	var opts []api.RequestOption
	if taskType != "" {
		opts = append(opts, api.WithQuery(url.Values{"type": {string(taskType)}}))
	}

	var tasks []core.Task
	if err := s.client.Get(ctx, api.EndpointTasks, &tasks, opts...); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Complete claims the reward of a task
func (s *TaskService) Complete(ctx context.Context, id int64) (*core.CompleteTaskResult, error) {
	if id <= 0 {
		return nil, invalid("id must be positive")
	}

	var res core.CompleteTaskResult
	if err := s.client.Post(ctx, api.TaskCompletePath(id), nil, &res); err != nil {
		return nil, err
	}
	if s.profile != nil && res.Success {
		_ = s.profile.UpdateUser(ctx, func(u *core.User) {
			u.Balance = u.Balance.Add(res.Reward)
		})
	}
	return &res, nil
}

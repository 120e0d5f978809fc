package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskAssignmentDeadline = "assignments.deadline"

type AssignmentDeadlinePayload struct {
	AssignmentID string `json:"assignmentId"`
}

func NewAssignmentDeadlineTask(payload AssignmentDeadlinePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAssignmentDeadline, data), nil
}

func ParseAssignmentDeadlinePayload(task *asynq.Task) (AssignmentDeadlinePayload, error) {
	var payload AssignmentDeadlinePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AssignmentDeadlinePayload{}, err
	}
	return payload, nil
}

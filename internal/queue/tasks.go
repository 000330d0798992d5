package queue

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/restomueble/storefront/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPageRevalidate 页面缓存后台刷新任务
	TaskPageRevalidate = constants.TaskPageRevalidate
)

// PageRevalidatePayload 页面缓存刷新任务载荷
type PageRevalidatePayload struct {
	Kind string `json:"kind"`
	Arg  string `json:"arg"`
}

// Key 页面缓存键（page:<kind>:<arg>）
func (p PageRevalidatePayload) Key() string {
	return fmt.Sprintf("page:%s:%s", p.Kind, p.Arg)
}

// NewPageRevalidateTask 创建页面缓存刷新任务
func NewPageRevalidateTask(payload PageRevalidatePayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.Kind) == "" {
		return nil, fmt.Errorf("page revalidate task requires kind")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPageRevalidate, body), nil
}

// ParsePageRevalidatePayload 解析任务载荷
func ParsePageRevalidatePayload(body []byte) (PageRevalidatePayload, error) {
	var payload PageRevalidatePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, err
	}
	if strings.TrimSpace(payload.Kind) == "" {
		return payload, fmt.Errorf("page revalidate payload missing kind")
	}
	return payload, nil
}

package application

import "expvar"

// exported on /debug/vars under "tasks"
var metrics = expvar.NewMap("tasks")

const (
	metricLoginSuccess   = "login_success"
	metricLoginFailure   = "login_failure"
	metricLoginThrottled = "login_throttled"
	metricTaskCreated    = "task_created"
	metricTaskUpdated    = "task_updated"
	metricTaskDeleted    = "task_deleted"
	metricTaskReordered  = "task_reordered"
)

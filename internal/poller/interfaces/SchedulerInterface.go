package interfaces

import "context"

type SchedulerInterface interface {
	Init()
	Stop()
	RunPoll(ctx context.Context)
	Restore() error
	Persist() error
}

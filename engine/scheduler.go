package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger = slog.New(slog.DiscardHandler)

// reapIntervalMinutes is how often idle documents are looked for
const reapIntervalMinutes = 1

// InitializeSchedules starts the idle document reaper. It is not started
// when IdleDocumentMinutes is zero or negative.
func (serverHandler *ServerHandler) InitializeSchedules() *cron.Cron {
	c := cron.New()
	if serverHandler.Config.IdleDocumentMinutes <= 0 {
		Logger.Info("Idle document reaper disabled")
		return c
	}

	var reapJob cron.Job
	reapJob = cron.FuncJob(func() { serverHandler.reapJobFunc() })
	reapJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(reapJob) //ensure we don't kick off another if old one is still running
	c.AddJob(fmt.Sprintf("@every %dm", reapIntervalMinutes), reapJob)
	Logger.Info("Adding idle document reaper", "idle_minutes", serverHandler.Config.IdleDocumentMinutes)
	c.Start()
	return c
}

func (serverHandler *ServerHandler) reapJobFunc() {
	// Add panic recovery to prevent entire application crash
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in reaper job", "panic", r)
		}
	}()
	if _, err := serverHandler.reapIdleDocuments(context.Background()); err != nil {
		Logger.Error("Idle document reaper failed", "error", err)
	}
}

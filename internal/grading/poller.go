// Package grading runs background grading checks: one cancellable poll loop
// per (chat, lab) pair, retrying until the grading server reports a terminal
// status, then editing the chat's placeholder message in place.
package grading

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"gradebot/internal/api"
	"gradebot/internal/bot"
	"gradebot/pkg/logger"
)

// Grader issues one grading request. A pending result means the backend is
// still working.
type Grader interface {
	GradeLab(ctx context.Context, courseID, group, labID, github string) (*api.GradeResult, error)
}

// Editor edits the placeholder message with the terminal outcome.
type Editor interface {
	Edit(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) error
}

// Request identifies one grading check and the placeholder message that owns
// its outcome.
type Request struct {
	ChatID    int64
	MessageID int
	CourseID  string
	Group     string
	LabID     string
	GitHub    string
}

type pollKey struct {
	chatID int64
	labID  string
}

type job struct {
	cancel context.CancelFunc
}

var errStillRunning = errors.New("grading still running")

// Poller owns the in-flight poll registry. A second request for the same
// (chat, lab) supersedes the first; a new flow in the chat cancels all of its
// polls so a stale edit never lands on a superseded placeholder.
type Poller struct {
	grader   Grader
	editor   Editor
	interval time.Duration
	maxWait  time.Duration

	mu       sync.Mutex
	inflight map[pollKey]*job
	wg       sync.WaitGroup
}

func NewPoller(grader Grader, editor Editor, interval, maxWait time.Duration) *Poller {
	return &Poller{
		grader:   grader,
		editor:   editor,
		interval: interval,
		maxWait:  maxWait,
		inflight: make(map[pollKey]*job),
	}
}

// Start launches a poll loop for the request, superseding any in-flight loop
// for the same (chat, lab). It returns immediately.
func (p *Poller) Start(req Request) {
	key := pollKey{chatID: req.ChatID, labID: req.LabID}
	ctx, cancel := context.WithCancel(context.Background())
	j := &job{cancel: cancel}

	p.mu.Lock()
	if prev, ok := p.inflight[key]; ok {
		prev.cancel()
	}
	p.inflight[key] = j
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		defer p.release(key, j)
		p.run(ctx, req)
	}()
}

// CancelChat cancels every in-flight poll belonging to the chat.
func (p *Poller) CancelChat(chatID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, j := range p.inflight {
		if key.chatID == chatID {
			j.cancel()
			delete(p.inflight, key)
		}
	}
}

// Wait blocks until every in-flight poll has finished. Used on shutdown and
// in tests.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Shutdown cancels every in-flight poll and waits for the loops to exit.
func (p *Poller) Shutdown() {
	p.mu.Lock()
	for key, j := range p.inflight {
		j.cancel()
		delete(p.inflight, key)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Poller) release(key pollKey, j *job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight[key] == j {
		delete(p.inflight, key)
	}
}

func (p *Poller) run(ctx context.Context, req Request) {
	log := zap.L().With(
		zap.Int64(logger.FieldChatID, req.ChatID),
		zap.String(logger.FieldCourseID, req.CourseID),
		zap.String(logger.FieldLabID, req.LabID),
	)
	log.Info("starting grading poll")

	var (
		terminal   *api.GradeResult
		gatewayErr error
	)
	backoff := retry.WithMaxDuration(p.maxWait, retry.NewConstant(p.interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := p.grader.GradeLab(ctx, req.CourseID, req.Group, req.LabID, req.GitHub)
		if err != nil {
			gatewayErr = err
			return nil
		}
		if res.Status == api.StatusPending {
			log.Info("grading still pending")
			return retry.RetryableError(errStillRunning)
		}
		terminal = res
		return nil
	})

	switch {
	case ctx.Err() != nil:
		// Superseded or the chat moved on; the placeholder is no longer ours.
		log.Info("grading poll cancelled")
		return
	case err != nil:
		log.Warn("grading poll deadline reached")
		p.edit(req, "⌛ The check did not finish in time. Try again later.")
	case gatewayErr != nil:
		log.Error("grading request failed", zap.Error(gatewayErr))
		p.edit(req, "❌ Server error")
	default:
		p.edit(req, formatResult(terminal))
	}
}

func (p *Poller) edit(req Request, text string) {
	if err := p.editor.Edit(req.ChatID, req.MessageID, text, bot.HomeKeyboard()); err != nil {
		zap.L().Error("failed to edit grading placeholder",
			zap.Int64(logger.FieldChatID, req.ChatID), zap.Error(err))
	}
}

func formatResult(res *api.GradeResult) string {
	if res.Status != api.StatusUpdated {
		if res.Message != "" {
			return html.EscapeString(res.Message)
		}
		return "❌ Could not start the check"
	}

	symbol := res.Result
	if symbol == "" {
		symbol = "✗"
	}
	return fmt.Sprintf(
		"<b>Result</b>: %s\n%s\n\n<b>Tests</b>: %s\n\n%s",
		symbol,
		html.EscapeString(res.Message),
		res.Passed,
		strings.Join(res.Checks, "\n"),
	)
}

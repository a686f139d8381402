package domain

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/ad/telegram-linker-bot/internal/locale"
)

const (
	DefaultCountdownTick   = 3 * time.Second
	DefaultPinNoticeWindow = 5 * time.Second
)

// CountdownJob refreshes one pinned countdown message until its link expires
type CountdownJob struct {
	ID             string
	ChatID         int64
	LinkName       string
	TimerMessageID int
	ExpiresAt      time.Time

	// LastRenderedText is the text the countdown message currently shows
	LastRenderedText string

	stop     chan struct{}
	stopOnce sync.Once
}

func (j *CountdownJob) key() string {
	return jobKey(j.ChatID, j.TimerMessageID)
}

func (j *CountdownJob) cancel() {
	j.stopOnce.Do(func() { close(j.stop) })
}

func jobKey(chatID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

func linkKey(chatID int64, name string) string {
	return fmt.Sprintf("%d:%s", chatID, name)
}

// SchedulerOption configures a CountdownScheduler
type SchedulerOption func(*CountdownScheduler)

// WithClock replaces time.Now
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *CountdownScheduler) { s.now = now }
}

// WithTickInterval sets how often countdown messages are refreshed
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *CountdownScheduler) { s.tick = d }
}

// WithPinNoticeWindow sets how long a "message pinned" notice is awaited
func WithPinNoticeWindow(d time.Duration) SchedulerOption {
	return func(s *CountdownScheduler) { s.pinWindow = d }
}

// CountdownScheduler owns every countdown job, the one-shot expiry timers of
// links without a working countdown and the short-lived pin notice watches.
type CountdownScheduler struct {
	messages  MessageGateway
	ops       messageOps
	registry  *InviteLinkRegistry
	localizer locale.Localizer
	logger    Logger

	now       func() time.Time
	tick      time.Duration
	pinWindow time.Duration
	botID     atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	jobs       cmap.ConcurrentMap[string, *CountdownJob]
	reapers    cmap.ConcurrentMap[string, *oneShot]
	pinWatches cmap.ConcurrentMap[string, *oneShot]
}

func NewCountdownScheduler(
	messages MessageGateway,
	registry *InviteLinkRegistry,
	localizer locale.Localizer,
	logger Logger,
	opts ...SchedulerOption,
) *CountdownScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &CountdownScheduler{
		messages:   messages,
		ops:        messageOps{gateway: messages, logger: logger},
		registry:   registry,
		localizer:  localizer,
		logger:     logger,
		now:        time.Now,
		tick:       DefaultCountdownTick,
		pinWindow:  DefaultPinNoticeWindow,
		ctx:        ctx,
		cancel:     cancel,
		jobs:       cmap.New[*CountdownJob](),
		reapers:    cmap.New[*oneShot](),
		pinWatches: cmap.New[*oneShot](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetBotID tells the scheduler which user authors the bot's own service messages
func (s *CountdownScheduler) SetBotID(id int64) {
	s.botID.Store(id)
}

// Now returns the scheduler's current time
func (s *CountdownScheduler) Now() time.Time {
	return s.now()
}

// DurationUnits returns the localized unit suffixes
func (s *CountdownScheduler) DurationUnits() DurationUnits {
	return DurationUnits{
		Expired: s.localizer.Localize(locale.DurationExpired),
		Days:    s.localizer.Localize(locale.DurationDaysSuffix),
		Hours:   s.localizer.Localize(locale.DurationHoursSuffix),
		Minutes: s.localizer.Localize(locale.DurationMinutesSuffix),
		Seconds: s.localizer.Localize(locale.DurationSecondsSuffix),
	}
}

// RenderCountdown builds the countdown message text for a link
func (s *CountdownScheduler) RenderCountdown(name string, expiresAt time.Time) string {
	remaining := FormatRemaining(RemainingSeconds(expiresAt, s.now()), s.DurationUnits())
	return s.localizer.LocalizeWithTemplate(locale.LinkCountdown, name, remaining)
}

// Start begins refreshing the link's countdown message. The link must have
// an expiry and a countdown message.
func (s *CountdownScheduler) Start(link InviteLink, chatID int64) (*CountdownJob, error) {
	if link.ExpiresAt == nil {
		return nil, ErrNoExpiry
	}
	if link.TimerMessageID == nil {
		return nil, ErrNoTimerMessage
	}

	job := &CountdownJob{
		ID:             uuid.NewString(),
		ChatID:         chatID,
		LinkName:       link.Name,
		TimerMessageID: *link.TimerMessageID,
		ExpiresAt:      *link.ExpiresAt,
		stop:           make(chan struct{}),
	}
	job.LastRenderedText = s.RenderCountdown(job.LinkName, job.ExpiresAt)

	if !s.jobs.SetIfAbsent(job.key(), job) {
		return nil, ErrJobExists
	}

	s.logger.Info("countdown started",
		"job_id", job.ID,
		"chat_id", chatID,
		"link", job.LinkName,
		"expires", humanize.RelTime(job.ExpiresAt, s.now(), "ago", "from now"),
	)

	go s.run(job)
	return job, nil
}

func (s *CountdownScheduler) run(job *CountdownJob) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-job.stop:
			return
		case <-ticker.C:
			if !s.Tick(s.ctx, job) {
				return
			}
		}
	}
}

// Tick performs one countdown step and reports whether the job stays active
func (s *CountdownScheduler) Tick(ctx context.Context, job *CountdownJob) bool {
	select {
	case <-job.stop:
		return false
	default:
	}

	if RemainingSeconds(job.ExpiresAt, s.now()) <= 0 {
		s.expireJob(ctx, job)
		return false
	}

	text := s.RenderCountdown(job.LinkName, job.ExpiresAt)
	if text == job.LastRenderedText {
		return true
	}
	job.LastRenderedText = text

	_, err := s.messages.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    job.ChatID,
		MessageID: job.TimerMessageID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err == nil || IsMessageNotModified(err) {
		return true
	}

	s.logger.Warn("countdown update failed, stopping refresh",
		"job_id", job.ID,
		"chat_id", job.ChatID,
		"link", job.LinkName,
		"error", err,
	)
	if s.dropJob(job) {
		if link, ok := s.registry.FindByName(job.ChatID, job.LinkName); ok {
			s.ArmExpiry(link, job.ChatID)
		}
	}
	return false
}

// expireJob tears down the link of a job whose time ran out. Only the caller
// that removes the job from the table performs the teardown.
func (s *CountdownScheduler) expireJob(ctx context.Context, job *CountdownJob) {
	if !s.dropJob(job) {
		return
	}

	link, ok := s.registry.FindByName(job.ChatID, job.LinkName)
	if !ok {
		link = InviteLink{Name: job.LinkName}
	}
	link.TimerMessageID = &job.TimerMessageID
	s.teardown(ctx, job.ChatID, link)
	s.logger.Info("countdown finished, link expired", "job_id", job.ID, "chat_id", job.ChatID, "link", job.LinkName)
}

func (s *CountdownScheduler) dropJob(job *CountdownJob) bool {
	removed := s.jobs.RemoveCb(job.key(), func(_ string, v *CountdownJob, exists bool) bool {
		return exists && v == job
	})
	job.cancel()
	return removed
}

// Expire performs the expiry teardown of a link right away
func (s *CountdownScheduler) Expire(ctx context.Context, link InviteLink, chatID int64) {
	s.Cancel(link, chatID)
	s.teardown(ctx, chatID, link)
	s.logger.Info("link expired", "chat_id", chatID, "link", link.Name)
}

func (s *CountdownScheduler) teardown(ctx context.Context, chatID int64, link InviteLink) {
	s.ops.removeLinkMessages(ctx, chatID, link)
	s.registry.Remove(ctx, chatID, link.Name)
}

// ArmExpiry schedules a one-shot expiry teardown for a link that has no
// working countdown
func (s *CountdownScheduler) ArmExpiry(link InviteLink, chatID int64) {
	if link.ExpiresAt == nil {
		return
	}

	key := linkKey(chatID, link.Name)
	t := &oneShot{}
	s.reapers.Upsert(key, t, func(exists bool, old, fresh *oneShot) *oneShot {
		if exists {
			old.Stop()
		}
		return fresh
	})

	t.Start(link.ExpiresAt.Sub(s.now()), func() {
		removed := s.reapers.RemoveCb(key, func(_ string, v *oneShot, exists bool) bool {
			return exists && v == t
		})
		if !removed || s.ctx.Err() != nil {
			return
		}
		current, ok := s.registry.FindByName(chatID, link.Name)
		if !ok {
			return
		}
		s.teardown(s.ctx, chatID, current)
		s.logger.Info("link expired", "chat_id", chatID, "link", link.Name)
	})

	s.logger.Debug("expiry armed", "chat_id", chatID, "link", link.Name, "expires", humanize.Time(*link.ExpiresAt))
}

// Cancel stops the link's countdown job and expiry timer, if any. It is safe
// to call any number of times.
func (s *CountdownScheduler) Cancel(link InviteLink, chatID int64) {
	if link.TimerMessageID != nil {
		if job, ok := s.jobs.Pop(jobKey(chatID, *link.TimerMessageID)); ok {
			job.cancel()
			s.logger.Debug("countdown cancelled", "job_id", job.ID, "chat_id", chatID, "link", link.Name)
		}
	}
	if timer, ok := s.reapers.Pop(linkKey(chatID, link.Name)); ok {
		timer.Stop()
	}
}

// Job returns the active countdown job of a countdown message
func (s *CountdownScheduler) Job(chatID int64, timerMessageID int) (*CountdownJob, bool) {
	return s.jobs.Get(jobKey(chatID, timerMessageID))
}

// ActiveJobs returns the number of running countdown jobs
func (s *CountdownScheduler) ActiveJobs() int {
	return s.jobs.Count()
}

// HasExpiry reports whether a one-shot expiry timer is armed for the link
func (s *CountdownScheduler) HasExpiry(chatID int64, name string) bool {
	return s.reapers.Has(linkKey(chatID, name))
}

// WatchPinNotice arranges deletion of the "message pinned" notice for
// messageID if it arrives within the pin notice window
func (s *CountdownScheduler) WatchPinNotice(chatID int64, messageID int) {
	key := jobKey(chatID, messageID)
	t := &oneShot{}
	s.pinWatches.Upsert(key, t, func(exists bool, old, fresh *oneShot) *oneShot {
		if exists {
			old.Stop()
		}
		return fresh
	})

	t.Start(s.pinWindow, func() {
		s.pinWatches.RemoveCb(key, func(_ string, v *oneShot, exists bool) bool {
			return exists && v == t
		})
	})
}

// ForgetPinNotice drops a pin notice watch
func (s *CountdownScheduler) ForgetPinNotice(chatID int64, messageID int) {
	if timer, ok := s.pinWatches.Pop(jobKey(chatID, messageID)); ok {
		timer.Stop()
	}
}

// HandleServiceMessage deletes the bot's own "message pinned" notice for a
// watched countdown message. It reports whether msg was consumed.
func (s *CountdownScheduler) HandleServiceMessage(ctx context.Context, msg *models.Message) bool {
	if msg == nil || msg.PinnedMessage == nil || msg.PinnedMessage.Message == nil {
		return false
	}
	if msg.From == nil || msg.From.ID != s.botID.Load() {
		return false
	}

	timer, ok := s.pinWatches.Pop(jobKey(msg.Chat.ID, msg.PinnedMessage.Message.ID))
	if !ok {
		return false
	}
	timer.Stop()

	s.ops.delete(ctx, msg.Chat.ID, msg.ID, "pin notice")
	return true
}

// oneShot is a cancellable delayed call. Stop before Start prevents the call.
type oneShot struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func (o *oneShot) Start(d time.Duration, f func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.stopped {
		o.timer = time.AfterFunc(d, f)
	}
}

func (o *oneShot) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopped = true
	if o.timer != nil {
		o.timer.Stop()
	}
}

// Shutdown cancels every job, expiry timer and pin watch
func (s *CountdownScheduler) Shutdown() {
	s.cancel()

	for _, key := range s.jobs.Keys() {
		if job, ok := s.jobs.Pop(key); ok {
			job.cancel()
		}
	}
	for _, key := range s.reapers.Keys() {
		if timer, ok := s.reapers.Pop(key); ok {
			timer.Stop()
		}
	}
	for _, key := range s.pinWatches.Keys() {
		if timer, ok := s.pinWatches.Pop(key); ok {
			timer.Stop()
		}
	}

	s.logger.Info("countdown scheduler stopped")
}

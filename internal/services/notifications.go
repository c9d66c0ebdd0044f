package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/submission"
	"github.com/yungbote/classweek-backend/internal/pkg/pointers"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
	"github.com/yungbote/classweek-backend/internal/platform/sendgrid"
	"github.com/yungbote/classweek-backend/internal/platform/twilio"
)

const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
)

type GuardianMessage struct {
	SubmissionID  uuid.UUID
	GuardianName  string
	GuardianPhone string
	GuardianEmail string
	Subject       string
	Body          string
}

type DispatchResult struct {
	Channel           string
	ProviderMessageID string
}

// NotificationSender delivers one guardian message.
type NotificationSender interface {
	Send(ctx context.Context, msg GuardianMessage) (DispatchResult, error)
}

// errChannelUnavailable means the sender has no address for this guardian.
var errChannelUnavailable = errors.New("channel unavailable for guardian")

type whatsAppSender struct {
	client twilio.Client
}

func NewWhatsAppSender(client twilio.Client) NotificationSender {
	return &whatsAppSender{client: client}
}

func (s *whatsAppSender) Send(ctx context.Context, msg GuardianMessage) (DispatchResult, error) {
	if strings.TrimSpace(msg.GuardianPhone) == "" {
		return DispatchResult{}, errChannelUnavailable
	}
	m, err := s.client.SendWhatsApp(ctx, msg.GuardianPhone, msg.Body)
	if err != nil {
		return DispatchResult{}, err
	}
	return DispatchResult{Channel: ChannelWhatsApp, ProviderMessageID: m.SID}, nil
}

type emailSender struct {
	client sendgrid.Client
}

func NewEmailSender(client sendgrid.Client) NotificationSender {
	return &emailSender{client: client}
}

func (s *emailSender) Send(ctx context.Context, msg GuardianMessage) (DispatchResult, error) {
	if strings.TrimSpace(msg.GuardianEmail) == "" {
		return DispatchResult{}, errChannelUnavailable
	}
	res, err := s.client.Send(ctx, sendgrid.SendEmailRequest{
		To:         []sendgrid.EmailAddress{{Email: msg.GuardianEmail, Name: msg.GuardianName}},
		Subject:    msg.Subject,
		Text:       msg.Body,
		Categories: []string{"homework_submission"},
		CustomArgs: map[string]string{"submission_id": msg.SubmissionID.String()},
	})
	if err != nil {
		return DispatchResult{}, err
	}
	return DispatchResult{Channel: ChannelEmail, ProviderMessageID: res.MessageID}, nil
}

type fallbackSender struct {
	log     *logger.Logger
	senders []NotificationSender
}

// NewFallbackSender tries senders in order and returns the first success.
func NewFallbackSender(log *logger.Logger, senders ...NotificationSender) NotificationSender {
	out := make([]NotificationSender, 0, len(senders))
	for _, s := range senders {
		if s != nil {
			out = append(out, s)
		}
	}
	return &fallbackSender{log: log.With("service", "NotificationSender"), senders: out}
}

func (f *fallbackSender) Send(ctx context.Context, msg GuardianMessage) (DispatchResult, error) {
	var errs []error
	for _, s := range f.senders {
		res, err := s.Send(ctx, msg)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, errChannelUnavailable) {
			f.log.Warn("Notification channel failed; trying next", "submission_id", msg.SubmissionID, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return DispatchResult{}, ErrNoGuardianContact
	}
	return DispatchResult{}, errors.Join(errs...)
}

// NotificationService delivers the guardian notice for a submission and records the outcome.
type NotificationService interface {
	Deliver(ctx context.Context, submissionID uuid.UUID) error
}

type notificationService struct {
	log         *logger.Logger
	submissions repos.HomeworkSubmissionRepo
	users       repos.UserRepo
	weeks       repos.WeekRepo
	sender      NotificationSender
	now         func() time.Time
}

func NewNotificationService(log *logger.Logger, submissions repos.HomeworkSubmissionRepo, users repos.UserRepo, weeks repos.WeekRepo, sender NotificationSender) NotificationService {
	return &notificationService{
		log:         log.With("service", "NotificationService"),
		submissions: submissions,
		users:       users,
		weeks:       weeks,
		sender:      sender,
		now:         time.Now,
	}
}

func (s *notificationService) Deliver(ctx context.Context, submissionID uuid.UUID) error {
	dbc := dbctx.With(ctx)
	sub, err := s.submissions.GetByID(dbc, submissionID)
	if err != nil {
		return fmt.Errorf("load submission: %w", err)
	}
	if sub == nil {
		return ErrSubmissionNotFound
	}
	if sub.Notification.State == submission.NotificationSent {
		return nil
	}
	student, err := s.users.GetByID(dbc, sub.StudentID)
	if err != nil {
		return fmt.Errorf("load student: %w", err)
	}
	if student == nil {
		return ErrStudentNotFound
	}
	week, err := s.weeks.GetByID(dbc, sub.WeekID)
	if err != nil {
		return fmt.Errorf("load week: %w", err)
	}

	n := sub.Notification
	n.Attempts++
	n.LastAttemptAt = pointers.Time(s.now())

	var sendErr error
	if s.sender == nil {
		sendErr = errors.New("no notification sender configured")
	} else {
		var res DispatchResult
		res, sendErr = s.sender.Send(ctx, BuildGuardianMessage(student, week, sub))
		if sendErr == nil {
			n.State = submission.NotificationSent
			n.Channel = res.Channel
			n.ProviderMessageID = res.ProviderMessageID
			n.LastError = ""
		}
	}
	if sendErr != nil {
		n.State = submission.NotificationFailed
		n.LastError = truncate(sendErr.Error(), 500)
		s.log.Warn("Guardian notification failed", "submission_id", submissionID, "attempts", n.Attempts, "error", sendErr)
	} else {
		s.log.Info("Guardian notification sent", "submission_id", submissionID, "channel", n.Channel)
	}
	if err := s.submissions.UpdateNotification(dbc, submissionID, n); err != nil {
		return fmt.Errorf("record notification status: %w", err)
	}
	return sendErr
}

func BuildGuardianMessage(student *types.User, week *types.Week, sub *types.HomeworkSubmission) GuardianMessage {
	guardian := strings.TrimSpace(student.GuardianName)
	if guardian == "" {
		guardian = "Parent/Guardian"
	}
	weekLabel := "this week"
	if week != nil {
		weekLabel = fmt.Sprintf("week %d", week.WeekNumber)
	}
	title := sub.MaterialTitle
	if title == "" {
		title = sub.FileName
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s, %s submitted the homework \"%s\" for %s on %s.",
		guardian, student.Name, title, weekLabel, sub.SubmittedAt.UTC().Format("2006-01-02 15:04 UTC"))
	if sub.IsLate {
		fmt.Fprintf(&b, " The submission was late; a %d%% penalty applies.", sub.LatePenalty)
	}
	return GuardianMessage{
		SubmissionID:  sub.ID,
		GuardianName:  student.GuardianName,
		GuardianPhone: student.GuardianPhone,
		GuardianEmail: student.GuardianEmail,
		Subject:       fmt.Sprintf("%s submitted homework for %s", student.Name, weekLabel),
		Body:          b.String(),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// NotificationQueue schedules delivery outside the request path.
type NotificationQueue interface {
	Enqueue(ctx context.Context, submissionID uuid.UUID) error
}

type inlineQueue struct {
	log      *logger.Logger
	deliver  NotificationService
	sem      *semaphore.Weighted
	timeout  time.Duration
	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	baseCtx  context.Context
	cancelFn context.CancelFunc
}

// NewInlineQueue runs deliveries on goroutines, at most maxInFlight at once.
func NewInlineQueue(log *logger.Logger, deliver NotificationService, maxInFlight int64, timeout time.Duration) *inlineQueue {
	if maxInFlight <= 0 {
		maxInFlight = 8
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &inlineQueue{
		log:      log.With("service", "NotificationQueue"),
		deliver:  deliver,
		sem:      semaphore.NewWeighted(maxInFlight),
		timeout:  timeout,
		baseCtx:  ctx,
		cancelFn: cancel,
	}
}

func (q *inlineQueue) Enqueue(_ context.Context, submissionID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("notification queue closed")
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.sem.Acquire(q.baseCtx, 1); err != nil {
			return
		}
		defer q.sem.Release(1)
		ctx, cancel := context.WithTimeout(q.baseCtx, q.timeout)
		defer cancel()
		if err := q.deliver.Deliver(ctx, submissionID); err != nil {
			q.log.Debug("Queued delivery finished with error", "submission_id", submissionID, "error", err)
		}
	}()
	return nil
}

// Close stops accepting work and waits for in-flight deliveries until ctx is done.
func (q *inlineQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		q.cancelFn()
		return ctx.Err()
	}
}

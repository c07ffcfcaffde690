// Package scan walks the account's chats and decides, for a set of users
// and a date window, which chats the users posted in. Pagination is
// cursor-driven and strictly sequential; per-chat permission failures are
// contained so one denied chat cannot sink the whole scan.
package scan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avezina/chatscan/internal/domain"
	"github.com/avezina/chatscan/internal/ports"
)

const (
	chatListPath = "/team-messaging/v1/chats"

	chatPageSize = 250
	postPageSize = 100

	cacheTTL      = 5 * time.Minute
	flushInterval = 500 * time.Millisecond
)

// Engine runs scans over an authenticated transport. One scan at a time;
// calls are never parallelized, so total round-trips stay proportional to
// chats x users x pages-until-match-or-exhaustion.
type Engine struct {
	client Doer
	clock  ports.Clock
	log    zerolog.Logger
	cache  *resultCache

	progress *progressState
}

func NewEngine(client Doer, clock ports.Clock, log zerolog.Logger) *Engine {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Engine{
		client:   client,
		clock:    clock,
		log:      log,
		cache:    newResultCache(cacheTTL, clock),
		progress: newProgressState(),
	}
}

// Progress returns a snapshot of the in-flight scan: the chats matched and
// the log entries emitted so far. Both views grow monotonically; any
// snapshot is a prefix of the final state.
func (e *Engine) Progress() Progress {
	return e.progress.snapshot()
}

// FindChats validates req, pages through the chat list, then checks every
// (chat, user) pair exactly once, newest posts first, stopping a chat at
// its first match. Entries stream to sink on a fixed flush interval, with
// a forced flush on completion and on every error.
func (e *Engine) FindChats(ctx context.Context, req domain.ScanRequest, sink Sink) ([]domain.Chat, error) {
	req, window, err := normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	buf := newLogBuffer(sink, flushInterval)
	buf.Start()
	defer buf.Stop()

	e.progress.reset()
	emit := func(severity domain.Severity, format string, args ...any) {
		entry := domain.LogEntry{
			Time:     e.clock.Now(),
			Severity: severity,
			Message:  fmt.Sprintf(format, args...),
		}
		e.progress.appendLog(entry)
		buf.Append(entry)
	}

	runID := uuid.NewString()
	e.log.Debug().Str("run_id", runID).Strs("users", req.UserIDs).Msg("scan started")

	key := cacheKey(req)
	if chats, ok := e.cache.get(key); ok {
		emit(domain.SeverityInfo, "scan %s: reusing results computed in the last %s", runID, cacheTTL)
		for _, chat := range chats {
			e.progress.addChat(chat)
		}
		buf.Flush()
		return chats, nil
	}

	emit(domain.SeverityInfo, "scan %s: checking %d user(s) between %s and %s",
		runID, len(req.UserIDs), req.From, req.To)

	chats, err := e.listChats(ctx, req.Kinds, emit)
	if err != nil {
		emit(domain.SeverityError, "scan %s failed: %v", runID, err)
		buf.Flush()
		return e.progress.chatsSnapshot(), err
	}
	emit(domain.SeverityInfo, "scan %s: inspecting %d chat(s)", runID, len(chats))

	for _, chat := range chats {
		for _, userID := range req.UserIDs {
			emit(domain.SeverityInfo, "checking chat %q for user %s", chat.Label(), userID)

			matched, err := e.scanChatForUser(ctx, chat, userID, window, emit)
			if err != nil {
				emit(domain.SeverityError, "scan %s failed: %v", runID, err)
				buf.Flush()
				return e.progress.chatsSnapshot(), err
			}
			if matched {
				emit(domain.SeveritySuccess, "user %s posted in chat %q", userID, chat.Label())
				e.progress.addChat(chat)
				// One hit qualifies the chat; remaining users can be skipped.
				break
			}
		}
	}

	result := e.progress.chatsSnapshot()
	e.cache.put(key, result)
	emit(domain.SeveritySuccess, "scan %s complete: %d chat(s) matched", runID, len(result))
	buf.Flush()
	e.log.Debug().Str("run_id", runID).Int("matched", len(result)).Msg("scan complete")
	return result, nil
}

func (e *Engine) listChats(ctx context.Context, kinds []domain.ChatKind, emit func(domain.Severity, string, ...any)) ([]domain.Chat, error) {
	records, err := fetchAllPages[chatRecord](ctx, e.client, chatListPath, chatPageSize, emit)
	if err != nil {
		return nil, err
	}

	chats := make([]domain.Chat, 0, len(records))
	for _, record := range records {
		chat := domain.Chat{
			ID:          record.ID,
			DisplayName: record.Name,
			Kind:        chatKindOf(record.Type),
		}
		if len(kinds) > 0 && !kindAllowed(chat.Kind, kinds) {
			continue
		}
		chats = append(chats, chat)
	}

	return chats, nil
}

// scanChatForUser pages through a chat's posts newest-first. The platform
// is trusted to return strictly descending creation times; that ordering
// is what makes crossing the window start a proof that no older page can
// match. A 404 on any page means the chat is not accessible to this
// session and counts as no-match without ending the scan.
func (e *Engine) scanChatForUser(ctx context.Context, chat domain.Chat, userID string, window timeWindow, emit func(domain.Severity, string, ...any)) (bool, error) {
	base := chatListPath + "/" + chat.ID + "/posts"
	pageToken := ""

	for pageNum := 1; ; pageNum++ {
		emit(domain.SeverityInfo, "chat %q: fetching posts (page %d)", chat.Label(), pageNum)

		var p page[postRecord]
		err := e.client.Do(ctx, http.MethodGet, pagePath(base, postPageSize, pageToken), &p)
		if err != nil {
			var apiErr *domain.APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
				emit(domain.SeverityWarn, "chat %q is not accessible, skipping", chat.Label())
				return false, nil
			}
			return false, err
		}

		for _, post := range p.Records {
			if post.CreationTime.Before(window.start) {
				emit(domain.SeverityWarn, "chat %q: reached posts older than %s, stopping",
					chat.Label(), window.start.Format("2006-01-02"))
				return false, nil
			}
			if post.CreatorID == userID && !post.CreationTime.After(window.end) {
				return true, nil
			}
		}

		if p.Navigation.NextPageToken == "" {
			return false, nil
		}
		pageToken = p.Navigation.NextPageToken
	}
}

type timeWindow struct {
	start time.Time
	end   time.Time
}

// normalizeRequest trims user ids, parses the dates, and widens the end
// date to its last instant so the whole end day is inclusive.
func normalizeRequest(req domain.ScanRequest) (domain.ScanRequest, timeWindow, error) {
	users := make([]string, 0, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		trimmed := strings.TrimSpace(userID)
		if trimmed == "" {
			return req, timeWindow{}, &domain.ValidationError{Reason: "user id is empty"}
		}
		users = append(users, trimmed)
	}
	if len(users) == 0 {
		return req, timeWindow{}, &domain.ValidationError{Reason: "at least one user id is required"}
	}
	req.UserIDs = users

	start, err := parseDate(req.From)
	if err != nil {
		return req, timeWindow{}, &domain.ValidationError{Reason: fmt.Sprintf("start date %q is not a valid YYYY-MM-DD date", req.From)}
	}
	end, err := parseDate(req.To)
	if err != nil {
		return req, timeWindow{}, &domain.ValidationError{Reason: fmt.Sprintf("end date %q is not a valid YYYY-MM-DD date", req.To)}
	}
	if start.After(end) {
		return req, timeWindow{}, &domain.ValidationError{Reason: "start date is after end date"}
	}

	window := timeWindow{
		start: start,
		end:   time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(999*time.Millisecond), end.Location()),
	}
	return req, window, nil
}

func parseDate(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, errors.New("date is empty")
	}
	return time.ParseInLocation("2006-01-02", value, time.Local)
}

func chatKindOf(chatType string) domain.ChatKind {
	switch chatType {
	case "Team":
		return domain.ChatKindTeam
	case "Direct":
		return domain.ChatKindDirect
	default:
		return domain.ChatKindOther
	}
}

func kindAllowed(kind domain.ChatKind, kinds []domain.ChatKind) bool {
	for _, allowed := range kinds {
		if kind == allowed {
			return true
		}
	}
	return false
}

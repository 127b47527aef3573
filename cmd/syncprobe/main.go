// Command syncprobe drives the status synchronization protocol against a
// running server: it loads the appointments page for a session and CSRF
// token, then requests one status transition and reports the outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/palmerclinic/clinic-platform/internal/appointments"
	"github.com/palmerclinic/clinic-platform/internal/statussync"
	"github.com/palmerclinic/clinic-platform/pkg/logging"
)

var csrfMetaPattern = regexp.MustCompile(`name="csrf-token" content="([^"]+)"`)

// pageTokenSource re-reads the appointments page for every token so each
// request carries a freshly issued one.
type pageTokenSource struct {
	client  *http.Client
	pageURL string
}

func (s *pageTokenSource) Token(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("syncprobe: build page request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("syncprobe: load page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("syncprobe: page returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("syncprobe: read page: %w", err)
	}
	match := csrfMetaPattern.FindSubmatch(body)
	if match == nil {
		return "", fmt.Errorf("syncprobe: no csrf meta tag in page")
	}
	return string(match[1]), nil
}

func main() {
	var (
		base    = flag.String("base", "http://localhost:8080", "server base URL")
		apptID  = flag.String("appointment", "", "appointment id to update")
		current = flag.String("current", "scheduled", "status currently displayed")
		target  = flag.String("status", "done", "status to request")
		timeout = flag.Duration("timeout", 10*time.Second, "request timeout")
	)
	flag.Parse()

	logger := logging.New(os.Getenv("LOG_LEVEL"))

	if *apptID == "" {
		fmt.Fprintln(os.Stderr, "usage: syncprobe -appointment <id> [-status done] [-current scheduled]")
		os.Exit(2)
	}
	displayed, err := appointments.ParseStatus(*current)
	if err != nil {
		logger.Error("invalid current status", "value", *current)
		os.Exit(2)
	}
	desired, err := appointments.ParseStatus(*target)
	if err != nil {
		logger.Error("invalid target status", "value", *target)
		os.Exit(2)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		logger.Error("cookie jar init failed", "error", err)
		os.Exit(1)
	}
	client := &http.Client{Jar: jar, Timeout: *timeout}

	pageURL, err := url.JoinPath(*base, "appointments")
	if err != nil {
		logger.Error("invalid base URL", "base", *base, "error", err)
		os.Exit(2)
	}
	tokens := &pageTokenSource{client: client, pageURL: pageURL}

	// Prime the session cookie before the first write.
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if _, err := tokens.Token(ctx); err != nil {
		logger.Error("initial page load failed", "error", err)
		os.Exit(1)
	}

	syncer := statussync.NewSynchronizer(*base, tokens,
		statussync.WithHTTPClient(client),
		statussync.WithLogger(logger),
		statussync.WithObserver(statussync.ObserverFunc(func(ev statussync.Event) {
			logger.Info("protocol event", "event", ev.Name, "control", ev.ControlID, "outcome", ev.Outcome)
		})),
	)

	control := &statussync.Control{
		ID:            "probe:" + *apptID,
		AppointmentID: *apptID,
		Kind:          statussync.KindToggle,
	}
	if err := syncer.Register(control, displayed); err != nil {
		logger.Error("register control failed", "error", err)
		os.Exit(1)
	}

	outcome := syncer.RequestStatusChange(ctx, control, &desired)
	final, _ := syncer.DisplayedStatus(control.ID)
	fmt.Printf("outcome=%s displayed=%s\n", outcome, final)

	if outcome != statussync.OutcomeConfirmed {
		os.Exit(1)
	}
}

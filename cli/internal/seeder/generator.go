// Package seeder generates realistic browser event traffic and feeds it
// through the collector's public intake endpoints.
package seeder

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/ghostlink/bridge-stack/cli/internal/client"
)

var viewports = []string{
	"1920x1080", "1536x864", "1440x900", "1366x768", "390x844", "414x896", "360x800",
}

// followupTypes are the event types a session emits after its initial
// pageview, roughly weighted by how real visitors behave.
var followupTypes = []string{
	"engaged_15s", "engaged_15s", "heartbeat", "heartbeat", "heartbeat",
	"hidden", "route_change", "custom", "leave",
}

// session models one synthetic visitor. Per-visitor attributes stay fixed
// across all events the session emits.
type session struct {
	id        string
	domain    string
	pagePath  string
	pageTitle string
	referrer  string
	language  string
	timezone  string
	viewport  string
}

type generator struct {
	rng      *rand.Rand
	sessions []session
}

func newGenerator(seed int64, sessionCount int) *generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	if sessionCount < 1 {
		sessionCount = 1
	}

	g := &generator{
		rng:      rand.New(rand.NewSource(seed)),
		sessions: make([]session, sessionCount),
	}
	for i := range g.sessions {
		domain := gofakeit.DomainName()
		g.sessions[i] = session{
			id:        fmt.Sprintf("sess-%s", gofakeit.UUID()[:8]),
			domain:    domain,
			pagePath:  "/" + gofakeit.Word() + "/" + gofakeit.Word(),
			pageTitle: gofakeit.Sentence(3),
			referrer:  pickReferrer(),
			language:  gofakeit.LanguageAbbreviation(),
			timezone:  gofakeit.TimeZoneRegion(),
			viewport:  gofakeit.RandomString(viewports),
		}
	}
	return g
}

func pickReferrer() string {
	// Most traffic is direct or search; the rest comes from somewhere random.
	switch gofakeit.IntRange(0, 9) {
	case 0, 1, 2, 3:
		return ""
	case 4, 5, 6:
		return "https://www.google.com/"
	default:
		return "https://" + gofakeit.DomainName() + "/"
	}
}

// generate produces count envelopes spread backwards over timeSpread from
// now. The first event of each session is a pageview; the rest follow the
// weighted distribution.
func (g *generator) generate(count int, now time.Time, timeSpread time.Duration) []client.Envelope {
	events := make([]client.Envelope, 0, count)
	seen := make(map[string]int, len(g.sessions))

	for i := 0; i < count; i++ {
		s := g.sessions[g.rng.Intn(len(g.sessions))]

		eventType := "pageview"
		if seen[s.id] > 0 {
			eventType = gofakeit.RandomString(followupTypes)
		}
		seen[s.id]++

		page := s.pagePath
		if eventType == "route_change" {
			page = "/" + gofakeit.Word()
		}

		events = append(events, client.Envelope{
			EventID:    gofakeit.UUID(),
			EventType:  eventType,
			SessionID:  s.id,
			PageURL:    "https://" + s.domain + page,
			PageTitle:  s.pageTitle,
			Referrer:   s.referrer,
			Language:   s.language,
			Timezone:   s.timezone,
			Viewport:   s.viewport,
			OccurredAt: g.eventTime(now, timeSpread, i, count).Format(time.RFC3339),
		})
	}

	return events
}

// eventTime spreads event i of total over the window ending at now, with
// ±40% jitter so timestamps do not land on a perfect grid.
func (g *generator) eventTime(now time.Time, window time.Duration, index, total int) time.Time {
	if window <= 0 || total <= 0 {
		return now
	}

	baseInterval := float64(window) / float64(total)
	baseOffset := time.Duration(float64(index) * baseInterval)

	jitterRange := baseInterval * 0.4
	jitter := time.Duration((g.rng.Float64()*2.0 - 1.0) * jitterRange)

	totalOffset := baseOffset + jitter
	if totalOffset < 0 {
		totalOffset = 0
	}
	if totalOffset > window {
		totalOffset = window
	}

	return now.Add(-(window - totalOffset))
}

// duplicateSome re-issues the event IDs of pct percent of events as fresh
// envelope copies, to exercise the collector's dedup ledger.
func (g *generator) duplicateSome(events []client.Envelope, pct int) []client.Envelope {
	if pct <= 0 || len(events) == 0 {
		return events
	}

	extra := len(events) * pct / 100
	for i := 0; i < extra; i++ {
		events = append(events, events[g.rng.Intn(len(events))])
	}
	return events
}

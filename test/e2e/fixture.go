package e2e

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/abelbrown/feedkeeper/internal/model"
	"github.com/abelbrown/feedkeeper/internal/store"
)

// fixtureSnapshot holds one post the default rules extract.
const fixtureSnapshot = `<html><body>
<div class="feed-shared-update-v2" data-urn="urn:li:activity:9001">
  <span class="feed-shared-actor__name">Fixture Author</span>
  <div class="feed-shared-text">A deterministic post for UI tests.</div>
</div>
</body></html>`

// seedFixture writes a snapshot file and stores one earlier summary under
// home. Returns the snapshot path.
func seedFixture(home string) (string, error) {
	if err := os.MkdirAll(home, 0o700); err != nil {
		return "", err
	}
	snap := filepath.Join(home, "feed.html")
	if err := os.WriteFile(snap, []byte(fixtureSnapshot), 0o600); err != nil {
		return "", err
	}

	st, err := store.Open(filepath.Join(home, "feedkeeper.db"))
	if err != nil {
		return "", err
	}
	defer st.Close()

	ctx := context.Background()
	date := "2026-10-18"
	sums := map[string]model.Summary{
		date: {
			Date:      date,
			Text:      "Fixture summary text.",
			Timestamp: time.Date(2026, 10, 18, 23, 55, 0, 0, time.Local).UnixMilli(),
			PostCount: 4,
		},
	}
	if err := st.SetJSON(ctx, store.KeySummaries, sums); err != nil {
		return "", err
	}
	if err := st.SetJSON(ctx, store.KeyLastSummaryDate, date); err != nil {
		return "", err
	}
	return snap, nil
}

package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/feedkeeper/internal/model"
)

func recs(ids ...string) []model.PostRecord {
	out := make([]model.PostRecord, len(ids))
	for i, id := range ids {
		out[i] = model.PostRecord{ID: id, Content: "post " + id}
	}
	return out
}

func ids(b []model.PostRecord) []string {
	out := make([]string, len(b))
	for i, r := range b {
		out[i] = r.ID
	}
	return out
}

func TestMergeAppendsInOrder(t *testing.T) {
	h, added := Merge(nil, "2026-10-19", recs("a", "b"), DefaultLimits())
	assert.Equal(t, 2, added)
	h, added = Merge(h, "2026-10-19", recs("c"), DefaultLimits())
	assert.Equal(t, 1, added)
	assert.Equal(t, []string{"a", "b", "c"}, ids(h["2026-10-19"]))
}

func TestMergeIsIdempotent(t *testing.T) {
	batch := recs("a", "b", "c")
	h, _ := Merge(History{}, "2026-10-19", batch, DefaultLimits())
	again, added := Merge(h, "2026-10-19", batch, DefaultLimits())

	assert.Zero(t, added)
	assert.Equal(t, h, again)
}

func TestMergeSkipsRepeatsWithinBatch(t *testing.T) {
	h, added := Merge(History{}, "2026-10-19", recs("a", "a", "b"), DefaultLimits())
	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"a", "b"}, ids(h["2026-10-19"]))
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	orig := History{"2026-10-19": recs("a")}
	_, _ = Merge(orig, "2026-10-19", recs("b"), DefaultLimits())
	assert.Equal(t, []string{"a"}, ids(orig["2026-10-19"]))
}

func TestPerDayCapIsFIFO(t *testing.T) {
	lim := Limits{PerDay: 3, Days: 7}
	h, _ := Merge(nil, "2026-10-19", recs("1", "2"), lim)
	h, _ = Merge(h, "2026-10-19", recs("3", "4"), lim)
	assert.Equal(t, []string{"2", "3", "4"}, ids(h["2026-10-19"]))

	h, added := Merge(h, "2026-10-19", recs("5", "6", "7", "8"), lim)
	assert.Equal(t, 4, added)
	assert.Equal(t, []string{"6", "7", "8"}, ids(h["2026-10-19"]))
}

func TestEighthDateEvictsOldest(t *testing.T) {
	lim := DefaultLimits()
	h := History{}
	for day := 1; day <= 7; day++ {
		date := fmt.Sprintf("2026-10-%02d", day)
		h, _ = Merge(h, date, recs(date+"-a", date+"-b"), lim)
	}
	require.Len(t, h, 7)
	before := History{}
	for d, b := range h {
		before[d] = b
	}

	h, _ = Merge(h, "2026-10-08", recs("new"), lim)

	assert.Len(t, h, 7)
	assert.NotContains(t, h, "2026-10-01")
	for day := 2; day <= 7; day++ {
		date := fmt.Sprintf("2026-10-%02d", day)
		assert.Equal(t, before[date], h[date], date)
	}
	assert.Equal(t, []string{"new"}, ids(h["2026-10-08"]))
}

func TestDatesSorted(t *testing.T) {
	h := History{"2026-10-03": nil, "2026-09-30": nil, "2026-10-01": nil}
	assert.Equal(t, []string{"2026-09-30", "2026-10-01", "2026-10-03"}, Dates(h))
}

func TestDecode(t *testing.T) {
	h, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, h)

	h, err = Decode([]byte(`{"2026-10-19":[{"id":"x","content":"hi"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, Count(h, "2026-10-19"))
	assert.Equal(t, 1, Total(h))

	_, err = Decode([]byte(`[1,2]`))
	assert.Error(t, err)
}

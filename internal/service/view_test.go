package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"daily-tracker/internal/model"
)

func viewFixture() []model.Activity {
	return []model.Activity{
		{ID: "1", Task: "read", Duration: 30},
		{ID: "2", Task: "Run", Duration: 40, Done: true},
		{ID: "3", Task: "algebra", Duration: 50},
		{ID: "4", Task: "Yoga", Duration: 60, Done: true},
		{ID: "5", Task: "Bike", Duration: 70},
	}
}

func ids(acts []model.Activity) []string {
	out := make([]string, 0, len(acts))
	for _, a := range acts {
		out = append(out, a.ID)
	}
	return out
}

func TestApplyViewFilters(t *testing.T) {
	acts := viewFixture()

	require.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(ApplyView(acts, FilterAll, SortDefault)))
	require.Equal(t, []string{"1", "3", "5"}, ids(ApplyView(acts, FilterPending, SortDefault)))
	require.Equal(t, []string{"2", "4"}, ids(ApplyView(acts, FilterDone, SortDefault)))
}

func TestPendingUnionDoneEqualsAll(t *testing.T) {
	acts := viewFixture()
	all := ApplyView(acts, FilterAll, SortDefault)
	pending := ApplyView(acts, FilterPending, SortDefault)
	done := ApplyView(acts, FilterDone, SortDefault)

	require.ElementsMatch(t, ids(all), append(ids(pending), ids(done)...))
	require.Len(t, all, len(pending)+len(done))
}

func TestApplyViewSortsCaseInsensitive(t *testing.T) {
	acts := viewFixture()

	asc := ApplyView(acts, FilterAll, SortAsc)
	require.Equal(t, []string{"3", "5", "1", "2", "4"}, ids(asc))

	desc := ApplyView(acts, FilterAll, SortDesc)
	require.Equal(t, []string{"4", "2", "1", "5", "3"}, ids(desc))

	reversed := make([]string, 0, len(desc))
	for i := len(desc) - 1; i >= 0; i-- {
		reversed = append(reversed, desc[i].ID)
	}
	require.Equal(t, ids(asc), reversed)
}

func TestApplyViewSortsFilteredSubset(t *testing.T) {
	require.Equal(t, []string{"3", "5", "1"}, ids(ApplyView(viewFixture(), FilterPending, SortAsc)))
}

func TestApplyViewStableTies(t *testing.T) {
	acts := []model.Activity{
		{ID: "a", Task: "Read"},
		{ID: "b", Task: "gym"},
		{ID: "c", Task: "READ"},
		{ID: "d", Task: "read"},
	}
	require.Equal(t, []string{"b", "a", "c", "d"}, ids(ApplyView(acts, FilterAll, SortAsc)))
	require.Equal(t, []string{"a", "c", "d", "b"}, ids(ApplyView(acts, FilterAll, SortDesc)))
}

func TestApplyViewDoesNotMutateInput(t *testing.T) {
	acts := viewFixture()
	ApplyView(acts, FilterAll, SortAsc)
	require.Equal(t, viewFixture(), acts)
}

func TestSortOrderCycle(t *testing.T) {
	order := SortDefault
	order = order.Next()
	require.Equal(t, SortAsc, order)
	order = order.Next()
	require.Equal(t, SortDesc, order)
	order = order.Next()
	require.Equal(t, SortDefault, order)

	acts := viewFixture()
	require.Equal(t, ids(ApplyView(acts, FilterAll, SortDefault)), ids(ApplyView(acts, FilterAll, order)))
}

func TestParseStatusFilter(t *testing.T) {
	f, err := ParseStatusFilter("Pending")
	require.NoError(t, err)
	require.Equal(t, FilterPending, f)

	f, err = ParseStatusFilter("")
	require.NoError(t, err)
	require.Equal(t, FilterAll, f)

	_, err = ParseStatusFilter("archived")
	require.Error(t, err)
}

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
	"github.com/rajasatyajit/EcoScan/internal/models"
	"github.com/rajasatyajit/EcoScan/internal/store"
)

var baseTime = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

// stepClock returns a clock advancing one minute per call
func stepClock() func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return baseTime.Add(time.Duration(n) * time.Minute)
	}
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("evt-%d", n)
	}
}

func openTest(t *testing.T, st Store) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), st, WithClock(stepClock()), WithIDGenerator(seqIDs()))
	require.NoError(t, err)
	return l
}

func oatMilk() *models.Product {
	return &models.Product{
		ID:    "8901234567890",
		Name:  "Oat Milk",
		Brand: "GreenFields",
		Image: "https://example.com/oat.png",
		Score: 85,
		Grade: models.GradeA,
	}
}

// failingStore loads fine and fails every save
type failingStore struct {
	*store.MemoryStore
	loadErr error
	saveErr error
}

func (s *failingStore) Load(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.MemoryStore.Load(ctx, keys...)
}

func (s *failingStore) Save(ctx context.Context, blobs map[string][]byte) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.Save(ctx, blobs)
}

func TestOpen_EmptyStore(t *testing.T) {
	l := openTest(t, store.NewMemoryStore())

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, l.Points())
	assert.NotNil(t, l.Snapshot())
}

func TestAppend_CreatesHeadEvent(t *testing.T) {
	l := openTest(t, store.NewMemoryStore())
	ctx := context.Background()

	outcome, err := l.Append(ctx, "8901234567890", oatMilk())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	events := l.Snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, "8901234567890", events[0].ProductID)
	assert.Equal(t, baseTime.Add(time.Minute), events[0].Timestamp)
	require.NotNil(t, events[0].Product)
	assert.Equal(t, "Oat Milk", events[0].Product.Name)
	assert.Equal(t, models.GradeA, events[0].Product.Grade)
	assert.Equal(t, 10, l.Points())
}

func TestAppend_ConsecutiveDuplicateStillAwardsPoints(t *testing.T) {
	l := openTest(t, store.NewMemoryStore())
	ctx := context.Background()

	_, err := l.Append(ctx, "A", nil)
	require.NoError(t, err)
	outcome, err := l.Append(ctx, "A", nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 20, l.Points())
}

func TestAppend_BackfillsMissingSnapshot(t *testing.T) {
	l := openTest(t, store.NewMemoryStore())
	ctx := context.Background()

	_, err := l.Append(ctx, "8901234567890", nil)
	require.NoError(t, err)
	before := l.Snapshot()[0]
	require.Nil(t, before.Product)

	outcome, err := l.Append(ctx, "8901234567890", oatMilk())
	require.NoError(t, err)
	assert.Equal(t, OutcomeBackfilled, outcome)

	events := l.Snapshot()
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Product)
	assert.Equal(t, "Oat Milk", events[0].Product.Name)
	assert.Equal(t, before.ID, events[0].ID)
	assert.Equal(t, before.Timestamp, events[0].Timestamp)
	assert.Equal(t, 20, l.Points())

	// a snapshot is only filled once
	other := oatMilk()
	other.Name = "Renamed"
	outcome, err = l.Append(ctx, "8901234567890", other)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, "Oat Milk", l.Snapshot()[0].Product.Name)
	assert.Equal(t, 30, l.Points())
}

func TestAppend_OnlyHeadIsDeduplicated(t *testing.T) {
	l := openTest(t, store.NewMemoryStore())
	ctx := context.Background()

	for _, id := range []string{"A", "B", "A"} {
		outcome, err := l.Append(ctx, id, nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, outcome)
	}

	events := l.Snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, []string{"A", "B", "A"}, []string{events[0].ProductID, events[1].ProductID, events[2].ProductID})
	assert.True(t, events[0].Timestamp.After(events[1].Timestamp))
	assert.Equal(t, 30, l.Points())
}

func TestAppend_RejectsEmptyProductID(t *testing.T) {
	l := openTest(t, store.NewMemoryStore())

	_, err := l.Append(context.Background(), "", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, l.Points())
}

func TestAppend_PersistsAcrossReopen(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	l := openTest(t, st)
	_, err := l.Append(ctx, "8901234567890", oatMilk())
	require.NoError(t, err)
	_, err = l.Append(ctx, "8901111222333", nil)
	require.NoError(t, err)

	reopened := openTest(t, st)
	assert.Equal(t, l.Snapshot(), reopened.Snapshot())
	assert.Equal(t, 20, reopened.Points())

	blobs, err := st.Load(ctx, PointsKey)
	require.NoError(t, err)
	assert.Equal(t, "20", string(blobs[PointsKey]))
}

func TestAppend_PersistenceFailureKeepsMemoryState(t *testing.T) {
	st := &failingStore{MemoryStore: store.NewMemoryStore(), saveErr: errors.New("disk full")}
	l := openTest(t, st)

	outcome, err := l.Append(context.Background(), "A", nil)
	require.Error(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.True(t, apperrors.IsPersistenceWarning(err))

	var se apperrors.StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "save", se.Operation)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 10, l.Points())
}

func TestAppend_CancelledContextStillPersists(t *testing.T) {
	st := store.NewMemoryStore()
	l := openTest(t, st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Append(ctx, "A", nil)
	require.NoError(t, err)

	reopened := openTest(t, st)
	assert.Equal(t, 1, reopened.Len())
}

func TestClear(t *testing.T) {
	st := store.NewMemoryStore()
	l := openTest(t, st)
	ctx := context.Background()

	for _, id := range []string{"A", "B", "C"} {
		_, err := l.Append(ctx, id, nil)
		require.NoError(t, err)
	}
	require.NoError(t, l.Clear(ctx))

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, l.Points())

	reopened := openTest(t, st)
	assert.Equal(t, 0, reopened.Len())
	assert.Equal(t, 0, reopened.Points())
}

func TestOpen_UnreadableBlobsDefaultIndependently(t *testing.T) {
	valid, err := json.Marshal([]models.ScanEvent{{ID: "e1", ProductID: "A", Timestamp: baseTime}})
	require.NoError(t, err)

	tests := []struct {
		name       string
		history    string
		points     string
		wantEvents int
		wantPoints int
	}{
		{name: "corrupt history", history: "{not json", points: "40", wantEvents: 0, wantPoints: 40},
		{name: "non-numeric points", history: string(valid), points: "lots", wantEvents: 1, wantPoints: 0},
		{name: "negative points", history: string(valid), points: "-30", wantEvents: 1, wantPoints: 0},
		{name: "both corrupt", history: "42", points: "", wantEvents: 0, wantPoints: 0},
		{name: "null history", history: "null", points: " 15 ", wantEvents: 0, wantPoints: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			require.NoError(t, st.Save(context.Background(), map[string][]byte{
				HistoryKey: []byte(tt.history),
				PointsKey:  []byte(tt.points),
			}))

			l := openTest(t, st)
			assert.Equal(t, tt.wantEvents, l.Len())
			assert.Equal(t, tt.wantPoints, l.Points())
			assert.NotNil(t, l.Snapshot())
		})
	}
}

func TestOpen_CorruptFileStartsEmpty(t *testing.T) {
	st := &failingStore{
		MemoryStore: store.NewMemoryStore(),
		loadErr:     fmt.Errorf("%w: bad document", apperrors.ErrCorruptState),
	}

	l, err := Open(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestOpen_StoreFailureReturnsUsableLedger(t *testing.T) {
	st := &failingStore{MemoryStore: store.NewMemoryStore(), loadErr: errors.New("connection refused")}

	l, err := Open(context.Background(), st)
	require.Error(t, err)
	require.NotNil(t, l)

	var se apperrors.StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "load", se.Operation)

	st.loadErr = nil
	_, err = l.Append(context.Background(), "A", nil)
	require.NoError(t, err)
	assert.Equal(t, 10, l.Points())
}

func TestOpen_FileStoreRoundTrip(t *testing.T) {
	fs, err := store.NewFileStore(t.TempDir() + "/ledger.json")
	require.NoError(t, err)
	ctx := context.Background()

	l := openTest(t, fs)
	_, err = l.Append(ctx, "8901234567890", oatMilk())
	require.NoError(t, err)

	reopened := openTest(t, fs)
	require.Equal(t, 1, reopened.Len())
	assert.Equal(t, "Oat Milk", reopened.Snapshot()[0].Product.Name)
	assert.Equal(t, 10, reopened.Points())
}

func TestSnapshot_IsACopy(t *testing.T) {
	l := openTest(t, store.NewMemoryStore())
	_, err := l.Append(context.Background(), "8901234567890", oatMilk())
	require.NoError(t, err)

	events := l.Snapshot()
	events[0].ProductID = "changed"
	events[0].Product.Name = "changed"

	fresh := l.Snapshot()
	assert.Equal(t, "8901234567890", fresh[0].ProductID)
	assert.Equal(t, "Oat Milk", fresh[0].Product.Name)
}

func TestQuery(t *testing.T) {
	l := openTest(t, store.NewMemoryStore())
	ctx := context.Background()
	for _, id := range []string{"A", "B", "A", "C"} {
		_, err := l.Append(ctx, id, nil)
		require.NoError(t, err)
	}

	// events are C(+4m) A(+3m) B(+2m) A(+1m)
	tests := []struct {
		name  string
		query models.HistoryQuery
		want  []string
	}{
		{name: "all", query: models.HistoryQuery{}, want: []string{"C", "A", "B", "A"}},
		{name: "by product", query: models.HistoryQuery{ProductIDs: []string{"A"}}, want: []string{"A", "A"}},
		{name: "limit", query: models.HistoryQuery{Limit: 2}, want: []string{"C", "A"}},
		{name: "offset", query: models.HistoryQuery{Offset: 3}, want: []string{"A"}},
		{name: "offset past end", query: models.HistoryQuery{Offset: 9}, want: []string{}},
		{
			name:  "time range",
			query: models.HistoryQuery{Since: baseTime.Add(2 * time.Minute), Until: baseTime.Add(3 * time.Minute)},
			want:  []string{"A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []string{}
			for _, e := range l.Query(tt.query) {
				got = append(got, e.ProductID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppend_Concurrent(t *testing.T) {
	l, err := Open(context.Background(), store.NewMemoryStore())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = l.Append(context.Background(), fmt.Sprintf("P%d", i%2), nil)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 200, l.Points())
	events := l.Snapshot()
	for i := 1; i < len(events); i++ {
		assert.NotEqual(t, events[i-1].ProductID, events[i].ProductID, "adjacent events must differ")
	}
}

func TestHead(t *testing.T) {
	l := openTest(t, store.NewMemoryStore())

	_, ok := l.Head()
	assert.False(t, ok)

	for _, id := range []string{"A", "B"} {
		_, err := l.Append(context.Background(), id, nil)
		require.NoError(t, err)
	}
	head, ok := l.Head()
	require.True(t, ok)
	assert.Equal(t, "B", head.ProductID)
}

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"voe-monitor-backend/internal/model"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Address{},
		&model.Subscription{},
		&model.ScheduleHash{},
	))
	return NewGormStore(db)
}

func storeTestAddress() model.Address {
	return model.Address{
		ID:       model.AddressID(42, 1001, 7),
		CityID:   42,
		StreetID: 1001,
		HouseID:  7,
		Name:     "м. Вінниця, вул. Соборна, 1",
	}
}

func TestAddSubscription(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	addr := storeTestAddress()

	require.NoError(t, st.AddSubscription(ctx, 500, addr, model.KindToday))

	subscribers, err := st.GetSubscribers(ctx, addr.ID, model.KindToday)
	require.NoError(t, err)
	assert.Equal(t, []int64{500}, subscribers)

	got, err := st.GetAddress(ctx, addr.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, addr.Name, got.Name)
}

func TestAddSubscription_Idempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	addr := storeTestAddress()

	require.NoError(t, st.AddSubscription(ctx, 500, addr, model.KindToday))
	require.NoError(t, st.AddSubscription(ctx, 500, addr, model.KindToday))

	subscribers, err := st.GetSubscribers(ctx, addr.ID, model.KindToday)
	require.NoError(t, err)
	assert.Equal(t, []int64{500}, subscribers)
}

func TestAddSubscription_UpdatesAddressName(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	addr := storeTestAddress()

	require.NoError(t, st.AddSubscription(ctx, 500, addr, model.KindToday))

	renamed := addr
	renamed.Name = "м. Вінниця, вул. Соборна, 1 (нова назва)"
	require.NoError(t, st.AddSubscription(ctx, 700, renamed, model.KindTomorrow))

	got, err := st.GetAddress(ctx, addr.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, renamed.Name, got.Name)
}

func TestKindsAreIndependent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	addr := storeTestAddress()

	require.NoError(t, st.AddSubscription(ctx, 500, addr, model.KindToday))
	require.NoError(t, st.AddSubscription(ctx, 700, addr, model.KindTomorrow))

	today, err := st.GetSubscribers(ctx, addr.ID, model.KindToday)
	require.NoError(t, err)
	assert.Equal(t, []int64{500}, today)

	tomorrow, err := st.GetSubscribers(ctx, addr.ID, model.KindTomorrow)
	require.NoError(t, err)
	assert.Equal(t, []int64{700}, tomorrow)
}

func TestRemoveSubscription_KeepsHashesWhileSubscribersRemain(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	addr := storeTestAddress()

	require.NoError(t, st.AddSubscription(ctx, 500, addr, model.KindToday))
	require.NoError(t, st.AddSubscription(ctx, 700, addr, model.KindToday))
	require.NoError(t, st.SetLastHash(ctx, addr.ID, model.KindToday, "abc"))

	require.NoError(t, st.RemoveSubscription(ctx, 500, addr.ID, model.KindToday))

	_, ok, err := st.GetLastHash(ctx, addr.ID, model.KindToday)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemoveSubscription_LastSubscriberClearsHashes(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	addr := storeTestAddress()

	require.NoError(t, st.AddSubscription(ctx, 500, addr, model.KindToday))
	require.NoError(t, st.SetLastHash(ctx, addr.ID, model.KindToday, "abc"))
	require.NoError(t, st.SetLastHash(ctx, addr.ID, model.KindTomorrow, "def"))

	require.NoError(t, st.RemoveSubscription(ctx, 500, addr.ID, model.KindToday))

	_, ok, err := st.GetLastHash(ctx, addr.ID, model.KindToday)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = st.GetLastHash(ctx, addr.ID, model.KindTomorrow)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetUserSubscriptions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	addr := storeTestAddress()

	require.NoError(t, st.AddSubscription(ctx, 500, addr, model.KindToday))
	require.NoError(t, st.AddSubscription(ctx, 500, addr, model.KindTomorrow))
	require.NoError(t, st.AddSubscription(ctx, 700, addr, model.KindToday))

	subs, err := st.GetUserSubscriptions(ctx, 500)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, addr.Name, subs[0].Address.Name)
	assert.Equal(t, model.KindToday, subs[0].Kind)
	assert.Equal(t, model.KindTomorrow, subs[1].Kind)
}

func TestGetAddressesWithSubscribers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := storeTestAddress()
	second := model.Address{
		ID: model.AddressID(43, 2002, 9), CityID: 43, StreetID: 2002, HouseID: 9,
		Name: "м. Жмеринка, вул. Київська, 9",
	}

	require.NoError(t, st.AddSubscription(ctx, 500, first, model.KindToday))
	require.NoError(t, st.AddSubscription(ctx, 500, first, model.KindTomorrow))
	require.NoError(t, st.AddSubscription(ctx, 700, second, model.KindToday))

	ids, err := st.GetAddressesWithSubscribers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
}

func TestGetAddress_NotFound(t *testing.T) {
	st := newTestStore(t)

	addr, err := st.GetAddress(context.Background(), "1-2-3")
	require.NoError(t, err)
	assert.Nil(t, addr)
}

func TestLastHashRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, ok, err := st.GetLastHash(ctx, "1-2-3", model.KindToday)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.SetLastHash(ctx, "1-2-3", model.KindToday, "first"))
	h, ok, err := st.GetLastHash(ctx, "1-2-3", model.KindToday)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "first", h)

	require.NoError(t, st.SetLastHash(ctx, "1-2-3", model.KindToday, "second"))
	h, _, err = st.GetLastHash(ctx, "1-2-3", model.KindToday)
	require.NoError(t, err)
	assert.Equal(t, "second", h)
}

func TestLastHash_EmptyValueIsStored(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetLastHash(ctx, "1-2-3", model.KindToday, "abc"))
	require.NoError(t, st.SetLastHash(ctx, "1-2-3", model.KindToday, ""))

	h, ok, err := st.GetLastHash(ctx, "1-2-3", model.KindToday)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, h)
}

func TestTextMode(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	assert.False(t, st.IsTextModeEnabled(ctx, 500))

	require.NoError(t, st.SetTextMode(ctx, 500, true))
	assert.True(t, st.IsTextModeEnabled(ctx, 500))

	require.NoError(t, st.SetTextMode(ctx, 500, false))
	assert.False(t, st.IsTextModeEnabled(ctx, 500))
}

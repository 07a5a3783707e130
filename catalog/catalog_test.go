package catalog_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/zoe-motors/storefront-api/catalog"
	"github.com/zoe-motors/storefront-api/databases/mocks"
	"github.com/zoe-motors/storefront-api/i18n"
	"github.com/zoe-motors/storefront-api/models"
)

func vehicle(id, name string, year int, price float64) models.Vehicle {
	return models.Vehicle{ID: id, Details: models.VehicleDetails{Name: name, Year: year, Price: price}}
}

func TestVehicleFilters_ServerFilterAlwaysPartitionsByTradeIn(t *testing.T) {
	assert.Equal(t, bson.M{"vehicle.isTradeIn": false}, catalog.VehicleFilters{}.ServerFilter())
	assert.Equal(t, bson.M{"vehicle.isTradeIn": true}, catalog.VehicleFilters{IsTradeIn: true}.ServerFilter())
}

func TestVehicleFilters_ServerFilterPushesEqualityDown(t *testing.T) {
	f := catalog.VehicleFilters{Model: "Land Cruiser (V8)", Year: "2019", Condition: "Used", MinPrice: "100", MaxPrice: "900"}
	got := f.ServerFilter()

	assert.Equal(t, bson.M{"$regex": `^Land Cruiser \(V8\)`}, got["vehicle.name"])
	assert.Equal(t, 2019, got["vehicle.year"])
	assert.Equal(t, "Used", got["vehicle.condition"])
	_, hasPrice := got["vehicle.price"]
	assert.False(t, hasPrice, "price range must stay out of the store query")
}

func TestVehicleFilters_UnparsableYearMatchesNothing(t *testing.T) {
	got := catalog.VehicleFilters{Year: "twenty"}.ServerFilter()
	assert.Equal(t, bson.M{"$in": bson.A{}}, got["vehicle.year"])
}

func TestVehicleFilters_ClientFilterPriceRange(t *testing.T) {
	keep := catalog.VehicleFilters{MinPrice: "1000", MaxPrice: "5000"}.ClientFilter()
	assert.False(t, keep(vehicle("a", "", 0, 999)))
	assert.True(t, keep(vehicle("a", "", 0, 1000)))
	assert.True(t, keep(vehicle("a", "", 0, 5000)))
	assert.False(t, keep(vehicle("a", "", 0, 5001)))

	noBounds := catalog.VehicleFilters{MinPrice: "0", MaxPrice: "abc"}.ClientFilter()
	assert.True(t, noBounds(vehicle("a", "", 0, 1)))
	assert.True(t, noBounds(vehicle("a", "", 0, 1e9)))
}

func TestVehicleFilters_Key(t *testing.T) {
	a := catalog.VehicleFilters{Model: "Hilux"}
	b := catalog.VehicleFilters{Model: "Hilux"}
	c := catalog.VehicleFilters{Model: "Hilux", IsTradeIn: true}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestVehicles_FetchAppliesBothStages(t *testing.T) {
	db := &mocks.VehicleDatabase{}
	f := catalog.VehicleFilters{Condition: "Used", MaxPrice: "2000"}
	db.On("Find", mock.Anything, f.ServerFilter()).Return([]models.Vehicle{
		vehicle("1", "Corolla", 2020, 1500),
		vehicle("2", "Hilux", 2021, 2500),
		vehicle("3", "Vitz", 2015, 900),
	}, nil)

	got, err := catalog.Vehicles{DB: db}.Fetch(context.Background(), f)
	assert.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, []string{got[0].ID, got[1].ID})
}

func TestVehicleOptionsOfUsesLoadedCollection(t *testing.T) {
	opts := catalog.VehicleOptionsOf([]models.Vehicle{
		vehicle("1", "Corolla", 2020, 1),
		vehicle("2", "Corolla", 2018, 1),
		vehicle("3", "Hilux", 2020, 1),
	})
	assert.Equal(t, []string{"Corolla", "Hilux"}, opts.Models)
	assert.Equal(t, []int{2020, 2018}, opts.Years)
}

func TestPartFilters(t *testing.T) {
	f := catalog.PartFilters{Category: "Brakes", Brand: "Bosch", MinPrice: "50"}
	assert.Equal(t, bson.M{"sparePart.category": "Brakes", "sparePart.brand": "Bosch"}, f.ServerFilter())

	keep := f.ClientFilter()
	assert.False(t, keep(models.SparePart{Details: models.SparePartDetails{Price: 49}}))
	assert.True(t, keep(models.SparePart{Details: models.SparePartDetails{Price: 50}}))
}

func TestFeed_RefetchesOnlyWhenKeyChanges(t *testing.T) {
	db := &mocks.VehicleDatabase{}
	db.On("Find", mock.Anything, mock.Anything).Return([]models.Vehicle{vehicle("1", "Corolla", 2020, 1)}, nil)

	tr := i18n.MustLoad().Translator(i18n.English)
	feed := catalog.NewVehicleFeed(catalog.Vehicles{DB: db}, tr)
	ctx := context.Background()

	s := feed.Update(ctx, catalog.VehicleFilters{})
	assert.Len(t, s.Items, 1)
	assert.False(t, s.Loading)

	feed.Update(ctx, catalog.VehicleFilters{})
	db.AssertNumberOfCalls(t, "Find", 1)

	feed.Update(ctx, catalog.VehicleFilters{Year: "2020"})
	db.AssertNumberOfCalls(t, "Find", 2)

	feed.Invalidate()
	feed.Update(ctx, catalog.VehicleFilters{Year: "2020"})
	db.AssertNumberOfCalls(t, "Find", 3)
}

func TestFeed_FailureBecomesLocalizedMessage(t *testing.T) {
	db := &mocks.VehicleDatabase{}
	db.On("Find", mock.Anything, mock.Anything).Return(nil, errors.New("permission denied"))

	tr := i18n.MustLoad().Translator(i18n.English)
	feed := catalog.NewVehicleFeed(catalog.Vehicles{DB: db}, tr)

	s := feed.Update(context.Background(), catalog.VehicleFilters{})
	assert.Empty(t, s.Items)
	assert.False(t, s.Loading)
	assert.Equal(t, "Failed to load vehicles. Please try again later.", s.Error)
	assert.Equal(t, s, feed.State())
}

func TestFeed_FailureIsRetriedOnNextUpdate(t *testing.T) {
	db := &mocks.VehicleDatabase{}
	db.On("Find", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()
	db.On("Find", mock.Anything, mock.Anything).Return([]models.Vehicle{vehicle("1", "Corolla", 2020, 1)}, nil)

	tr := i18n.MustLoad().Translator(i18n.English)
	feed := catalog.NewVehicleFeed(catalog.Vehicles{DB: db}, tr)
	ctx := context.Background()

	s := feed.Update(ctx, catalog.VehicleFilters{})
	assert.NotEmpty(t, s.Error)

	s = feed.Update(ctx, catalog.VehicleFilters{})
	assert.Empty(t, s.Error)
	assert.Len(t, s.Items, 1)

	feed.Update(ctx, catalog.VehicleFilters{})
	db.AssertNumberOfCalls(t, "Find", 2)
}

func TestFeed_ConcurrentUpdateWaitsForRunningFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	fetch := func(ctx context.Context, f catalog.VehicleFilters) ([]models.Vehicle, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return []models.Vehicle{vehicle("1", "Corolla", 2020, 1)}, nil
	}
	feed := catalog.NewFeed[catalog.VehicleFilters, models.Vehicle](fetch, catalog.VehiclesLoadError, i18n.MustLoad().Translator(i18n.English))
	ctx := context.Background()

	first := make(chan catalog.State[models.Vehicle], 1)
	go func() { first <- feed.Update(ctx, catalog.VehicleFilters{}) }()
	<-started

	second := make(chan catalog.State[models.Vehicle], 1)
	go func() { second <- feed.Update(ctx, catalog.VehicleFilters{}) }()

	select {
	case s := <-second:
		t.Fatalf("second update returned before the fetch settled: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	for _, ch := range []chan catalog.State[models.Vehicle]{first, second} {
		s := <-ch
		assert.False(t, s.Loading)
		assert.Len(t, s.Items, 1)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

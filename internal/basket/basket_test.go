package basket

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"offersync/pkg/platform/sentinel"
)

type BasketSuite struct {
	suite.Suite
	basket  *Basket
	changes []bool // recorded replace flags
}

func TestBasketSuite(t *testing.T) {
	suite.Run(t, new(BasketSuite))
}

func (s *BasketSuite) SetupTest() {
	s.basket = New()
	s.changes = nil
	s.basket.SetNotifier(func(replace bool) {
		s.changes = append(s.changes, replace)
	})
}

func (s *BasketSuite) TestAdd() {
	s.Run("adds a new line", func() {
		s.Require().NoError(s.basket.Add(Item{ProductID: "p1", Name: "Tea", Price: 10, Quantity: 2}))
		s.Len(s.basket.Items(), 1)
		s.Equal(20.0, s.basket.Total())
	})

	s.Run("same product bumps quantity instead of duplicating", func() {
		s.Require().NoError(s.basket.Add(Item{ProductID: "p1", Price: 10, Quantity: 1}))
		items := s.basket.Items()
		s.Require().Len(items, 1)
		s.Equal(3, items[0].Quantity)
		s.Equal(30.0, s.basket.Total())
	})

	s.Run("missing product id is rejected", func() {
		s.Error(s.basket.Add(Item{Name: "nameless"}))
	})

	s.Run("zero quantity defaults to one", func() {
		s.Require().NoError(s.basket.Add(Item{ProductID: "p2", Price: 5}))
		items := s.basket.Items()
		s.Equal(1, items[len(items)-1].Quantity)
	})
}

func (s *BasketSuite) TestUpdateQuantity() {
	s.Require().NoError(s.basket.Add(Item{ProductID: "p1", Price: 10, Quantity: 2}))

	s.Run("sets the quantity and recomputes the total", func() {
		s.Require().NoError(s.basket.UpdateQuantity("p1", 5))
		s.Equal(50.0, s.basket.Total())
	})

	s.Run("zero quantity removes the line", func() {
		s.Require().NoError(s.basket.UpdateQuantity("p1", 0))
		s.Empty(s.basket.Items())
		s.Equal(0.0, s.basket.Total())
	})

	s.Run("unknown product returns not found", func() {
		err := s.basket.UpdateQuantity("ghost", 3)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *BasketSuite) TestRemoveAndClear() {
	s.Require().NoError(s.basket.Add(Item{ProductID: "p1", Price: 10, Quantity: 1}))
	s.Require().NoError(s.basket.Add(Item{ProductID: "p2", Price: 7, Quantity: 2}))

	s.basket.Remove("p1")
	s.Len(s.basket.Items(), 1)
	s.Equal(14.0, s.basket.Total())

	s.basket.Clear()
	s.Empty(s.basket.Items())
	s.Equal(0.0, s.basket.Total())
}

func (s *BasketSuite) TestReplaceIsFlaggedAsHydration() {
	s.Require().NoError(s.basket.Add(Item{ProductID: "local", Price: 1, Quantity: 1}))

	s.basket.Replace([]Item{{ProductID: "remote", Price: 3, Quantity: 2}})

	items := s.basket.Items()
	s.Require().Len(items, 1)
	s.Equal("remote", items[0].ProductID)
	s.Equal(6.0, s.basket.Total())

	// One mutation notification, then one replace notification.
	s.Require().Len(s.changes, 2)
	s.False(s.changes[0])
	s.True(s.changes[1])
}

func (s *BasketSuite) TestSnapshotRoundTrip() {
	s.Require().NoError(s.basket.Add(Item{ProductID: "p1", Name: "Tea", Price: 10, Quantity: 2}))

	fields := s.basket.Snapshot()
	s.Equal(20.0, fields["total"])

	items, err := ItemsFromFields(fields)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal("p1", items[0].ProductID)
	s.Equal(2, items[0].Quantity)
}

package services

import (
	"github.com/google/uuid"

	"github.com/apexchain/apex-backend/internal/models"
)

func (s *ServiceTestSuite) TestShipmentLifecycleMovesProduct() {
	s.seed("F1-SHIP", 90, "80", true)

	shipment, err := s.shipments.CreateShipment(&CreateShipmentRequest{
		ProductID:      "F1-SHIP",
		FromLocation:   "Silverstone",
		ToLocation:     "Brackley",
		Carrier:        "DHL",
		TrackingNumber: "JD0001",
	})
	s.Require().NoError(err)
	s.Equal(models.ShipmentStatusPending, shipment.Status)

	shipment, err = s.shipments.UpdateStatus(shipment.ID, &UpdateShipmentRequest{Status: models.ShipmentStatusInTransit})
	s.Require().NoError(err)
	s.Equal(models.ShipmentStatusInTransit, shipment.Status)

	product, err := s.products.GetProduct("F1-SHIP")
	s.Require().NoError(err)
	s.Equal(models.ProductStatusInTransit, product.Status)

	shipment, err = s.shipments.UpdateStatus(shipment.ID, &UpdateShipmentRequest{Status: models.ShipmentStatusDelivered})
	s.Require().NoError(err)
	s.NotNil(shipment.ActualDelivery)

	// in_transit cannot skip the distributor stage, so the product stays put
	product, err = s.products.GetProduct("F1-SHIP")
	s.Require().NoError(err)
	s.Equal(models.ProductStatusInTransit, product.Status)

	shipments, err := s.shipments.ListByProduct("F1-SHIP")
	s.Require().NoError(err)
	s.Len(shipments, 1)
}

func (s *ServiceTestSuite) TestShipmentInvalidMove() {
	s.seed("F1-SHIP-BAD", 90, "81", true)
	shipment, err := s.shipments.CreateShipment(&CreateShipmentRequest{ProductID: "F1-SHIP-BAD", FromLocation: "A", ToLocation: "B"})
	s.Require().NoError(err)

	_, err = s.shipments.UpdateStatus(shipment.ID, &UpdateShipmentRequest{Status: models.ShipmentStatusDelivered})
	s.ErrorIs(err, models.ErrInvalidTransition)

	_, err = s.shipments.UpdateStatus(shipment.ID, &UpdateShipmentRequest{Status: models.ShipmentStatusCancelled})
	s.Require().NoError(err)
	_, err = s.shipments.UpdateStatus(shipment.ID, &UpdateShipmentRequest{Status: models.ShipmentStatusInTransit})
	s.ErrorIs(err, models.ErrInvalidTransition)
}

func (s *ServiceTestSuite) TestShipmentUnknownProductOrID() {
	_, err := s.shipments.CreateShipment(&CreateShipmentRequest{ProductID: "F1-NONE", FromLocation: "A", ToLocation: "B"})
	s.ErrorIs(err, ErrNotFound)

	_, err = s.shipments.UpdateStatus(uuid.New(), &UpdateShipmentRequest{Status: models.ShipmentStatusInTransit})
	s.ErrorIs(err, ErrNotFound)
}

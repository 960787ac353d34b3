package worker

import (
	"context"
	"errors"

	"catalog-service/internal/apperrors"
	"catalog-service/internal/broker"
	"catalog-service/internal/models"
	"catalog-service/internal/service"
	"catalog-service/internal/util"

	"go.uber.org/zap"
)

// Consumer is satisfied by *broker.Consumer.
type Consumer interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// ImageVerifier is the catalog operation the worker drives.
type ImageVerifier interface {
	VerifyProductImages(ctx context.Context, id string) (*service.VerificationResult, error)
}

// ImageWorker verifies product images in the background whenever a catalog
// event reports new or changed images.
type ImageWorker struct {
	consumer     Consumer
	eventHandler *broker.EventHandler
	catalog      ImageVerifier
	logger       *zap.Logger
}

// NewImageWorker creates a new image worker
func NewImageWorker(consumer Consumer, catalog ImageVerifier) *ImageWorker {
	w := &ImageWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		catalog:      catalog,
		logger:       util.Component("image-worker"),
	}
	w.eventHandler.OnProductEvent(w.handleProductEvent)
	return w
}

// Start starts the worker
func (w *ImageWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting image worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ImageWorker) Stop() error {
	w.logger.Info("Stopping image worker...")
	return w.consumer.Close()
}

func (w *ImageWorker) handleProductEvent(ctx context.Context, event *models.ProductEvent) error {
	if !event.NeedsVerification() {
		return nil
	}

	result, err := w.catalog.VerifyProductImages(ctx, event.ProductID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		w.logger.Debug("Product gone before verification", zap.String("product_id", event.ProductID))
		return nil
	case errors.Is(err, apperrors.ErrValidation):
		// Nothing to verify, e.g. images cleared through the unvalidated update path.
		w.logger.Warn("Skipping image verification",
			zap.String("product_id", event.ProductID),
			zap.Error(err))
		return nil
	case err != nil:
		return err
	}

	w.logger.Info("Background image verification done",
		zap.String("product_id", event.ProductID),
		zap.Bool("verified", result.Verified))
	return nil
}

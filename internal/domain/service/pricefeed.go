package service

import (
	"context"

	"PriceSignal/internal/domain/models"
)

// PriceProvider fetches a remote observation series for a catalog token.
type PriceProvider interface {
	Series(ctx context.Context, token models.Token, interval models.Interval) ([]models.Observation, error)
}

// TokenCatalog resolves user input (name or ticker) to a catalog token.
type TokenCatalog interface {
	Resolve(ctx context.Context, query string) (models.Token, error)
	Search(ctx context.Context, query string, limit int) ([]models.Token, error)
}

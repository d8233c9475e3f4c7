package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"stayride/internal/app/uow"
	"stayride/internal/domain/listings"
	"stayride/internal/infra/storage/memory"
)

type listingFixture struct {
	ID                 string                 `json:"id"`
	Host               string                 `json:"host"`
	Title              string                 `json:"title"`
	ServiceType        string                 `json:"service_type"`
	Currency           string                 `json:"currency"`
	Pricing            listings.PricingConfig `json:"pricing"`
	MinUnits           int                    `json:"min_units"`
	MaxUnits           int                    `json:"max_units"`
	MaxOccupancy       int                    `json:"max_occupancy"`
	CancellationPolicy string                 `json:"cancellation_policy"`
}

// loadListingFixtures imports and activates listings; ids already stored are skipped.
func (a *application) loadListingFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	var fixtures []listingFixture
	found, err := readFixtures(path, &fixtures)
	if err != nil || !found {
		if !found {
			logger.Info("listing fixtures file not found, skipping", "path", path)
		}
		return err
	}

	now := time.Now().UTC()
	for _, fx := range fixtures {
		listing, err := listings.NewListing(listings.CreateListingParams{
			ID:                 listings.ListingID(fx.ID),
			Host:               listings.HostID(fx.Host),
			Title:              fx.Title,
			ServiceType:        listings.ServiceType(fx.ServiceType),
			Currency:           fx.Currency,
			Pricing:            fx.Pricing,
			MinUnits:           fx.MinUnits,
			MaxUnits:           fx.MaxUnits,
			MaxOccupancy:       fx.MaxOccupancy,
			CancellationPolicy: listings.CancellationPolicy(fx.CancellationPolicy),
			Now:                now,
		})
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := listing.Activate(now); err != nil {
			logger.Error("fixture activation failed", "listing_id", fx.ID, "error", err)
			continue
		}
		imported, err := a.importListing(ctx, listing)
		if err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		if imported {
			logger.Info("listing fixture imported", "listing_id", listing.ID)
		}
	}
	return nil
}

func (a *application) importListing(ctx context.Context, listing *listings.Listing) (imported bool, err error) {
	unit, ctx, finish, err := uow.Enter(ctx, a.factory, uow.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { err = finish(err) }()

	_, err = unit.Listings().ByID(ctx, listing.ID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, listings.ErrListingNotFound):
		return false, err
	}
	if err = unit.Listings().Save(ctx, listing); err != nil {
		return false, err
	}
	return true, nil
}

func loadVoucherFixtures(path string, logger *slog.Logger) (*memory.VoucherCatalogue, error) {
	var defs []memory.VoucherDefinition
	found, err := readFixtures(path, &defs)
	if err != nil {
		return nil, err
	}
	if !found {
		logger.Info("voucher fixtures file not found, skipping", "path", path)
	}
	return memory.NewVoucherCatalogue(defs...), nil
}

// readFixtures decodes a JSON array file; a missing or empty file is not an error.
func readFixtures(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		return true, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return true, fmt.Errorf("decode fixtures %s: %w", path, err)
	}
	return true, nil
}

func fixturePath(configured, name string) string {
	if configured != "" {
		return configured
	}
	candidates := []string{
		filepath.Join("data", name),
		filepath.Join("..", "..", "data", name),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}

package plans

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/patentdesk/pkg/observability"
)

// seedFile is the YAML layout of configs/plans.yaml
type seedFile struct {
	Plans []seedPlan `yaml:"plans"`
}

type seedPlan struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	BillingPeriod   string   `yaml:"billingPeriod"`
	Price           int64    `yaml:"price"`
	DiscountPercent float64  `yaml:"discountPercent"`
	Features        []string `yaml:"features"`
	Category        string   `yaml:"category"`
	OrgBasePrice    int64    `yaml:"orgBasePrice"`
	PerMemberPrice  int64    `yaml:"perMemberPrice"`
	Popular         bool     `yaml:"popular"`
}

// LoadSeedFile parses and validates a plan seed file
func LoadSeedFile(path string) ([]*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed parses and validates plan seed YAML
func ParseSeed(data []byte) ([]*Plan, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse plan seed file: %w", err)
	}

	seen := make(map[string]bool, len(file.Plans))
	plans := make([]*Plan, 0, len(file.Plans))
	for _, sp := range file.Plans {
		plan := &Plan{
			ID:              sp.ID,
			Name:            sp.Name,
			BillingPeriod:   BillingPeriod(sp.BillingPeriod),
			Price:           sp.Price,
			DiscountPercent: decimal.NewFromFloat(sp.DiscountPercent),
			Features:        sp.Features,
			Category:        Category(sp.Category),
			OrgBasePrice:    sp.OrgBasePrice,
			PerMemberPrice:  sp.PerMemberPrice,
			Popular:         sp.Popular,
		}
		if err := plan.Validate(); err != nil {
			return nil, fmt.Errorf("plan %q: %w", sp.ID, err)
		}
		if seen[plan.ID] {
			return nil, fmt.Errorf("%w: duplicate plan id %q", ErrInvalidPlan, plan.ID)
		}
		seen[plan.ID] = true
		plans = append(plans, plan)
	}
	return plans, nil
}

// Seed upserts every plan in the seed file. Referenced plans whose prices changed are
// skipped with a warning; any other failure aborts.
func Seed(ctx context.Context, catalog *Catalog, path string) (int, error) {
	plans, err := LoadSeedFile(path)
	if err != nil {
		return 0, err
	}

	logger := observability.FromContext(ctx)
	applied := 0
	for _, plan := range plans {
		err := catalog.Upsert(ctx, plan)
		if errors.Is(err, ErrPlanReferenced) {
			logger.WithField("plan_id", plan.ID).Warn("skipping price change for referenced plan")
			continue
		}
		if err != nil {
			return applied, fmt.Errorf("failed to seed plan %s: %w", plan.ID, err)
		}
		applied++
	}
	logger.WithField("count", applied).Info("plan catalog seeded")
	return applied, nil
}

// Watch reseeds the catalog whenever the seed file is written. It blocks until ctx is done.
// The parent directory is watched so editors that replace the file are picked up.
func Watch(ctx context.Context, catalog *Catalog, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve seed path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	logger := observability.FromContext(ctx).WithField("path", target)
	logger.Info("watching plan seed file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if _, err := Seed(ctx, catalog, target); err != nil {
				logger.WithError(err).Error("failed to reseed plan catalog")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("plan seed watcher error")
		}
	}
}

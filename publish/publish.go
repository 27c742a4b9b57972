// Package publish makes each new result available to consumers outside the
// process.
package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitcoinfees/ethgas/predict"
)

const (
	RecommendationName = "ethgasAPI"
	TableName          = "predictTable"
)

type Publisher interface {
	Publish(ctx context.Context, rec *predict.Recommendation, table predict.Table) error
	Close() error
}

// Multi publishes to each of its members in turn. A failing member does not
// stop the others.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, rec *predict.Recommendation, table predict.Table) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, rec, table); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package migration

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(lc fx.Lifecycle, conn *gorm.DB, log *zap.Logger) {
		log = log.Named("migration")
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				status, err := Apply(ctx, conn, log)
				if errors.Is(err, ErrUnsupportedDialect) {
					log.Warn("skipping migrations", zap.String("dialect", conn.Dialector.Name()))
					return nil
				}
				if err != nil {
					return err
				}
				log.Info("migrations applied",
					zap.Uint("from", status.From),
					zap.Uint("to", status.To),
					zap.Bool("changed", status.Applied),
				)
				return nil
			},
		})
	}),
)

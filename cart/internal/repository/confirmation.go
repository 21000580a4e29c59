package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/shopcart/cart/internal/common/otel"
	"github.com/Alturino/shopcart/cart/pkg/response"
	"github.com/Alturino/shopcart/internal/log"
	inOtel "github.com/Alturino/shopcart/internal/otel"
)

type ConfirmationRepository interface {
	InsertConfirmation(c context.Context, confirmation response.Confirmation) error
	FindConfirmationsByShopperID(c context.Context, shopperID uuid.UUID, limit int) ([]response.Confirmation, error)
}

const insertConfirmation = `-- name: InsertConfirmation :exec
INSERT INTO checkout_confirmations (id, shopper_id, total_price, item_count, payment_method, confirmed_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

const findConfirmationsByShopperID = `-- name: FindConfirmationsByShopperID :many
SELECT id, shopper_id, total_price::TEXT, item_count, payment_method, confirmed_at
FROM checkout_confirmations
WHERE shopper_id = $1
ORDER BY confirmed_at DESC
LIMIT $2
`

type PostgresConfirmationRepository struct {
	db DBTX
}

func NewPostgresConfirmationRepository(db DBTX) *PostgresConfirmationRepository {
	return &PostgresConfirmationRepository{db: db}
}

func (p *PostgresConfirmationRepository) InsertConfirmation(
	c context.Context,
	confirmation response.Confirmation,
) error {
	c, span := otel.Tracer.Start(
		c,
		"PostgresConfirmationRepository InsertConfirmation",
		trace.WithAttributes(attribute.String(log.KeyCheckoutSessionID, confirmation.SessionID.String())),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresConfirmationRepository InsertConfirmation").
		Str(log.KeyCheckoutSessionID, confirmation.SessionID.String()).
		Logger()

	logger.Trace().Msg("inserting checkout confirmation")
	_, err := p.db.Exec(
		c,
		insertConfirmation,
		confirmation.SessionID,
		confirmation.ShopperID,
		confirmation.TotalPrice.String(),
		confirmation.ItemCount,
		confirmation.PaymentMethod,
		confirmation.ConfirmedAt,
	)
	if err != nil {
		err = fmt.Errorf("failed inserting checkout confirmation with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("inserted checkout confirmation")

	return nil
}

func (p *PostgresConfirmationRepository) FindConfirmationsByShopperID(
	c context.Context,
	shopperID uuid.UUID,
	limit int,
) ([]response.Confirmation, error) {
	c, span := otel.Tracer.Start(
		c,
		"PostgresConfirmationRepository FindConfirmationsByShopperID",
		trace.WithAttributes(attribute.String(log.KeyUserID, shopperID.String())),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresConfirmationRepository FindConfirmationsByShopperID").
		Str(log.KeyUserID, shopperID.String()).
		Logger()

	logger.Trace().Msg("selecting checkout confirmations")
	rows, err := p.db.Query(c, findConfirmationsByShopperID, shopperID, limit)
	if err != nil {
		err = fmt.Errorf("failed selecting checkout confirmations with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	defer rows.Close()

	confirmations := []response.Confirmation{}
	for rows.Next() {
		var (
			confirmation response.Confirmation
			total        string
		)
		if err = rows.Scan(
			&confirmation.SessionID,
			&confirmation.ShopperID,
			&total,
			&confirmation.ItemCount,
			&confirmation.PaymentMethod,
			&confirmation.ConfirmedAt,
		); err != nil {
			err = fmt.Errorf("failed scanning checkout confirmation with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		if confirmation.TotalPrice, err = decimal.NewFromString(total); err != nil {
			err = fmt.Errorf("failed parsing total=%s with error=%w", total, err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		confirmations = append(confirmations, confirmation)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("failed iterating checkout confirmations with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Int(log.KeyCartItemsCount, len(confirmations)).Msg("selected checkout confirmations")

	return confirmations, nil
}

type MemoryConfirmationRepository struct {
	mu            sync.RWMutex
	confirmations map[uuid.UUID][]response.Confirmation
}

func NewMemoryConfirmationRepository() *MemoryConfirmationRepository {
	return &MemoryConfirmationRepository{confirmations: map[uuid.UUID][]response.Confirmation{}}
}

func (m *MemoryConfirmationRepository) InsertConfirmation(
	_ context.Context,
	confirmation response.Confirmation,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	confirmation.Message = ""
	m.confirmations[confirmation.ShopperID] = append(m.confirmations[confirmation.ShopperID], confirmation)
	return nil
}

func (m *MemoryConfirmationRepository) FindConfirmationsByShopperID(
	_ context.Context,
	shopperID uuid.UUID,
	limit int,
) ([]response.Confirmation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	confirmations := append([]response.Confirmation{}, m.confirmations[shopperID]...)
	sort.SliceStable(confirmations, func(i, j int) bool {
		return confirmations[i].ConfirmedAt.After(confirmations[j].ConfirmedAt)
	})
	if limit > 0 && len(confirmations) > limit {
		confirmations = confirmations[:limit]
	}
	return confirmations, nil
}

package redis

import (
	"context"

	"github.com/DRSN-tech/pharmacy-counter/internal/cfg"
	"github.com/DRSN-tech/pharmacy-counter/pkg/clients"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/jimlawless/whereami"
)

const prescriptionKeyPrefix = "prescription:consumed:"

// PrescriptionLedger помнит погашенные рецепты. SETNX делает погашение атомарным между сессиями и репликами.
type PrescriptionLedger struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
}

func NewPrescriptionLedger(client *clients.RedisClient, cfg *cfg.RedisCfg) *PrescriptionLedger {
	return &PrescriptionLedger{
		client: client,
		cfg:    cfg,
	}
}

// Consume гасит токен. false — токен уже погашен ранее.
func (p *PrescriptionLedger) Consume(ctx context.Context, token string) (bool, error) {
	ok, err := p.client.Client.SetNX(ctx, prescriptionKey(token), "1", p.cfg.PrescriptionTokenTTL).Result()
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return ok, nil
}

// Release снимает погашение, если рецепт не удалось применить.
func (p *PrescriptionLedger) Release(ctx context.Context, token string) error {
	if err := p.client.Client.Del(ctx, prescriptionKey(token)).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func prescriptionKey(token string) string {
	return prescriptionKeyPrefix + token
}
